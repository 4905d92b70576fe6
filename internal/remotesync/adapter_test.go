package remotesync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"video-annotator/internal/annotation"
	"video-annotator/internal/history"
	"video-annotator/internal/remotesync/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNetwork = errors.New("connection refused")

func rect(id string) annotation.Annotation {
	return annotation.Annotation{
		ID:        id,
		Type:      annotation.TypeRectangle,
		X:         0.2,
		Y:         0.2,
		Width:     0.3,
		Height:    0.2,
		Timestamp: 1,
		Duration:  annotation.DefaultDuration,
		Color:     annotation.DefaultColor,
		Video:     annotation.DefaultVideo,
	}
}

type warnings struct {
	mu   sync.Mutex
	list []Warning
}

func (w *warnings) add(x Warning) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, x)
}

func (w *warnings) all() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.list...)
}

type memCache struct {
	recs  []annotation.Annotation
	saves int
}

func (c *memCache) Load() ([]annotation.Annotation, error) {
	if c.recs == nil {
		return nil, ErrNoCache
	}
	return c.recs, nil
}

func (c *memCache) Save(recs []annotation.Annotation) error {
	c.recs = recs
	c.saves++
	return nil
}

func newAdapter(t *testing.T, opts ...Option) (*Adapter, *mocks.MockRemote, *warnings) {
	t.Helper()
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemote(ctrl)
	w := &warnings{}
	opts = append([]Option{
		WithIDGenerator(func() string { return "1" }),
		WithWarningHandler(w.add),
	}, opts...)
	return New(history.New(), remote, opts...), remote, w
}

func wait(t *testing.T, p *Pending) (annotation.Annotation, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestAdapter_CreateReplacesTemporaryID(t *testing.T) {
	adapter, remote, w := newAdapter(t)
	ctx := context.Background()

	remote.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a annotation.Annotation) (annotation.Annotation, error) {
			assert.Equal(t, "tmp-1", a.ID)
			a.ID = "abc123"
			a.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			a.UpdatedAt = a.CreatedAt
			return a, nil
		})

	in := rect("")
	p := adapter.Create(ctx, in)
	require.Equal(t, "tmp-1", p.ID)

	_, ok := adapter.Store().Get("tmp-1")
	require.True(t, ok, "create must apply before the request resolves")

	got, err := wait(t, p)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)

	live := adapter.Store().Live()
	require.Len(t, live, 1)
	assert.Equal(t, "abc123", live[0].ID)
	assert.Equal(t, in.X, live[0].X)
	assert.Equal(t, in.Width, live[0].Width)
	assert.Equal(t, in.Height, live[0].Height)
	assert.Empty(t, w.all())

	id, ok := adapter.Resolve("tmp-1")
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)
}

func TestAdapter_CreateNetworkFailureRollsBack(t *testing.T) {
	adapter, remote, w := newAdapter(t)

	remote.EXPECT().Create(gomock.Any(), gomock.Any()).Return(annotation.Annotation{}, errNetwork)

	_, err := wait(t, adapter.Create(context.Background(), rect("")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRolledBack)
	assert.ErrorIs(t, err, errNetwork)

	assert.Empty(t, adapter.Store().Live(), "no temporary record may remain")
	assert.False(t, adapter.Store().CanUndo(), "pre-create history restored")

	warns := w.all()
	require.Len(t, warns, 1)
	assert.Equal(t, "create", warns[0].Op)
	assert.ErrorIs(t, warns[0], errNetwork)
}

func TestAdapter_UpdateWaitsForCreate(t *testing.T) {
	adapter, remote, _ := newAdapter(t)
	ctx := context.Background()
	release := make(chan struct{})

	gomock.InOrder(
		remote.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a annotation.Annotation) (annotation.Annotation, error) {
				<-release
				a.ID = "abc123"
				return a, nil
			}),
		remote.EXPECT().
			Update(gomock.Any(), "abc123", gomock.Any()).
			DoAndReturn(func(_ context.Context, id string, p annotation.Patch) (annotation.Annotation, error) {
				r := rect(id)
				return p.Apply(r), nil
			}),
	)

	created := adapter.Create(ctx, rect(""))
	color := "#00FF00"
	updated := adapter.Update(ctx, created.ID, annotation.Patch{Color: &color})

	got, ok := adapter.Store().Get("tmp-1")
	require.True(t, ok)
	assert.Equal(t, color, got.Color, "update must apply optimistically")

	select {
	case <-updated.Done():
		t.Fatal("update resolved before its create")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	_, err := wait(t, updated)
	require.NoError(t, err)

	got, ok = adapter.Store().Get("abc123")
	require.True(t, ok)
	assert.Equal(t, color, got.Color)
}

func TestAdapter_UpdateFailureRollsBack(t *testing.T) {
	adapter, remote, w := newAdapter(t)
	ctx := context.Background()

	remote.EXPECT().List(gomock.Any(), annotation.DefaultVideo).Return([]annotation.Annotation{rect("a"), rect("b")}, nil)
	remote.EXPECT().Update(gomock.Any(), "a", gomock.Any()).Return(annotation.Annotation{}, errNetwork)

	src, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceRemote, src)

	color := "#000000"
	_, err = wait(t, adapter.Update(ctx, "a", annotation.Patch{Color: &color}))
	assert.ErrorIs(t, err, ErrRolledBack)

	got, _ := adapter.Store().Get("a")
	assert.Equal(t, annotation.DefaultColor, got.Color)
	assert.Len(t, w.all(), 1)
}

func TestAdapter_FailedUpdateRevertedUnderLaterEdit(t *testing.T) {
	adapter, remote, w := newAdapter(t)
	ctx := context.Background()
	release := make(chan struct{})

	server := rect("a")
	remote.EXPECT().List(gomock.Any(), gomock.Any()).Return([]annotation.Annotation{server}, nil)
	gomock.InOrder(
		remote.EXPECT().
			Update(gomock.Any(), "a", gomock.Any()).
			DoAndReturn(func(context.Context, string, annotation.Patch) (annotation.Annotation, error) {
				<-release
				return annotation.Annotation{}, errNetwork
			}),
		remote.EXPECT().
			Update(gomock.Any(), "a", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, p annotation.Patch) (annotation.Annotation, error) {
				assert.Nil(t, p.X, "later request carries only its own fields")
				server = p.Apply(server)
				return server, nil
			}),
	)

	_, err := adapter.Load(ctx)
	require.NoError(t, err)

	x := 0.7
	rejected := adapter.Update(ctx, "a", annotation.Patch{X: &x})
	color := "#00FF00"
	accepted := adapter.Update(ctx, "a", annotation.Patch{Color: &color})
	close(release)

	_, err = wait(t, rejected)
	require.ErrorIs(t, err, ErrRolledBack)
	_, err = wait(t, accepted)
	require.NoError(t, err)

	local, ok := adapter.Store().Get("a")
	require.True(t, ok)
	assert.Equal(t, server.X, local.X, "rejected x must not survive in the store")
	assert.Equal(t, color, local.Color, "accepted edit must survive the rollback")
	assert.Len(t, w.all(), 1)
}

func TestAdapter_CreateRejectsLiveTemporaryID(t *testing.T) {
	adapter, remote, _ := newAdapter(t)
	ctx := context.Background()
	release := make(chan struct{})
	defer adapter.Wait()
	defer close(release)

	remote.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a annotation.Annotation) (annotation.Annotation, error) {
			<-release
			a.ID = "abc123"
			return a, nil
		})

	first := adapter.Create(ctx, rect(""))
	second := adapter.Create(ctx, rect(""))
	require.Equal(t, first.ID, second.ID)

	_, err := wait(t, second)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, adapter.Store().Live(), 1)
}

func TestAdapter_DeleteFailureReinsertsInPlace(t *testing.T) {
	adapter, remote, _ := newAdapter(t)
	ctx := context.Background()

	remote.EXPECT().List(gomock.Any(), gomock.Any()).Return([]annotation.Annotation{rect("a"), rect("b"), rect("c")}, nil)
	remote.EXPECT().Delete(gomock.Any(), "b").Return(errNetwork)

	_, err := adapter.Load(ctx)
	require.NoError(t, err)

	p := adapter.Delete(ctx, "b")
	_, ok := adapter.Store().Get("b")
	require.False(t, ok, "delete must apply before the request resolves")

	_, err = wait(t, p)
	require.ErrorIs(t, err, ErrRolledBack)

	var ids []string
	for _, a := range adapter.Store().Live() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestAdapter_DeleteAfterFailedCreateSendsNothing(t *testing.T) {
	adapter, remote, _ := newAdapter(t)
	ctx := context.Background()
	release := make(chan struct{})

	remote.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, annotation.Annotation) (annotation.Annotation, error) {
			<-release
			return annotation.Annotation{}, errNetwork
		})

	created := adapter.Create(ctx, rect(""))
	deleted := adapter.Delete(ctx, created.ID)
	close(release)

	_, err := wait(t, created)
	assert.ErrorIs(t, err, ErrRolledBack)
	_, err = wait(t, deleted)
	assert.NoError(t, err)
	assert.Empty(t, adapter.Store().Live())
}

func TestAdapter_LateCreateResponseAfterUndo(t *testing.T) {
	adapter, remote, _ := newAdapter(t)
	ctx := context.Background()
	release := make(chan struct{})

	remote.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a annotation.Annotation) (annotation.Annotation, error) {
			<-release
			a.ID = "abc123"
			return a, nil
		})

	p := adapter.Create(ctx, rect(""))
	require.True(t, adapter.Store().Undo())
	close(release)

	_, err := wait(t, p)
	require.NoError(t, err)
	assert.Empty(t, adapter.Store().Live())

	require.True(t, adapter.Store().Redo())
	_, ok := adapter.Store().Get("abc123")
	assert.True(t, ok, "redo must bring back the persisted id")
	_, ok = adapter.Store().Get("tmp-1")
	assert.False(t, ok)
}

func TestAdapter_UnknownRecord(t *testing.T) {
	adapter, _, _ := newAdapter(t)
	color := "#000000"

	_, err := wait(t, adapter.Update(context.Background(), "missing", annotation.Patch{Color: &color}))
	assert.ErrorIs(t, err, ErrUnknownRecord)
	_, err = wait(t, adapter.Delete(context.Background(), "missing"))
	assert.ErrorIs(t, err, ErrUnknownRecord)
}

func TestAdapter_LoadFallsBackToCache(t *testing.T) {
	cache := &memCache{recs: []annotation.Annotation{rect("cached")}}
	adapter, remote, w := newAdapter(t, WithCache(cache))

	remote.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errNetwork)

	src, err := adapter.Load(context.Background())
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, SourceCache, src)

	live := adapter.Store().Live()
	require.Len(t, live, 1)
	assert.Equal(t, "cached", live[0].ID)
	assert.Len(t, w.all(), 1)
	assert.False(t, adapter.Store().CanUndo(), "load must not record history")
}

func TestAdapter_LoadEmptyWithoutCache(t *testing.T) {
	adapter, remote, _ := newAdapter(t, WithCache(&memCache{}))
	remote.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errNetwork)

	src, err := adapter.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, SourceEmpty, src)
	assert.Empty(t, adapter.Store().Live())
}

func TestAdapter_CacheTracksPersistedSet(t *testing.T) {
	cache := &memCache{}
	adapter, remote, _ := newAdapter(t, WithCache(cache))
	ctx := context.Background()

	remote.EXPECT().List(gomock.Any(), gomock.Any()).Return([]annotation.Annotation{rect("a")}, nil)
	remote.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a annotation.Annotation) (annotation.Annotation, error) {
			a.ID = "b"
			return a, nil
		})
	remote.EXPECT().Delete(gomock.Any(), "a").Return(nil)

	_, err := adapter.Load(ctx)
	require.NoError(t, err)
	_, err = wait(t, adapter.Create(ctx, rect("")))
	require.NoError(t, err)
	_, err = wait(t, adapter.Delete(ctx, "a"))
	require.NoError(t, err)
	adapter.Wait()

	require.Len(t, cache.recs, 1)
	assert.Equal(t, "b", cache.recs[0].ID)
	assert.Equal(t, 3, cache.saves)
}

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	cache := NewFileCache(path)

	_, err := cache.Load()
	require.ErrorIs(t, err, ErrNoCache)

	want := []annotation.Annotation{rect("a"), rect("b")}
	require.NoError(t, cache.Save(want))

	got, err := cache.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(want[0]))
	assert.True(t, got[1].Equal(want[1]))

	require.NoError(t, cache.Save(nil))
	got, err = cache.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
