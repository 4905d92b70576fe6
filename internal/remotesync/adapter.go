// Package remotesync bridges the local annotation store and the REST API.
//
// Every mutation is applied to the store first and persisted in the
// background. Requests that touch the same record run strictly in the order
// the mutations were made; a failed request reverts its mutation and raises
// a Warning instead of returning a fatal error to the interaction loop.
package remotesync

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_remote.go -package=mocks video-annotator/internal/remotesync Remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"video-annotator/internal/annotation"
	"video-annotator/internal/history"
)

// Remote is the persisted side of the annotation set.
type Remote interface {
	List(ctx context.Context, video string) ([]annotation.Annotation, error)
	Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error)
	Update(ctx context.Context, id string, patch annotation.Patch) (annotation.Annotation, error)
	Delete(ctx context.Context, id string) error
}

// TempPrefix marks ids that were assigned locally and not yet persisted.
const TempPrefix = "tmp-"

// IsTemp reports whether id is a local temporary id.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

var (
	// ErrRolledBack wraps the cause of every reverted mutation.
	ErrRolledBack = errors.New("change rolled back")
	// ErrNotPersisted means a record's create failed before a later request
	// for it could be sent.
	ErrNotPersisted = errors.New("record was never persisted")
	// ErrUnknownRecord is returned for mutations of ids the store does not hold.
	ErrUnknownRecord = errors.New("unknown annotation")
	// ErrDuplicateID is returned when a create would reuse a live id.
	ErrDuplicateID = errors.New("annotation id already in use")
)

// Warning is a non-fatal sync failure surfaced to the user.
type Warning struct {
	Op  string
	ID  string
	Err error
}

func (w Warning) Error() string {
	if w.ID == "" {
		return fmt.Sprintf("%s failed: %v", w.Op, w.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", w.Op, w.ID, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Source tells where Load got the annotation set from.
type Source int

const (
	SourceEmpty Source = iota
	SourceRemote
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceCache:
		return "cache"
	}
	return "empty"
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCache enables the offline fallback used by Load.
func WithCache(c Cache) Option {
	return func(a *Adapter) { a.cache = c }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithWarningHandler registers fn to receive every Warning. fn runs on the
// goroutine that observed the failure.
func WithWarningHandler(fn func(Warning)) Option {
	return func(a *Adapter) { a.onWarning = fn }
}

// WithVideo scopes loads and new records to one video id.
func WithVideo(video string) Option {
	return func(a *Adapter) { a.video = video }
}

// WithIDGenerator overrides how temporary ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(a *Adapter) { a.newID = fn }
}

// Adapter applies mutations optimistically to a history.Store and
// reconciles them against a Remote.
type Adapter struct {
	store     *history.Store
	remote    Remote
	cache     Cache
	logger    *slog.Logger
	onWarning func(Warning)
	video     string
	newID     func() string

	mu sync.Mutex
	// aliases maps a temporary id to its server id once the create succeeds.
	aliases map[string]string
	// roots maps a server id back to the temporary id it was created under,
	// so every request for one record shares the same queue.
	roots map[string]string
	// persisted holds the server record each temporary id was reconciled to.
	persisted map[string]annotation.Annotation
	// tails holds, per queue key, the completion channel of the last
	// request enqueued.
	tails map[string]chan struct{}
	// server is the last known persisted set, in server order.
	server []annotation.Annotation

	saveMu sync.Mutex
	loads  singleflight.Group
	wg     sync.WaitGroup
}

// New returns an adapter that keeps store in sync with remote.
func New(store *history.Store, remote Remote, opts ...Option) *Adapter {
	a := &Adapter{
		store:     store,
		remote:    remote,
		logger:    slog.Default(),
		video:     annotation.DefaultVideo,
		newID:     func() string { return uuid.NewString() },
		aliases:   make(map[string]string),
		roots:     make(map[string]string),
		persisted: make(map[string]annotation.Annotation),
		tails:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the store the adapter mutates.
func (a *Adapter) Store() *history.Store {
	return a.store
}

// Pending tracks one background request.
type Pending struct {
	// ID is the local id the mutation was applied under.
	ID string

	done chan struct{}
	rec  annotation.Annotation
	err  error
}

func newPending(id string) *Pending {
	return &Pending{ID: id, done: make(chan struct{})}
}

// Completed returns a Pending that has already resolved.
func Completed(id string, rec annotation.Annotation, err error) *Pending {
	p := newPending(id)
	p.rec, p.err = rec, err
	close(p.done)
	return p
}

// Done is closed once the request has been reconciled or rolled back.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request resolves and returns the persisted record.
func (p *Pending) Wait(ctx context.Context) (annotation.Annotation, error) {
	select {
	case <-p.done:
		return p.rec, p.err
	case <-ctx.Done():
		return annotation.Annotation{}, ctx.Err()
	}
}

// Create adds rec to the store under a fresh temporary id and persists it.
// On success the temporary id is replaced by the server id everywhere in
// the store; on failure the store is reverted.
func (a *Adapter) Create(ctx context.Context, rec annotation.Annotation) *Pending {
	rec = rec.Clone()
	rec.ID = TempPrefix + a.newID()
	if rec.Video == "" {
		rec.Video = a.video
	}
	ch := a.store.Create(rec)
	if !ch.Matched() {
		return Completed(rec.ID, annotation.Annotation{}, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID))
	}

	p := newPending(rec.ID)
	a.enqueue(rec.ID, p, func() (annotation.Annotation, error) {
		persisted, err := a.remote.Create(ctx, rec)
		observe("create", err)
		if err != nil {
			return annotation.Annotation{}, a.rollback("create", ch, err)
		}

		a.mu.Lock()
		a.aliases[rec.ID] = persisted.ID
		a.roots[persisted.ID] = rec.ID
		a.persisted[rec.ID] = persisted
		a.remember(persisted)
		a.mu.Unlock()

		if !a.store.Rekey(rec.ID, rec, persisted) {
			a.logger.Debug("created record no longer in store", "temp_id", rec.ID, "id", persisted.ID)
		}
		a.saveCache()
		return persisted, nil
	})
	return p
}

// Update patches id in the store and persists the patch. id may be a
// temporary id whose create is still in flight.
func (a *Adapter) Update(ctx context.Context, id string, patch annotation.Patch) *Pending {
	ch := a.store.Update(id, patch)
	if !ch.Matched() {
		return Completed(id, annotation.Annotation{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id))
	}

	p := newPending(id)
	a.enqueue(a.root(id), p, func() (annotation.Annotation, error) {
		target, ok := a.resolve(id)
		if !ok {
			return annotation.Annotation{}, a.rollback("update", ch, ErrNotPersisted)
		}
		updated, err := a.remote.Update(ctx, target, patch)
		observe("update", err)
		if err != nil {
			return annotation.Annotation{}, a.rollback("update", ch, err)
		}

		a.mu.Lock()
		a.remember(updated)
		a.mu.Unlock()
		a.saveCache()
		return updated, nil
	})
	return p
}

// Delete removes id from the store and from the remote. Deleting a record
// whose create failed needs no request.
func (a *Adapter) Delete(ctx context.Context, id string) *Pending {
	ch := a.store.Delete(id)
	if !ch.Matched() {
		return Completed(id, annotation.Annotation{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id))
	}

	p := newPending(id)
	a.enqueue(a.root(id), p, func() (annotation.Annotation, error) {
		target, ok := a.resolve(id)
		if !ok {
			return ch.Before, nil
		}
		err := a.remote.Delete(ctx, target)
		observe("delete", err)
		if err != nil {
			return annotation.Annotation{}, a.rollback("delete", ch, err)
		}

		a.mu.Lock()
		a.forget(target)
		a.mu.Unlock()
		a.saveCache()
		return ch.Before, nil
	})
	return p
}

// Load fetches the remote set and installs it as the store's baseline. If
// the remote is unreachable it falls back to the cache, then to an empty
// set; the remote error is returned alongside the fallback source and is
// also raised as a Warning. Concurrent calls share one request.
func (a *Adapter) Load(ctx context.Context) (Source, error) {
	type result struct {
		src Source
		err error
	}
	v, _, _ := a.loads.Do("load", func() (any, error) {
		src, err := a.load(ctx)
		return result{src: src, err: err}, nil
	})
	r := v.(result)
	return r.src, r.err
}

func (a *Adapter) load(ctx context.Context) (Source, error) {
	recs, err := a.remote.List(ctx, a.video)
	observe("list", err)
	if err == nil {
		a.store.ReplaceAll(recs)
		a.mu.Lock()
		a.server = cloneAll(recs)
		a.mu.Unlock()
		a.saveCache()
		syncLoads.WithLabelValues(SourceRemote.String()).Inc()
		a.logger.Info("annotations loaded", "source", SourceRemote.String(), "count", len(recs))
		return SourceRemote, nil
	}

	a.warn(Warning{Op: "load", Err: err})
	src := SourceEmpty
	recs = nil
	if a.cache != nil {
		cached, cerr := a.cache.Load()
		switch {
		case cerr == nil:
			src, recs = SourceCache, cached
		case errors.Is(cerr, ErrNoCache):
		default:
			a.logger.Warn("failed to read annotation cache", "error", cerr)
		}
	}

	a.store.ReplaceAll(recs)
	a.mu.Lock()
	a.server = cloneAll(recs)
	a.mu.Unlock()
	syncLoads.WithLabelValues(src.String()).Inc()
	a.logger.Info("annotations loaded", "source", src.String(), "count", len(recs))
	return src, fmt.Errorf("load annotations: %w", err)
}

// Wait blocks until every queued request has resolved.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// Resolve returns the server id for id, which is id itself unless it is a
// temporary id. The second result is false while a temporary id has no
// server id yet.
func (a *Adapter) Resolve(id string) (string, bool) {
	return a.resolve(id)
}

func (a *Adapter) resolve(id string) (string, bool) {
	if !IsTemp(id) {
		return id, true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	target, ok := a.aliases[id]
	return target, ok
}

// root returns the queue key for id.
func (a *Adapter) root(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if temp, ok := a.roots[id]; ok {
		return temp
	}
	return id
}

// enqueue runs fn after every request previously enqueued under key.
func (a *Adapter) enqueue(key string, p *Pending, fn func() (annotation.Annotation, error)) {
	a.mu.Lock()
	prev := a.tails[key]
	a.tails[key] = p.done
	a.mu.Unlock()

	syncInFlight.Inc()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer syncInFlight.Dec()

		if prev != nil {
			<-prev
		}
		p.rec, p.err = fn()

		a.mu.Lock()
		if a.tails[key] == p.done {
			delete(a.tails, key)
		}
		a.mu.Unlock()
		close(p.done)
	}()
}

// rollback reverts ch and reports cause. The returned error wraps both
// ErrRolledBack and cause.
func (a *Adapter) rollback(op string, ch history.Change, cause error) error {
	ch = a.canonical(ch)
	a.store.Rollback(ch)
	syncRollbacks.WithLabelValues(op).Inc()
	a.warn(Warning{Op: op, ID: ch.ID, Err: cause})
	return fmt.Errorf("%w: %s %s: %w", ErrRolledBack, op, ch.ID, cause)
}

// canonical rewrites a change recorded under a temporary id to the server
// id, matching what Store.Rekey did to the records in the meantime.
func (a *Adapter) canonical(ch history.Change) history.Change {
	a.mu.Lock()
	persisted, ok := a.persisted[ch.ID]
	a.mu.Unlock()
	if !ok {
		return ch
	}

	adopt := func(r annotation.Annotation) annotation.Annotation {
		if r.ID == "" {
			return r
		}
		r = r.Clone()
		r.ID = persisted.ID
		r.CreatedAt = persisted.CreatedAt
		r.UpdatedAt = persisted.UpdatedAt
		return r
	}
	ch.ID = persisted.ID
	ch.Before = adopt(ch.Before)
	ch.After = adopt(ch.After)
	return ch
}

func (a *Adapter) warn(w Warning) {
	a.logger.Warn("annotation sync failed", "op", w.Op, "id", w.ID, "error", w.Err)
	if a.onWarning != nil {
		a.onWarning(w)
	}
}

// remember records rec as persisted. Caller holds a.mu.
func (a *Adapter) remember(rec annotation.Annotation) {
	for i := range a.server {
		if a.server[i].ID == rec.ID {
			a.server[i] = rec.Clone()
			return
		}
	}
	a.server = append(a.server, rec.Clone())
}

// forget drops id from the persisted set. Caller holds a.mu.
func (a *Adapter) forget(id string) {
	out := a.server[:0]
	for _, r := range a.server {
		if r.ID != id {
			out = append(out, r)
		}
	}
	a.server = out
}

func (a *Adapter) saveCache() {
	if a.cache == nil {
		return
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	snap := cloneAll(a.server)
	a.mu.Unlock()

	if err := a.cache.Save(snap); err != nil {
		a.logger.Warn("failed to save annotation cache", "error", err)
	}
}

func cloneAll(recs []annotation.Annotation) []annotation.Annotation {
	out := make([]annotation.Annotation, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
