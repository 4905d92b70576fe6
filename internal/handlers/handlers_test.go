package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"video-annotator/internal/annotation"
	"video-annotator/internal/config"
	"video-annotator/internal/render"
	"video-annotator/internal/service"
	service_mocks "video-annotator/internal/service/mocks"
)

func TestOverlayHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	visible := []annotation.Annotation{
		{ID: "r", Type: annotation.TypeRectangle, X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5, Color: "#FF0000"},
	}

	tests := []struct {
		name           string
		query          string
		mockSetup      func(*service_mocks.MockAnnotationService)
		expectedStatus int
		wantW, wantH   int
	}{
		{
			name:  "renders visible annotations",
			query: "?t=2&width=100&height=50&video=intro",
			mockSetup: func(m *service_mocks.MockAnnotationService) {
				m.EXPECT().VisibleAt(gomock.Any(), "intro", 2.0).Return(visible, nil)
			},
			expectedStatus: http.StatusOK,
			wantW:          100,
			wantH:          50,
		},
		{
			name:  "default size and video",
			query: "?t=0",
			mockSetup: func(m *service_mocks.MockAnnotationService) {
				m.EXPECT().VisibleAt(gomock.Any(), "default", 0.0).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			wantW:          1280,
			wantH:          720,
		},
		{
			name:           "missing time",
			query:          "?width=10&height=10",
			mockSetup:      func(*service_mocks.MockAnnotationService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "oversized",
			query:          "?t=1&width=100000",
			mockSetup:      func(*service_mocks.MockAnnotationService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "negative time rejected by service",
			query: "?t=-1",
			mockSetup: func(m *service_mocks.MockAnnotationService) {
				m.EXPECT().VisibleAt(gomock.Any(), "default", -1.0).
					Return(nil, &service.ValidationError{Field: "t", Message: "must be a time >= 0"})
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service_mocks.NewMockAnnotationService(ctrl)
			tt.mockSetup(svc)
			handler := NewOverlayHandler(svc, render.NewCanvas(render.DefaultOptions()))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/annotations/overlay.png"+tt.query, nil))

			if w.Code != tt.expectedStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %v, want image/png", ct)
			}
			img, err := png.Decode(w.Body)
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("overlay bounds = %v, want %dx%d", b, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestReportHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service_mocks.NewMockAnnotationService(ctrl)
	svc.EXPECT().List(gomock.Any(), "default").Return([]annotation.Annotation{
		{ID: "a", Type: annotation.TypeText, X: 0.1, Y: 0.1, Text: "look | here", Timestamp: 61.5, Duration: 3, Color: "#FF5722"},
		{ID: "b", Type: annotation.TypeCircle, X: 0.5, Y: 0.5, Radius: 0.1, Timestamp: 70, Duration: 2, Color: "red"},
	}, nil)

	w := httptest.NewRecorder()
	NewReportHandler(svc, annotation.WindowFixed).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/annotations/report", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP() status = %v, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<table>", "1:01.5", "1:04.5", "2 annotations", "1 circle", "look | here", "<title>Annotations: default</title>"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestReportHandler_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service_mocks.NewMockAnnotationService(ctrl)
	svc.EXPECT().List(gomock.Any(), "intro").Return(nil, nil)

	w := httptest.NewRecorder()
	NewReportHandler(svc, annotation.WindowFixed).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/annotations/report?video=intro", nil))

	if !strings.Contains(w.Body.String(), "No annotations yet.") {
		t.Errorf("empty report body = %s", w.Body.String())
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00.0"},
		{5.25, "0:05.2"},
		{61.5, "1:01.5"},
		{600, "10:00.0"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.in); got != tt.want {
			t.Errorf("formatTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type staticVideo config.VideoConfig

func (s staticVideo) Current() config.VideoConfig { return config.VideoConfig(s) }

func TestVideoHandler(t *testing.T) {
	h := NewVideoHandler(staticVideo{Src: "http://example.com/v.mp4", VideoID: "intro"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/video/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP() status = %v", w.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got["src"] != "http://example.com/v.mp4" || got["videoId"] != "intro" {
		t.Errorf("video config = %v", got)
	}
	if _, ok := got["title"]; ok {
		t.Error("empty title should be omitted")
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		ping           error
		expectedStatus int
		expectedState  string
	}{
		{name: "healthy", method: http.MethodGet, expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "store down", method: http.MethodGet, ping: errors.New("closed"), expectedStatus: http.StatusServiceUnavailable, expectedState: "unhealthy"},
		{name: "wrong method", method: http.MethodPost, expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/health", nil))

			if w.Code != tt.expectedStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.expectedStatus)
			}
			if tt.expectedState == "" {
				return
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Status != tt.expectedState {
				t.Errorf("status = %v, want %v", resp.Status, tt.expectedState)
			}
		})
	}
}
