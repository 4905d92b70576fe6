package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video-annotator/internal/annotation"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:5000/api/")
	if client.BaseURL != "http://localhost:5000/api" {
		t.Errorf("NewClient() BaseURL = %v, want trailing slash trimmed", client.BaseURL)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/annotations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("video"); got != "clip 1" {
			t.Errorf("video query = %q, want %q", got, "clip 1")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"a","type":"circle","x":0.5,"y":0.5,"radius":0.1,"timestamp":1,"duration":3}]`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL+"/api").List(context.Background(), "clip 1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Radius != 0.1 {
		t.Errorf("List() = %+v", got)
	}
}

func TestClient_CreateOmitsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("bad body: %v", err)
			return
		}
		if _, ok := body["id"]; ok {
			t.Errorf("create body carries an id: %s", raw)
		}
		if body["type"] != "rectangle" {
			t.Errorf("type = %v, want rectangle", body["type"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc123","type":"rectangle","x":0.2,"y":0.2,"width":0.3,"height":0.2,"timestamp":0,"duration":3}`))
	}))
	defer server.Close()

	in := annotation.Annotation{ID: "tmp-1", Type: annotation.TypeRectangle, X: 0.2, Y: 0.2, Width: 0.3, Height: 0.2, Duration: 3}
	got, err := NewClient(server.URL).Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.ID != "abc123" || got.Width != 0.3 {
		t.Errorf("Create() = %+v", got)
	}
}

func TestClient_Delete204(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/annotations/abc" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := NewClient(server.URL).Delete(context.Background(), "abc"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"message":"duration: must be > 0"}`, wantMessage: "duration: must be > 0"},
		{name: "html body falls back to status text", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMessage: "Bad Gateway"},
		{name: "empty body", status: http.StatusNotFound, body: ``, wantMessage: "Not Found"},
		{name: "json without message", status: http.StatusInternalServerError, body: `{"error":"x"}`, wantMessage: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			color := "#000000"
			_, err := NewClient(server.URL).Update(context.Background(), "a", annotation.Patch{Color: &color})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Update() error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMessage {
				t.Errorf("APIError = %+v, want status %d message %q", apiErr, tt.status, tt.wantMessage)
			}
			if IsNotFound(err) != (tt.status == http.StatusNotFound) {
				t.Errorf("IsNotFound() mismatch for %d", tt.status)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).List(context.Background(), "")
	if err == nil {
		t.Fatal("List() against a closed server should fail")
	}
	if !strings.Contains(err.Error(), "failed to send request") {
		t.Errorf("List() error = %v", err)
	}
}

func TestClient_VideoConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"src":"http://example.com/v.mp4","title":"Sample"}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).VideoConfig(context.Background())
	if err != nil {
		t.Fatalf("VideoConfig() error = %v", err)
	}
	if got.Src != "http://example.com/v.mp4" || got.Title != "Sample" {
		t.Errorf("VideoConfig() = %+v", got)
	}
}
