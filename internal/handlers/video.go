package handlers

import (
	"net/http"

	"video-annotator/internal/config"
)

// VideoSource supplies the current video config. *config.VideoHolder
// implements it.
type VideoSource interface {
	Current() config.VideoConfig
}

// VideoHandler serves GET /api/video/config.
type VideoHandler struct {
	source VideoSource
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(source VideoSource) *VideoHandler {
	return &VideoHandler{source: source}
}

// ServeHTTP returns the current video config.
//
// swagger:route GET /api/video/config video getVideoConfig
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: "The video source: src, title and videoId"
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.source.Current())
}
