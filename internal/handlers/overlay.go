package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"video-annotator/internal/annotation"
	"video-annotator/internal/contextutil"
	"video-annotator/internal/render"
	"video-annotator/internal/service"
)

const (
	defaultOverlayWidth  = 1280
	defaultOverlayHeight = 720
	maxOverlaySide       = 4096
)

// OverlayHandler renders the annotations visible at a playback time as a
// transparent PNG the size of the video box.
type OverlayHandler struct {
	svc    service.AnnotationService
	canvas *render.Canvas
}

// NewOverlayHandler creates a new OverlayHandler.
func NewOverlayHandler(svc service.AnnotationService, canvas *render.Canvas) *OverlayHandler {
	return &OverlayHandler{svc: svc, canvas: canvas}
}

// ServeHTTP handles GET /api/annotations/overlay.png?t=&width=&height=[&video=].
//
// swagger:route GET /api/annotations/overlay.png annotations renderOverlay
//
// Renders the annotations visible at playback time `t` as a transparent PNG.
//
// ---
// produces:
// - image/png
// responses:
//
//	'200':
//	  description: Overlay image
//	'400':
//	  description: Missing or invalid t, width or height
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	q := r.URL.Query()

	t, err := strconv.ParseFloat(q.Get("t"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "t must be a playback time in seconds")
		return
	}
	width, ok := dimension(q.Get("width"), defaultOverlayWidth)
	if !ok {
		writeError(w, http.StatusBadRequest, "width must be between 1 and 4096")
		return
	}
	height, ok := dimension(q.Get("height"), defaultOverlayHeight)
	if !ok {
		writeError(w, http.StatusBadRequest, "height must be between 1 and 4096")
		return
	}
	video := strings.TrimSpace(q.Get("video"))
	if video == "" {
		video = annotation.DefaultVideo
	}

	visible, err := h.svc.VisibleAt(ctx, video, t)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to render overlay")
		return
	}

	img := h.canvas.Draw(render.Frame{Width: width, Height: height, Annotations: visible})
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		logger.ErrorContext(ctx, "failed to encode overlay", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render overlay")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func dimension(raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxOverlaySide {
		return 0, false
	}
	return n, true
}
