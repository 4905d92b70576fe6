package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"video-annotator/internal/annotation"
	"video-annotator/internal/contextutil"
	"video-annotator/internal/service"
)

// maxBodyBytes bounds annotation request bodies.
const maxBodyBytes = 1 << 20

// AnnotationHandler serves the annotation collection.
type AnnotationHandler struct {
	svc service.AnnotationService
}

// NewAnnotationHandler creates a new AnnotationHandler.
func NewAnnotationHandler(svc service.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{svc: svc}
}

// List handles GET /api/annotations[?video=].
//
// swagger:route GET /api/annotations annotations listAnnotations
//
// # List annotations
//
// Returns every annotation sorted by timestamp, optionally filtered by the
// `video` query parameter.
//
// ---
// produces:
// - application/json
// parameters:
//   - in: query
//     name: video
//     type: string
//     required: false
//
// responses:
//
//	'200':
//	  description: Annotations in timestamp order
//	  schema:
//	    type: array
//	    items:
//	      "$ref": "#/definitions/Annotation"
//	'500':
//	  description: Storage failure
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AnnotationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video := strings.TrimSpace(r.URL.Query().Get("video"))

	list, err := h.svc.List(ctx, video)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to fetch annotations")
		return
	}
	if list == nil {
		list = []annotation.Annotation{}
	}
	writeJSON(ctx, w, http.StatusOK, list)
}

// Create handles POST /api/annotations. Any id in the body is ignored.
//
// swagger:route POST /api/annotations annotations createAnnotation
//
// # Create an annotation
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//       "$ref": "#/definitions/Annotation"
//
// responses:
//
//	'201':
//	  description: The stored record with its server id
//	  schema:
//	    "$ref": "#/definitions/Annotation"
//	'400':
//	  description: Malformed or invalid record
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req annotation.Annotation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.svc.Create(ctx, req)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create annotation")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, created)
}

// Update handles PUT /api/annotations/{id}. The body may be a partial or a
// full record; id and type in the body never change the stored record.
//
// swagger:route PUT /api/annotations/{id} annotations updateAnnotation
//
// # Update an annotation
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: path
//     name: id
//     type: string
//     required: true
//   - in: body
//     name: body
//     required: true
//     schema:
//       "$ref": "#/definitions/AnnotationPatch"
//
// responses:
//
//	'200':
//	  description: The updated record
//	  schema:
//	    "$ref": "#/definitions/Annotation"
//	'400':
//	  description: Malformed body or invalid result
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown id
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AnnotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	id := chi.URLParam(r, "id")

	var patch annotation.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		logger.WarnContext(ctx, "invalid request body", "id", id, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.svc.Update(ctx, id, patch)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to update annotation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, updated)
}

// Delete handles DELETE /api/annotations/{id}.
//
// swagger:route DELETE /api/annotations/{id} annotations deleteAnnotation
//
// ---
// parameters:
//   - in: path
//     name: id
//     type: string
//     required: true
//
// responses:
//
//	'204':
//	  description: Deleted
//	'404':
//	  description: Unknown id
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete annotation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
