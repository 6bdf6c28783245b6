package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/classify"
	"github.com/KARTIK027-CODE/StubbleX/internal/inference"
	"github.com/KARTIK027-CODE/StubbleX/internal/metrics"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/upload"
)

type ClassifyHandler struct {
	Sessions *session.Manager
	Registry *Registry
}

// workspace resolves the caller's workflow workspace; anonymous requests
// are rejected before any file bytes are looked at.
func (h *ClassifyHandler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	if !h.Sessions.Role(r).Valid() {
		writeError(w, http.StatusUnauthorized, "Sign in to use AI classification")
		return nil, false
	}
	id := h.Sessions.WorkspaceID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Sign in to use AI classification")
		return nil, false
	}
	return h.Registry.Get(id), true
}

// Classify validates the uploaded image, installs it as the workspace's
// candidate, and submits it to the inference service in one round trip,
// which is the contract the dashboard already speaks.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	// Cap the body a little above the ceiling: a file just over 10 MiB
	// still reaches the validator for its proper message, while a grossly
	// oversized body fails here at parse time.
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxBytes+(1<<20))
	if err := r.ParseMultipartForm(upload.MaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.UploadsRejected.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusBadRequest, upload.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, upload.MaxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	candidate, err := upload.Validate(header.Filename, mimeType, data)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			metrics.UploadsRejected.WithLabelValues("unsupported_type").Inc()
		case errors.Is(err, upload.ErrTooLarge):
			metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.Workflow.SetCandidate(candidate); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.submit(w, r, ws)
}

// Retry resubmits the held candidate after a failure, without
// re-uploading.
func (h *ClassifyHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.submit(w, r, ws)
}

func (h *ClassifyHandler) submit(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	start := time.Now()
	result, err := ws.Workflow.Submit(r.Context())
	metrics.ClassificationLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, classify.ErrSubmitInFlight):
			// Second trigger while in flight: a no-op, not a queued retry.
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, classify.ErrNoCandidate):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			metrics.Classifications.WithLabelValues("failed").Inc()
			snap := ws.Workflow.Snapshot()
			slog.Error("Classification failed", "error", err)
			var statusErr *inference.StatusError
			if errors.As(err, &statusErr) && statusErr.Detail != "" {
				writeError(w, http.StatusUnprocessableEntity, snap.Error)
			} else {
				writeError(w, http.StatusBadGateway, snap.Error)
			}
		}
		return
	}

	metrics.Classifications.WithLabelValues("succeeded").Inc()
	writeJSON(w, http.StatusOK, result)
}

// Status returns the workflow snapshot: state, held candidate, preview
// readiness, result or error.
func (h *ClassifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Workflow.Snapshot())
}

// Clear is "classify another": result and candidate drop together.
func (h *ClassifyHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Workflow.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
