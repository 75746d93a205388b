package api

import (
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/user/webconsole/internal/session"
)

const invalidRequest = "Invalid request"

type stateResponse struct {
	Output          []string `json:"output"`
	PendingInputs   []string `json:"pending_inputs"`
	ProgramFinished bool     `json:"program_finished"`
}

// inputRequest is the body of /api/input and /api/validate. Both fields
// are required; a missing or null field makes the request malformed.
type inputRequest struct {
	ID    *string `json:"id"`
	Value *string `json:"value"`
}

var errMissingField = errors.New("id and value are required")

func decodeInput(r *http.Request) (id, value string, err error) {
	var req inputRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", "", err
	}
	if req.ID == nil || req.Value == nil {
		return "", "", errMissingField
	}
	return *req.ID, *req.Value, nil
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (h *handler) serveAsset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(h.assets, name)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "static asset missing", "name", name, "error", err)
			notFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	snap := h.broker.Snapshot()
	resp := stateResponse{
		Output:          snap.Output,
		PendingInputs:   snap.Pending,
		ProgramFinished: snap.Finished,
	}
	if resp.Output == nil {
		resp.Output = []string{}
	}
	if resp.PendingInputs == nil {
		resp.PendingInputs = []string{}
	}
	w.Header().Set("Cache-Control", "no-store")
	jsonResponse(w, http.StatusOK, resp)
}

// postInput always answers OK: unknown ids and malformed bodies are
// ignored so a stale browser tab cannot cause errors.
func (h *handler) postInput(w http.ResponseWriter, r *http.Request) {
	id, value, err := decodeInput(r)
	if err != nil {
		h.logger.DebugContext(r.Context(), "ignoring malformed input", "error", err)
	} else if !h.broker.Submit(id, value) {
		h.logger.DebugContext(r.Context(), "ignoring input for unknown request", "id", id)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (h *handler) postValidate(w http.ResponseWriter, r *http.Request) {
	id, value, err := decodeInput(r)
	if err != nil {
		jsonResponse(w, http.StatusOK, validateResponse{Error: invalidRequest})
		return
	}
	tag, ok := h.broker.Tag(id)
	if !ok {
		jsonResponse(w, http.StatusOK, validateResponse{Error: invalidRequest})
		return
	}
	if err := session.Validate(value, tag); err != nil {
		jsonResponse(w, http.StatusOK, validateResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, validateResponse{Valid: true})
}
