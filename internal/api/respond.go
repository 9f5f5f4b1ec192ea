package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/pkg/logger"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.deps.Log.Error("encode response", logger.Error(err))
		}
	}
}

// writeError maps domain errors to HTTP status codes. Anything unmapped is
// a 500 with a generic body; the detail goes to the log only.
func (h *handlers) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, ve := range verrs {
			fields[ve.Field] = ve.Message
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  domain.ErrValidation.Error(),
			Fields: fields,
		})
		return
	}

	var status int
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidPlan):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPaymentDeclined):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	default:
		h.deps.Log.ErrorContext(ctx, "request failed", logger.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode parses the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var errs domain.ValidationErrors
		errs.Add("body", "must be valid JSON")
		return errs
	}
	return nil
}
