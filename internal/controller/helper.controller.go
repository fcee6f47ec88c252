package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sharetube/jam/internal/service/jam"
)

const maxBodySize = 1 << 20

type envelope map[string]any

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c controller) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", jam.ErrDecode, err)
	}

	return nil
}

func (c controller) writeJSON(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.WarnContext(ctx, "failed to write response", "error", err)
	}
}

func (c controller) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		c.logger.InfoContext(ctx, "request rejected", "error", err)
	}

	c.writeJSON(ctx, w, status, envelope{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, jam.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jam.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, jam.ErrDecode), errors.Is(err, jam.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, jam.ErrProvider):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
