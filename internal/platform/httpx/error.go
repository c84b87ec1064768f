// Package httpx renders the JSON error envelope shared by every handler.
package httpx

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/platform/requestctx"
)

// Error is an API error before rendering. Code is a stable machine-readable
// slug; Message is safe to show to callers.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError builds an Error, defaulting the HTTP status to 500 when unset.
func NewError(code, message string, status int) Error {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    singleLine(code, 80),
		Message: singleLine(message, 512),
		Status:  status,
	}
}

// WithRequestID pins the request identifier instead of reading it from context.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = singleLine(id, 80)
	return e
}

// WithTraceID pins the trace identifier instead of reading it from context.
func (e Error) WithTraceID(id string) Error {
	e.TraceID = singleLine(id, 64)
	return e
}

// WithDetails merges extra JSON-serialisable fields into the envelope.
// Reserved envelope keys cannot be overridden.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	e.Details = maps.Clone(details)
	return e
}

// WriteError renders e as the canonical envelope. Request and trace
// identifiers fall back to the values carried on ctx when not set explicitly.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	status := e.Status
	if status <= 0 {
		status = http.StatusInternalServerError
	}

	body := make(map[string]any, len(e.Details)+5)
	maps.Copy(body, e.Details)
	body["error"] = e.Code
	body["message"] = e.Message
	body["status"] = status

	requestID := e.RequestID
	if requestID == "" {
		requestID = singleLine(middleware.GetReqID(ctx), 80)
	}
	if requestID != "" {
		body["request_id"] = requestID
	}

	traceID := e.TraceID
	if traceID == "" {
		traceID = singleLine(requestctx.TraceID(ctx), 64)
	}
	if traceID != "" {
		body["trace_id"] = traceID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// singleLine collapses whitespace runs and truncates so envelope fields stay
// one line regardless of what produced them.
func singleLine(value string, max int) string {
	if max <= 0 {
		max = 256
	}
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > max {
		value = value[:max]
	}
	return value
}
