// internal/app/system/jsonutil/jsonutil.go
package jsonutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// OK writes a 200 success envelope. data fields are merged next to
// "success": true.
func OK(w http.ResponseWriter, data map[string]any) {
	Write(w, http.StatusOK, data)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, data map[string]any) {
	Write(w, http.StatusCreated, data)
}

// Write writes {"success": true, ...data} with the given status.
func Write(w http.ResponseWriter, status int, data map[string]any) {
	body := make(map[string]any, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body["success"] = true
	writeJSON(w, status, body)
}

// Error maps err to an HTTP status and writes {"success": false, "error": msg}.
// Internal errors are logged with their cause; clients get a generic message.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if kind == apperr.Internal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   apperr.MessageOf(err),
	})
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into dst. Empty or malformed bodies are
// validation errors.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validationf("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperr.Validationf("request body is required")
		}
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}

// ObjectID parses a hex id taken from a path or body. Malformed ids are
// not-found rather than validation errors: no document can have them.
func ObjectID(s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFoundf("not found")
	}
	return oid, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
