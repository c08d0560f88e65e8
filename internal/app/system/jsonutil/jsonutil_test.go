package jsonutil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

func TestError_StatusMatchesSuccessFlag(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthorized", apperr.New(apperr.Unauthorized, "sign in"), http.StatusUnauthorized, "sign in"},
		{"forbidden", apperr.Forbiddenf("nope"), http.StatusForbidden, "nope"},
		{"not found", apperr.NotFoundf("missing"), http.StatusNotFound, "missing"},
		{"validation", apperr.Validationf("bad"), http.StatusBadRequest, "bad"},
		{"conflict", apperr.Conflictf("dup"), http.StatusConflict, "dup"},
		{"rate limited", apperr.New(apperr.RateLimited, "later"), http.StatusTooManyRequests, "later"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			jsonutil.Error(rec, zap.NewNop(), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Error("success should be false on error")
			}
			if body.Error != tt.message {
				t.Errorf("error: got %q, want %q", body.Error, tt.message)
			}
		})
	}
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonutil.Created(rec, map[string]any{"id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true || body["id"] != "abc" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		ID string `json:"id"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"id":"u2"}`))
	if err := jsonutil.Decode(req, &dst); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dst.ID != "u2" {
		t.Errorf("id: got %q", dst.ID)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := jsonutil.Decode(req, &dst); !apperr.Is(err, apperr.Validation) {
		t.Errorf("empty body: got %v, want validation error", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	if err := jsonutil.Decode(req, &dst); !apperr.Is(err, apperr.Validation) {
		t.Errorf("bad json: got %v, want validation error", err)
	}
}

func TestObjectID(t *testing.T) {
	if _, err := jsonutil.ObjectID("507f1f77bcf86cd799439011"); err != nil {
		t.Errorf("valid id: %v", err)
	}
	for _, s := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		if _, err := jsonutil.ObjectID(s); !apperr.Is(err, apperr.NotFound) {
			t.Errorf("ObjectID(%q) err = %v, want not found", s, err)
		}
	}
}
