package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		status   int
		category goerrors.Category
	}{
		{"bad request", BadRequest("Invalid UUID format", ""), http.StatusBadRequest, goerrors.CategoryBadInput},
		{"not found", NotFound("Webhook not found", "x"), http.StatusNotFound, goerrors.CategoryNotFound},
		{"unauthorized", Unauthorized("Unauthorized", ""), http.StatusUnauthorized, goerrors.CategoryAuth},
		{"conflict", Conflict("Session already completed", ""), http.StatusConflict, goerrors.CategoryConflict},
		{"upstream passthrough", Upstream("Failed to deliver message", "chat not found", 403), http.StatusForbidden, goerrors.CategoryExternal},
		{"upstream default", Upstream("Failed to deliver message", "", 0), http.StatusBadGateway, goerrors.CategoryExternal},
		{"internal", Internal("", ""), http.StatusInternalServerError, goerrors.CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.status {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.status)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.category)
			}
			if !IsCategory(tt.err, tt.category) {
				t.Errorf("IsCategory(%q) = false", tt.category)
			}
		})
	}
}

func TestEnvelopeWrapsUnknownErrors(t *testing.T) {
	err := fmt.Errorf("boom")
	if got := Status(err); got != http.StatusInternalServerError {
		t.Errorf("Status() = %d, want 500", got)
	}
	if got := Response(err).Error; got != "Internal server error" {
		t.Errorf("Response().Error = %q", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NotFound("Webhook not found", "Webhook with UUID 'abc' was not found"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Webhook not found" || body.Details != "Webhook with UUID 'abc' was not found" || body.Code != ErrCodeNotFound {
		t.Errorf("unexpected body: %+v", body)
	}
}
