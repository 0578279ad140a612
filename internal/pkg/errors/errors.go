package errors

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeFormatting        = "FORMATTING_FAILED"
	ErrCodeUpstream          = "UPSTREAM_DELIVERY_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

const detailsKey = "details"

func build(title, details string, category goerrors.Category, status int, textCode string) *goerrors.Error {
	err := goerrors.New(title, category).
		WithCode(status).
		WithTextCode(textCode)
	if details != "" {
		err.WithMetadata(map[string]any{detailsKey: details})
	}
	return err
}

func BadRequest(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryBadInput, http.StatusBadRequest, ErrCodeInvalidInput)
}

func NotFound(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryNotFound, http.StatusNotFound, ErrCodeNotFound)
}

func Unauthorized(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryAuth, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func Forbidden(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryAuth, http.StatusForbidden, ErrCodeForbidden)
}

func Conflict(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryConflict, http.StatusConflict, ErrCodeConflict)
}

func RateLimited(title, details string) *goerrors.Error {
	return build(title, details, goerrors.CategoryRateLimit, http.StatusTooManyRequests, ErrCodeRateLimitExceeded)
}

// Upstream keeps the provider or transport status; anything outside the error range becomes 502.
func Upstream(title, details string, status int) *goerrors.Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return build(title, details, goerrors.CategoryExternal, status, ErrCodeUpstream)
}

func Formatting(details string) *goerrors.Error {
	return build("Failed to format message", details, goerrors.CategoryOperation, http.StatusInternalServerError, ErrCodeFormatting)
}

func Internal(title, details string) *goerrors.Error {
	if title == "" {
		title = "Internal server error"
	}
	return build(title, details, goerrors.CategoryInternal, http.StatusInternalServerError, ErrCodeInternal)
}

// Envelope returns err as a rich error, turning anything unknown into a generic Internal one.
func Envelope(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return rich
	}
	return Internal("", "")
}

func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Envelope(err).Code
}

func Details(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return ""
	}
	details, _ := rich.Metadata[detailsKey].(string)
	return details
}

func IsCategory(err error, category goerrors.Category) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == category
}

// Response builds the JSON body for err.
func Response(err error) ErrorResponse {
	rich := Envelope(err)
	return ErrorResponse{
		Error:   rich.Message,
		Details: Details(rich),
		Code:    rich.TextCode,
	}
}

func WriteError(w http.ResponseWriter, err error) {
	rich := Envelope(err)
	WriteJSON(w, rich.Code, Response(rich))
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
