package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/platform/auth"
)

func newRequest(method, target, body string, params httprouter.Params, userID string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(r.Context(), apiContext.Params, params)
	if userID != "" {
		ctx = context.WithValue(ctx, apiContext.Claims, &auth.Claims{UserID: userID, Role: "operator"})
	}
	return r.WithContext(ctx)
}

func param(key, value string) httprouter.Params {
	return httprouter.Params{{Key: key, Value: value}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return out
}
