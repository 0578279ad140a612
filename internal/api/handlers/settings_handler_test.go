package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hookbot/internal/platform/config"
)

func TestSettingsHandler_Update(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		check func(t *testing.T, s config.Settings)
	}{
		{
			name: "Partial update keeps other fields",
			body: `{"logging_enabled":false}`,
			want: http.StatusOK,
			check: func(t *testing.T, s config.Settings) {
				if s.LoggingEnabled || s.StatsWindowDays != 30 || s.NotifyChatID != "-100" {
					t.Errorf("settings = %+v", s)
				}
			},
		},
		{
			name: "Notify target",
			body: `{"notify_bot_id":3,"notify_chat_id":"-200"}`,
			want: http.StatusOK,
			check: func(t *testing.T, s config.Settings) {
				if s.NotifyBotID != 3 || s.NotifyChatID != "-200" {
					t.Errorf("settings = %+v", s)
				}
			},
		},
		{name: "Invalid window", body: `{"stats_window_days":0}`, want: http.StatusBadRequest},
		{name: "Malformed body", body: `{`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := config.Settings{LoggingEnabled: true, StatsWindowDays: 30, NotifyChatID: "-100"}
			store := config.NewSettingsStore(initial)
			h := NewSettingsHandler(store)

			rec := httptest.NewRecorder()
			h.Update(rec, newRequest(http.MethodPut, "/api/v1/settings", tt.body, nil, "alice"))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.check != nil {
				tt.check(t, store.Current())
			}
			if tt.want != http.StatusOK && store.Current() != initial {
				t.Errorf("rejected update was published: %+v", store.Current())
			}
		})
	}
}
