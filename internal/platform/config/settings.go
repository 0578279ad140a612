package config

import "sync/atomic"

// Settings is the runtime view the pipeline reads on every request. Values are
// never mutated in place; a change publishes a new snapshot.
type Settings struct {
	LoggingEnabled  bool   `json:"logging_enabled"`
	StatsWindowDays int    `json:"stats_window_days"`
	NotifyBotID     int64  `json:"notify_bot_id"`
	NotifyChatID    string `json:"notify_chat_id"`
}

type SettingsStore struct {
	current atomic.Pointer[Settings]
}

func NewSettingsStore(initial Settings) *SettingsStore {
	s := &SettingsStore{}
	s.Publish(initial)
	return s
}

func (s *SettingsStore) Current() Settings {
	return *s.current.Load()
}

func (s *SettingsStore) Publish(next Settings) {
	snapshot := next
	s.current.Store(&snapshot)
}
