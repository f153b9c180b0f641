package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultPaidThreshold is the view count at or below which a video counts as organic.
const DefaultPaidThreshold = 10000

// Settings holds process-wide analysis settings persisted in settings.json.
type Settings struct {
	PaidThreshold int `json:"paid_threshold"`
}

// DefaultSettings returns the settings used when settings.json is absent.
func DefaultSettings() Settings {
	return Settings{PaidThreshold: DefaultPaidThreshold}
}

// SettingsFile reads and writes settings.json. Every Load hits the disk so
// threshold edits made by other processes apply on the next computation.
type SettingsFile struct {
	Path string
}

// Load reads the settings file, falling back to defaults when it does not exist.
func (s *SettingsFile) Load() (Settings, error) {
	settings := DefaultSettings()
	if s == nil || s.Path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return settings, fmt.Errorf("parse settings: %w", err)
	}
	if value, ok := raw["paid_threshold"]; ok {
		var threshold int
		if err := json.Unmarshal(value, &threshold); err != nil {
			return settings, fmt.Errorf("parse settings: paid_threshold: %w", err)
		}
		if threshold < 0 {
			return settings, fmt.Errorf("parse settings: paid_threshold must not be negative (got %d)", threshold)
		}
		settings.PaidThreshold = threshold
	}
	return settings, nil
}

// PaidThreshold returns the current organic/paid cutoff.
func (s *SettingsFile) PaidThreshold() (int, error) {
	settings, err := s.Load()
	if err != nil {
		return DefaultPaidThreshold, err
	}
	return settings.PaidThreshold, nil
}

// Save writes the settings, preserving unrelated keys already in the file.
func (s *SettingsFile) Save(settings Settings) error {
	if s == nil || s.Path == "" {
		return errors.New("settings path not configured")
	}
	if settings.PaidThreshold < 0 {
		return fmt.Errorf("paid_threshold must not be negative (got %d)", settings.PaidThreshold)
	}
	raw := map[string]json.RawMessage{}
	if data, err := os.ReadFile(s.Path); err == nil {
		if err := json.Unmarshal(data, &raw); err != nil {
			raw = map[string]json.RawMessage{}
		}
	}
	encoded, err := json.Marshal(settings.PaidThreshold)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	raw["paid_threshold"] = encoded

	payload, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
