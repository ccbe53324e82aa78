package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/fiche/internal/models"
)

// Model tier choices stored in settings.
const (
	ModelSonnet = "sonnet"
	ModelHaiku  = "haiku"
)

// Settings is the single persisted settings record. All fields are
// optional; zero values mean "use the application default".
// CustomInstructions applies when no instruction file covers the subject.
type Settings struct {
	APIKey             string                    `json:"apiKey,omitempty"`
	DefaultFontSize    int                       `json:"defaultFontSize,omitempty"`
	DefaultSubject     models.Subject            `json:"defaultSubject,omitempty"`
	Model              string                    `json:"model,omitempty"`
	CustomInstructions map[models.Subject]string `json:"customInstructions,omitempty"`
}

// Settings loads the persisted settings record, or the zero value when
// none was ever saved.
func (s *Store) Settings() (Settings, error) {
	var data string
	err := s.conn.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("history: read settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return Settings{}, fmt.Errorf("history: decode settings: %w", err)
	}
	return out, nil
}

// SaveSettings persists the full settings record, replacing the previous
// one.
func (s *Store) SaveSettings(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("history: encode settings: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO settings (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, string(data))
	if err != nil {
		return fmt.Errorf("history: save settings: %w", err)
	}
	return nil
}
