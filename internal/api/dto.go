package api

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/prompt"
)

// valueOrEmpty wraps a membership check into an ozzo rule that also
// accepts the empty string (the server default applies).
func valueOrEmpty(valid func(string) bool) validation.RuleFunc {
	return func(v any) error {
		s, _ := v.(string)
		if s == "" || valid(s) {
			return nil
		}
		return errors.New("unknown value")
	}
}

// DeriveRequest is the request body for deriving a new document from the
// active work session.
type DeriveRequest struct {
	Mode           string `json:"mode"`
	Format         string `json:"format,omitempty"`
	Count          int    `json:"count,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	Kind           string `json:"kind,omitempty"`
	WithCorrection bool   `json:"withCorrection,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Question       string `json:"question,omitempty"`
}

// Validate checks the mode and its parameters.
func (r DeriveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.In(
			string(models.ModeQuiz),
			string(models.ModeExercise),
			string(models.ModeEssay),
			string(models.ModeMethod),
			string(models.ModeFree),
		)),
		validation.Field(&r.Count, validation.Min(0), validation.Max(30)),
		validation.Field(&r.Format, validation.By(valueOrEmpty(prompt.ValidQuizFormat))),
		validation.Field(&r.Difficulty, validation.By(valueOrEmpty(prompt.ValidDifficulty))),
		validation.Field(&r.Kind, validation.When(r.Mode == string(models.ModeExercise),
			validation.By(valueOrEmpty(prompt.ValidExerciseKind))).Else(
			validation.By(valueOrEmpty(prompt.ValidEssayKind)))),
		validation.Field(&r.Topic, validation.When(
			r.Mode == string(models.ModeEssay) || r.Mode == string(models.ModeMethod),
			validation.Required)),
		validation.Field(&r.Question, validation.When(r.Mode == string(models.ModeFree),
			validation.Required)),
	)
}

// Spec resolves the request into a transformation spec, applying defaults
// for omitted parameters.
func (r DeriveRequest) Spec() prompt.Spec {
	switch models.Mode(r.Mode) {
	case models.ModeQuiz:
		q := prompt.Quiz{Format: r.Format, Count: r.Count, Difficulty: r.Difficulty}
		if q.Format == "" {
			q.Format = prompt.QuizMixed
		}
		if q.Count <= 0 {
			q.Count = 10
		}
		if q.Difficulty == "" {
			q.Difficulty = prompt.DifficultyMedium
		}
		return q
	case models.ModeExercise:
		e := prompt.Exercise{Kind: r.Kind, Count: r.Count, WithCorrection: r.WithCorrection}
		if e.Kind == "" {
			e.Kind = prompt.ExerciseApplication
		}
		if e.Count <= 0 {
			e.Count = 3
		}
		return e
	case models.ModeEssay:
		e := prompt.Essay{Topic: r.Topic, Kind: r.Kind}
		if e.Kind == "" {
			e.Kind = prompt.EssayExplanation
		}
		return e
	case models.ModeMethod:
		return prompt.Method{Topic: r.Topic}
	case models.ModeFree:
		return prompt.Free{Question: r.Question}
	default:
		// Unreachable after Validate.
		return prompt.Free{Question: r.Question}
	}
}

// SessionRequest starts a work session on a stored document.
type SessionRequest struct {
	DocumentID string `json:"documentId"`
}

// Validate checks the session request.
func (r SessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
	)
}

// ChatRequest is one user message of the work-mode conversation.
type ChatRequest struct {
	Message string `json:"message"`
}

// Validate checks the chat message.
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 4000)),
	)
}

// UpdateDocumentRequest replaces a stored document's markup.
type UpdateDocumentRequest struct {
	HTML string `json:"html"`
}

// Validate checks the update request.
func (r UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HTML, validation.Required),
	)
}

// RenameRequest changes a stored document's title.
type RenameRequest struct {
	Title string `json:"title"`
}

// Validate checks the rename request.
func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
	)
}

// SettingsRequest is the request body for replacing the stored settings.
type SettingsRequest struct {
	APIKey             string            `json:"apiKey"`
	DefaultFontSize    int               `json:"defaultFontSize"`
	DefaultSubject     string            `json:"defaultSubject"`
	Model              string            `json:"model"`
	CustomInstructions map[string]string `json:"customInstructions"`
}

// Validate checks the settings values. Empty fields mean "use the
// application default".
func (r SettingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DefaultFontSize, validation.Min(0), validation.Max(24)),
		validation.Field(&r.DefaultSubject, validation.By(valueOrEmpty(models.ValidSubject))),
		validation.Field(&r.Model, validation.In("", history.ModelSonnet, history.ModelHaiku)),
		validation.Field(&r.CustomInstructions, validation.By(func(value interface{}) error {
			for subject := range value.(map[string]string) {
				if !models.ValidSubject(subject) {
					return fmt.Errorf("unknown subject %q", subject)
				}
			}
			return nil
		})),
	)
}

// VerifyKeyRequest probes an API key for validity.
type VerifyKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// Validate checks the verification request.
func (r VerifyKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKey, validation.Required),
	)
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

// SubjectInfo is one entry of the subject catalogue.
type SubjectInfo struct {
	Name   models.Subject `json:"name"`
	Main   string         `json:"main"`
	Accent string         `json:"accent"`
}
