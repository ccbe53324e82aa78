// Package fichesvc orchestrates the photo-to-document pipeline: image
// preparation, subject detection, prompt assembly, the generation call,
// and output normalization.
package fichesvc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/imaging"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/normalize"
	"github.com/starford/fiche/internal/progress"
	"github.com/starford/fiche/internal/prompt"
)

const (
	courseMaxTokens = 8000

	// DefaultFontSize applies when neither the request nor the stored
	// settings name one.
	DefaultFontSize = 14
)

// Generator is the single-call surface of the generation client.
type Generator interface {
	Generate(ctx context.Context, req anthropic.Request) (string, error)
}

// Detector resolves the study subject of a prepared photo.
type Detector interface {
	Detect(ctx context.Context, jpegPayload []byte) models.Subject
}

// Publisher receives generation progress messages.
type Publisher interface {
	PublishProgress(message string)
}

// Options are the per-generation parameters. Zero values fall back to
// subject defaults.
type Options struct {
	Subject     models.Subject
	MainColor   string
	AccentColor string
	FontSize    int
}

// Service runs course generations. One generation at a time; a second
// request while one is in flight is rejected.
type Service struct {
	client       Generator
	detector     Detector
	instructions *prompt.Instructions
	publisher    Publisher
	model        func() string
	logger       *slog.Logger

	mu         sync.Mutex
	generating bool
}

// New creates the service. model resolves the generation model id at call
// time so a settings change applies to the next request.
func New(client Generator, detector Detector, instructions *prompt.Instructions, publisher Publisher, model func() string, logger *slog.Logger) *Service {
	return &Service{
		client:       client,
		detector:     detector,
		instructions: instructions,
		publisher:    publisher,
		model:        model,
		logger:       logger,
	}
}

// Detect delegates subject detection to the classifier.
func (s *Service) Detect(ctx context.Context, jpegPayload []byte) models.Subject {
	return s.detector.Detect(ctx, jpegPayload)
}

func (s *Service) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return apperr.ErrBusy
	}
	s.generating = true
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// GenerateCourse turns a batch of photographed notes into a formatted
// document. Photos that fail to decode are skipped; the call fails only
// when no photo survives. The result is not persisted; saving is the
// caller's decision.
func (s *Service) GenerateCourse(ctx context.Context, photos []*models.Photo, opts Options) (*models.Document, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("fichesvc: no photos")
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	runner := progress.Start(s.publisher)
	defer runner.Stop()

	if err := imaging.PrepareBatch(ctx, photos); err != nil {
		return nil, err
	}
	good := make([]*models.Photo, 0, len(photos))
	for _, p := range photos {
		if p.Err != nil {
			s.logger.Warn("fichesvc: photo skipped",
				slog.String("name", p.Name), slog.String("error", p.Err.Error()))
			continue
		}
		good = append(good, p)
	}
	if len(good) == 0 {
		return nil, fmt.Errorf("fichesvc: %w: no readable photo", apperr.ErrDecodeFailure)
	}

	subject := opts.Subject
	if subject == "" {
		subject = s.detector.Detect(ctx, good[0].Payload)
		s.logger.Info("fichesvc: subject detected", slog.String("subject", string(subject)))
	}

	colors := subject.Colors()
	mainColor := opts.MainColor
	if mainColor == "" {
		mainColor = colors.Main
	}
	accentColor := opts.AccentColor
	if accentColor == "" {
		accentColor = colors.Accent
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}

	pctx := prompt.Context{
		Subject:      subject,
		MainColor:    mainColor,
		AccentColor:  accentColor,
		FontSize:     fontSize,
		Instructions: s.instructions.For(subject),
	}
	system, user := prompt.Build(pctx, prompt.Course{})

	parts := make([]anthropic.ContentPart, 0, len(good)+1)
	for _, p := range good {
		parts = append(parts, anthropic.ImagePart(p.Payload))
	}
	parts = append(parts, anthropic.TextPart(user))

	req := anthropic.Request{
		Model:     s.model(),
		MaxTokens: courseMaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: parts}},
	}

	started := time.Now()
	raw, err := s.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("fichesvc: course generated",
		slog.Int("photos", len(good)),
		slog.Duration("elapsed", time.Since(started)))

	st := normalize.Style{MainColor: mainColor, AccentColor: accentColor, FontSize: fontSize}
	html := normalize.Normalize(raw, st)
	title := normalize.ExtractTitle(html)

	return &models.Document{
		ID:       "fiche_" + uuid.NewString(),
		Title:    title,
		Subject:  subject,
		Color:    mainColor,
		Date:     time.Now(),
		HTML:     html,
		FontSize: fontSize,
		Type:     models.ModeCourse,
	}, nil
}
