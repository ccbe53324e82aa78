// Package classify detects the study subject of photographed notes with a
// single bounded generation request. Classification never propagates a
// hard failure: anything that goes wrong degrades to the catch-all label.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/models"
)

const question = "Quelle est la matière scolaire de ces notes ? Réponds UNIQUEMENT par un de ces mots : " +
	"Physique-Chimie, Mathématiques, SVT, Histoire-Géo, Français, Philosophie, Langues, Économie, Autre"

// Generator is the single-call surface of the generation client.
type Generator interface {
	Generate(ctx context.Context, req anthropic.Request) (string, error)
}

// Classifier issues subject-detection requests.
type Classifier struct {
	client Generator
	logger *slog.Logger
}

// New creates a classifier using the economy model tier.
func New(client Generator, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, logger: logger}
}

// Detect classifies one preprocessed JPEG image. The first line of the
// response is matched case-insensitively against the fixed label set; no
// match, or any call failure, yields the catch-all label.
func (c *Classifier) Detect(ctx context.Context, jpegPayload []byte) models.Subject {
	req := anthropic.Request{
		Model:     anthropic.ModelEconomy,
		MaxTokens: 50,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: []anthropic.ContentPart{
				anthropic.ImagePart(jpegPayload),
				anthropic.TextPart(question),
			},
		}},
	}

	text, err := c.client.Generate(ctx, req)
	if err != nil {
		c.logger.Warn("classify: detection failed", slog.String("error", err.Error()))
		return models.SubjectOther
	}

	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return models.MatchSubject(strings.TrimSpace(line))
}
