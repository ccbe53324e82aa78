package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/models"
)

type fakeGenerator struct {
	text string
	err  error
	last anthropic.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req anthropic.Request) (string, error) {
	f.last = req
	return f.text, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetect(t *testing.T) {
	gen := &fakeGenerator{text: "Mathématiques"}
	c := New(gen, discardLogger())

	got := c.Detect(context.Background(), []byte{0xff, 0xd8})
	if got != models.SubjectMath {
		t.Errorf("Detect = %q", got)
	}
	if gen.last.Model != anthropic.ModelEconomy {
		t.Errorf("model = %q, want economy tier", gen.last.Model)
	}
	if gen.last.MaxTokens != 50 {
		t.Errorf("max tokens = %d", gen.last.MaxTokens)
	}
}

func TestDetectFirstLineOnly(t *testing.T) {
	gen := &fakeGenerator{text: "SVT\nCes notes parlent de biologie cellulaire."}
	c := New(gen, discardLogger())
	if got := c.Detect(context.Background(), nil); got != models.SubjectBiology {
		t.Errorf("Detect = %q", got)
	}
}

func TestDetectGarbageFallsBack(t *testing.T) {
	gen := &fakeGenerator{text: "Je ne sais pas."}
	c := New(gen, discardLogger())
	if got := c.Detect(context.Background(), nil); got != models.SubjectOther {
		t.Errorf("Detect = %q, want catch-all", got)
	}
}

func TestDetectErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	c := New(gen, discardLogger())
	if got := c.Detect(context.Background(), nil); got != models.SubjectOther {
		t.Errorf("Detect = %q, want catch-all", got)
	}
}
