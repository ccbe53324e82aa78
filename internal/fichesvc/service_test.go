package fichesvc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/prompt"
)

type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	block chan struct{}
	reqs  []anthropic.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req anthropic.Request) (string, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	block := g.block
	g.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func (g *fakeGenerator) last(t *testing.T) anthropic.Request {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.reqs) == 0 {
		t.Fatal("no request recorded")
	}
	return g.reqs[len(g.reqs)-1]
}

type fakeDetector struct {
	subject models.Subject
	calls   int
}

func (d *fakeDetector) Detect(ctx context.Context, jpegPayload []byte) models.Subject {
	d.calls++
	return d.subject
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *recordingPublisher) PublishProgress(message string) {
	p.mu.Lock()
	p.messages = append(p.messages, message)
	p.mu.Unlock()
}

func (p *recordingPublisher) first() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[0]
}

func testService(t *testing.T, gen *fakeGenerator, det *fakeDetector) (*Service, *recordingPublisher) {
	t.Helper()
	instructions, err := prompt.LoadInstructions("")
	if err != nil {
		t.Fatal(err)
	}
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(gen, det, instructions, pub, func() string { return anthropic.ModelGeneration }, logger)
	return svc, pub
}

func photoPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 15, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGenerateCourse(t *testing.T) {
	gen := &fakeGenerator{text: "```html\n<h1>Les fractions</h1><p>Cours.</p>\n```"}
	det := &fakeDetector{subject: models.SubjectBiology}
	svc, pub := testService(t, gen, det)

	photos := []*models.Photo{{Name: "p1.png", Raw: photoPNG(t)}}
	doc, err := svc.GenerateCourse(context.Background(), photos, Options{Subject: models.SubjectMath})
	if err != nil {
		t.Fatal(err)
	}
	if det.calls != 0 {
		t.Error("detector must not run when the subject is given")
	}
	if doc.Subject != models.SubjectMath || doc.Type != models.ModeCourse {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Title != "Les fractions" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Color != "#2980b9" || doc.FontSize != DefaultFontSize {
		t.Errorf("defaults not applied: color=%q fontSize=%d", doc.Color, doc.FontSize)
	}
	if !strings.HasPrefix(doc.HTML, "<!DOCTYPE html>") {
		t.Error("output not normalized")
	}
	if !strings.HasPrefix(doc.ID, "fiche_") {
		t.Errorf("id = %q", doc.ID)
	}

	req := gen.last(t)
	if req.Model != anthropic.ModelGeneration || req.MaxTokens != courseMaxTokens {
		t.Errorf("request = model %q tokens %d", req.Model, req.MaxTokens)
	}
	parts, ok := req.Messages[0].Content.([]anthropic.ContentPart)
	if !ok {
		t.Fatalf("content type = %T", req.Messages[0].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want image + text", len(parts))
	}
	if parts[0].Type != "image" || parts[1].Type != "text" {
		t.Errorf("part types = %q, %q", parts[0].Type, parts[1].Type)
	}

	if pub.first() != "Analyse des photos..." {
		t.Errorf("first progress message = %q", pub.first())
	}
}

func TestGenerateCourseDetectsSubject(t *testing.T) {
	gen := &fakeGenerator{text: "<h1>Volcans</h1>"}
	det := &fakeDetector{subject: models.SubjectBiology}
	svc, _ := testService(t, gen, det)

	photos := []*models.Photo{{Name: "p1.png", Raw: photoPNG(t)}}
	doc, err := svc.GenerateCourse(context.Background(), photos, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if det.calls != 1 {
		t.Errorf("detector calls = %d", det.calls)
	}
	if doc.Subject != models.SubjectBiology {
		t.Errorf("subject = %q", doc.Subject)
	}
	if doc.Color != models.SubjectBiology.Colors().Main {
		t.Errorf("color = %q", doc.Color)
	}
}

func TestGenerateCourseSkipsBrokenPhotos(t *testing.T) {
	gen := &fakeGenerator{text: "<h1>Ok</h1>"}
	svc, _ := testService(t, gen, &fakeDetector{subject: models.SubjectOther})

	photos := []*models.Photo{
		{Name: "good.png", Raw: photoPNG(t)},
		{Name: "broken.bin", Raw: []byte("not an image")},
	}
	if _, err := svc.GenerateCourse(context.Background(), photos, Options{Subject: models.SubjectMath}); err != nil {
		t.Fatal(err)
	}
	req := gen.last(t)
	parts, ok := req.Messages[0].Content.([]anthropic.ContentPart)
	if !ok {
		t.Fatalf("content type = %T", req.Messages[0].Content)
	}
	if len(parts) != 2 {
		t.Errorf("parts = %d, broken photo should be dropped", len(parts))
	}
}

func TestGenerateCourseAllPhotosBroken(t *testing.T) {
	gen := &fakeGenerator{text: "<h1>Ok</h1>"}
	svc, _ := testService(t, gen, &fakeDetector{subject: models.SubjectOther})

	photos := []*models.Photo{
		{Name: "a.bin", Raw: []byte("garbage")},
		{Name: "b.bin", Raw: []byte("more garbage")},
	}
	_, err := svc.GenerateCourse(context.Background(), photos, Options{Subject: models.SubjectMath})
	if !errors.Is(err, apperr.ErrDecodeFailure) {
		t.Errorf("err = %v, want decode failure", err)
	}
}

func TestGenerateCourseNoPhotos(t *testing.T) {
	svc, _ := testService(t, &fakeGenerator{}, &fakeDetector{})
	if _, err := svc.GenerateCourse(context.Background(), nil, Options{}); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestGenerateCourseSingleFlight(t *testing.T) {
	gen := &fakeGenerator{text: "<h1>Ok</h1>", block: make(chan struct{})}
	svc, _ := testService(t, gen, &fakeDetector{subject: models.SubjectOther})

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.GenerateCourse(context.Background(), []*models.Photo{{Name: "p.png", Raw: photoPNG(t)}}, Options{Subject: models.SubjectMath})
		done <- err
	}()
	<-started

	// Wait for the first call to reach the generator.
	deadline := time.Now().Add(3 * time.Second)
	for {
		gen.mu.Lock()
		n := len(gen.reqs)
		gen.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first generation never reached the client")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := svc.GenerateCourse(context.Background(), []*models.Photo{{Name: "p.png", Raw: photoPNG(t)}}, Options{Subject: models.SubjectMath})
	if !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("concurrent call err = %v, want busy", err)
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestGenerateCourseForwardsFailure(t *testing.T) {
	gen := &fakeGenerator{err: apperr.ErrRateLimited}
	svc, _ := testService(t, gen, &fakeDetector{subject: models.SubjectOther})

	_, err := svc.GenerateCourse(context.Background(), []*models.Photo{{Name: "p.png", Raw: photoPNG(t)}}, Options{Subject: models.SubjectMath})
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Errorf("err = %v", err)
	}
}
