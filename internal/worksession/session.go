// Package worksession implements the work-mode engine: one live session
// anchored to a source document, from which the user derives quizzes,
// exercises, essays, method sheets, free answers, and a running tutoring
// conversation.
package worksession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/normalize"
	"github.com/starford/fiche/internal/prompt"
)

const (
	// MaxTurns bounds the conversation; the oldest turns are evicted
	// first, never reordered.
	MaxTurns = 20
	// ExcerptLimit bounds the plain-text excerpt extracted from the
	// source document.
	ExcerptLimit = 6000

	derivedFontSize    = 14
	defaultMainColor   = "#2980b9"
	defaultAccentColor = "#e67e22"

	chatMaxTokens = 2000
)

// ErrEmptyConversation is returned when converting a conversation with no
// turns into a document.
var ErrEmptyConversation = errors.New("worksession: empty conversation")

// State of the engine.
type State string

const (
	StateIdle         State = "idle"
	StateSourceLoaded State = "source-loaded"
	StateGenerating   State = "generating"
	StateChatting     State = "chatting"
)

// Generator is the single-call surface of the generation client.
type Generator interface {
	Generate(ctx context.Context, req anthropic.Request) (string, error)
}

// Engine holds the live work session. Exactly one session is active at a
// time; Start discards the previous session's in-memory state.
type Engine struct {
	client Generator
	model  func() string

	mu      sync.Mutex
	state   State
	epoch   int
	source  models.Document
	excerpt string
	turns   []models.Turn
}

// NewEngine creates an idle engine. model resolves the generation model id
// at call time so a settings change applies to the next request.
func NewEngine(client Generator, model func() string) *Engine {
	return &Engine{client: client, model: model, state: StateIdle}
}

// Start loads a source document, extracts its grounding excerpt, and
// resets the conversation. Any previous session, including one with a
// call still in flight, is discarded; the stale call's result is dropped
// when it settles.
func (e *Engine) Start(doc models.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.state = StateSourceLoaded
	e.source = doc
	e.excerpt = normalize.ExtractText(doc.HTML, ExcerptLimit)
	e.turns = nil
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Source returns the active source document.
func (e *Engine) Source() (models.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		return models.Document{}, apperr.ErrNoSession
	}
	return e.source, nil
}

// Turns returns a copy of the current conversation.
func (e *Engine) Turns() []models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// flight is the session snapshot taken when a call begins. Everything the
// in-flight call reads comes from here, never from the live fields, so a
// Start landing mid-call cannot leak the new session's state into the old
// call or vice versa.
type flight struct {
	epoch int
	src   models.Document
	pctx  prompt.Context
}

// begin moves the session into an in-flight state and snapshots it. A
// second request while one is outstanding is rejected. locked, when
// non-nil, runs under the same critical section as the state transition;
// conversation mutations belong there so Start cannot interleave.
func (e *Engine) begin(next State, locked func()) (flight, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateIdle:
		return flight{}, apperr.ErrNoSession
	case StateGenerating, StateChatting:
		return flight{}, apperr.ErrBusy
	}
	e.state = next
	if locked != nil {
		locked()
	}
	return flight{
		epoch: e.epoch,
		src:   e.source,
		pctx:  prompt.Context{Subject: e.source.Subject, Excerpt: e.excerpt},
	}, nil
}

// settle returns to SourceLoaded unless the session was replaced while the
// call was in flight. locked runs under the same critical section, after
// the epoch check, so a discarded call never touches the new session.
func (e *Engine) settle(epoch int, locked func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		return false
	}
	e.state = StateSourceLoaded
	if locked != nil {
		locked()
	}
	return true
}

func style(src models.Document) normalize.Style {
	main := src.Color
	if main == "" {
		main = defaultMainColor
	}
	return normalize.Style{
		MainColor:   main,
		AccentColor: defaultAccentColor,
		FontSize:    derivedFontSize,
	}
}

func (e *Engine) maxTokens() int {
	if e.model() == anthropic.ModelEconomy {
		return 8000
	}
	return 12000
}

// Derive generates a new document from the source via the given mode. The
// result is parented to the source document and tagged with the mode.
func (e *Engine) Derive(ctx context.Context, spec prompt.Spec) (*models.Document, error) {
	fl, err := e.begin(StateGenerating, nil)
	if err != nil {
		return nil, err
	}

	system, user := prompt.Build(fl.pctx, spec)
	req := anthropic.Request{
		Model:     e.model(),
		MaxTokens: e.maxTokens(),
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	}

	raw, genErr := e.client.Generate(ctx, req)
	if !e.settle(fl.epoch, nil) {
		return nil, apperr.ErrNoSession
	}
	if genErr != nil {
		return nil, genErr
	}

	return buildDocument(raw, spec.Mode(), fl.src), nil
}

func buildDocument(raw string, mode models.Mode, src models.Document) *models.Document {
	st := style(src)
	html := normalize.Normalize(raw, st)
	title := normalize.ExtractTitle(html)
	if title == "Sans titre" {
		title = mode.Label()
	}
	return &models.Document{
		ID:       "fiche_" + uuid.NewString(),
		Title:    title,
		Subject:  src.Subject,
		Color:    st.MainColor,
		Date:     time.Now(),
		HTML:     html,
		FontSize: derivedFontSize,
		Type:     mode,
		ParentID: src.ID,
	}
}

// Chat appends the user's turn, awaits one generation over the full
// truncated conversation, and appends the reply. A failed call appends a
// visible error turn instead, so the log stays alternating and gap-free.
// The returned turn is always the responder's.
func (e *Engine) Chat(ctx context.Context, text string) (models.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Turn{}, fmt.Errorf("worksession: empty message")
	}

	var messages []anthropic.Message
	fl, err := e.begin(StateChatting, func() {
		e.turns = appendTruncated(e.turns, models.Turn{Role: models.RoleUser, Content: text})
		messages = make([]anthropic.Message, len(e.turns))
		for i, t := range e.turns {
			messages[i] = anthropic.Message{Role: string(t.Role), Content: t.Content}
		}
	})
	if err != nil {
		return models.Turn{}, err
	}

	req := anthropic.Request{
		Model:     e.model(),
		MaxTokens: chatMaxTokens,
		System:    prompt.ChatSystem(fl.pctx),
		Messages:  messages,
	}

	raw, genErr := e.client.Generate(ctx, req)

	reply := models.Turn{Role: models.RoleAssistant, Content: raw}
	if genErr != nil {
		reply.Content = "Désolé, une erreur est survenue. " + apperr.UserMessage(genErr)
	}

	if !e.settle(fl.epoch, func() {
		e.turns = appendTruncated(e.turns, reply)
	}) {
		return models.Turn{}, apperr.ErrNoSession
	}

	return reply, nil
}

// ChatToDocument converts the full conversation transcript into a new
// standalone document tagged with the chat mode and parented to the
// source.
func (e *Engine) ChatToDocument(ctx context.Context) (*models.Document, error) {
	var transcript string
	var empty bool
	fl, err := e.begin(StateGenerating, func() {
		empty = len(e.turns) == 0
		transcript = e.transcriptLocked()
	})
	if err != nil {
		return nil, err
	}
	if empty {
		e.settle(fl.epoch, nil)
		return nil, ErrEmptyConversation
	}

	system, user := prompt.Build(fl.pctx, prompt.ChatDocument{Transcript: transcript})
	req := anthropic.Request{
		Model:     e.model(),
		MaxTokens: e.maxTokens(),
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	}

	raw, genErr := e.client.Generate(ctx, req)
	if !e.settle(fl.epoch, nil) {
		return nil, apperr.ErrNoSession
	}
	if genErr != nil {
		return nil, genErr
	}

	return buildDocument(raw, models.ModeChat, fl.src), nil
}

func (e *Engine) transcriptLocked() string {
	var b strings.Builder
	for i, t := range e.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := "Élève"
		if t.Role == models.RoleAssistant {
			speaker = "Prof"
		}
		b.WriteString(speaker)
		b.WriteString(" : ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func appendTruncated(turns []models.Turn, t models.Turn) []models.Turn {
	turns = append(turns, t)
	if len(turns) > MaxTurns {
		turns = turns[len(turns)-MaxTurns:]
	}
	return turns
}

// RenderTurnHTML converts a chat turn's light markdown to HTML for
// display.
func RenderTurnHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("worksession: render markdown: %w", err)
	}
	return buf.String(), nil
}
