// Package progress schedules the fixed-offset status messages shown while
// a generation call is in flight. Every pending timer is cancelled the
// instant the call settles; a message firing after settlement is a defect.
package progress

import (
	"sync"
	"time"
)

// Step is one progress message and its offset from generation start.
type Step struct {
	Text  string
	Delay time.Duration
}

// Steps are the fixed progress messages.
var Steps = []Step{
	{Text: "Analyse des photos...", Delay: 0},
	{Text: "Transcription du contenu...", Delay: 3 * time.Second},
	{Text: "Génération de la fiche...", Delay: 7 * time.Second},
	{Text: "Mise en page finale...", Delay: 12 * time.Second},
}

// Publisher receives progress messages as they fire.
type Publisher interface {
	PublishProgress(message string)
}

// Runner owns the pending timers of one generation call.
type Runner struct {
	mu      sync.Mutex
	timers  []*time.Timer
	stopped bool
}

// Start publishes the first message immediately and schedules the rest.
// The returned Runner must be stopped when the call settles.
func Start(pub Publisher) *Runner {
	r := &Runner{}
	for _, step := range Steps {
		if step.Delay == 0 {
			pub.PublishProgress(step.Text)
			continue
		}
		text := step.Text
		r.timers = append(r.timers, time.AfterFunc(step.Delay, func() {
			r.mu.Lock()
			late := r.stopped
			r.mu.Unlock()
			if !late {
				pub.PublishProgress(text)
			}
		}))
	}
	return r
}

// Stop cancels every pending timer. Safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	for _, t := range r.timers {
		t.Stop()
	}
}
