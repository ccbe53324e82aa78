package progress

import (
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *recordingPublisher) PublishProgress(message string) {
	p.mu.Lock()
	p.messages = append(p.messages, message)
	p.mu.Unlock()
}

func (p *recordingPublisher) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

func TestStartPublishesFirstStepImmediately(t *testing.T) {
	pub := &recordingPublisher{}
	r := Start(pub)
	defer r.Stop()

	got := pub.snapshot()
	if len(got) != 1 || got[0] != "Analyse des photos..." {
		t.Errorf("messages = %v", got)
	}
}

func TestStopCancelsPendingSteps(t *testing.T) {
	pub := &recordingPublisher{}
	r := Start(pub)
	r.Stop()

	// The remaining steps are scheduled seconds out; after Stop none may
	// fire even if a timer was already running.
	time.Sleep(50 * time.Millisecond)
	if got := pub.snapshot(); len(got) != 1 {
		t.Errorf("messages after stop = %v", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	pub := &recordingPublisher{}
	r := Start(pub)
	r.Stop()
	r.Stop()
}

func TestStepsOrderAndOffsets(t *testing.T) {
	if len(Steps) != 4 {
		t.Fatalf("steps = %d", len(Steps))
	}
	if Steps[0].Delay != 0 {
		t.Error("first step must be immediate")
	}
	for i := 1; i < len(Steps); i++ {
		if Steps[i].Delay <= Steps[i-1].Delay {
			t.Errorf("step %d delay %v not increasing", i, Steps[i].Delay)
		}
	}
	if Steps[3].Text != "Mise en page finale..." {
		t.Errorf("last step = %q", Steps[3].Text)
	}
}
