package mail

import (
	"context"
	"sync"
)

// Recorder is a Mailer that captures messages in memory. It backs tests that
// assert on notification fan-out and can simulate delivery failures.
type Recorder struct {
	mu       sync.Mutex
	messages []Message

	// FailWith, when set, is returned by Send instead of recording.
	FailWith error
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the message or returns the configured failure.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return r.FailWith
	}

	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the captured messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset discards captured messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
