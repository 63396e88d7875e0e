package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder keeps every message in memory. Used in tests and as the in-process
// fallback when no broker is configured.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// OfKind filters recorded messages by kind.
func (r *Recorder) OfKind(kind Kind) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// LogNotifier writes notifications to the process log only. Stands in for a
// real channel in environments without a broker.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Logger.Info("notification",
		"kind", msg.Kind,
		"recipient", msg.Recipient,
		"params", msg.Params,
	)
	return nil
}
