package command

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// BufferedSender collects messages in memory, for hosts that reply
// synchronously such as the webhook
type BufferedSender struct {
	mu       sync.Mutex
	messages []string
}

// SendText appends text
func (b *BufferedSender) SendText(_ context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, text)
	return nil
}

// Messages returns a copy of everything sent so far
func (b *BufferedSender) Messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.messages))
	copy(out, b.messages)
	return out
}

// WriterSender writes each message followed by a newline
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSender creates a sender writing to w
func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

// SendText writes text to the underlying writer
func (s *WriterSender) SendText(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.w, text); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
