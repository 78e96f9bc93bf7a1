package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ConsoleNotifier writes messages to a writer, for dry runs without chat credentials.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Name() string { return "console" }

func (c *ConsoleNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s\n\n", text)
	return err
}
