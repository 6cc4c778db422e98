package gate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// PromptKind tells a client which surface to show.
type PromptKind uint8

const (
	// PromptSignIn asks the user to sign in.
	PromptSignIn PromptKind = iota
	// PromptRole explains that the signed-in user lacks a required role.
	PromptRole
	// PromptRetry reports that the session could not be confirmed.
	PromptRetry
	// PromptClosed withdraws an earlier prompt with the same ID.
	PromptClosed
)

func (k PromptKind) String() string {
	switch k {
	case PromptSignIn:
		return "sign_in"
	case PromptRole:
		return "role"
	case PromptRetry:
		return "retry"
	case PromptClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k PromptKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Prompt describes what a client should show while a gate awaits authentication.
type Prompt struct {
	ID            string     `json:"id"`
	Gate          string     `json:"gate"`
	Kind          PromptKind `json:"kind"`
	Reason        string     `json:"reason,omitempty"`
	Action        string     `json:"action,omitempty"`
	RequiredRoles []string   `json:"required_roles,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PromptSink receives prompt descriptors.
type PromptSink interface {
	Publish(ctx context.Context, p Prompt)
}

// NoOpSink drops prompts.
type NoOpSink struct{}

func (NoOpSink) Publish(context.Context, Prompt) {}

// FuncSink adapts a function to [PromptSink].
type FuncSink func(ctx context.Context, p Prompt)

func (f FuncSink) Publish(ctx context.Context, p Prompt) {
	if f != nil {
		f(ctx, p)
	}
}

// ChannelSink writes prompts into a buffered channel.
type ChannelSink struct {
	prompts chan Prompt
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		prompts: make(chan Prompt, buffer),
	}
}

func (s *ChannelSink) Publish(ctx context.Context, p Prompt) {
	select {
	case s.prompts <- p:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Prompts() <-chan Prompt {
	return s.prompts
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Publish(ctx context.Context, p Prompt) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// DispatcherConfig controls asynchronous prompt delivery.
type DispatcherConfig struct {
	BufferSize int
	// DropIfFull drops prompts instead of blocking the gate when the buffer is full.
	DropIfFull bool
}

// Dispatcher delivers prompts to a sink from a single background goroutine, so a slow
// sink never holds a gate in Checking. It implements [PromptSink].
type Dispatcher struct {
	cfg       DispatcherConfig
	sink      PromptSink
	ch        chan Prompt
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. A nil sink drops everything.
func NewDispatcher(cfg DispatcherConfig, sink PromptSink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Prompt, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case p := <-d.ch:
			d.sink.Publish(context.Background(), p)
		case <-d.done:
			for {
				select {
				case p := <-d.ch:
					d.sink.Publish(context.Background(), p)
				default:
					return
				}
			}
		}
	}
}

// Publish queues p. After Close it is a no-op.
func (d *Dispatcher) Publish(ctx context.Context, p Prompt) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- p:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- p:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close drains queued prompts and stops the dispatcher. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of prompts dropped because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
