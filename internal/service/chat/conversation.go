package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatbox/internal/client/graphql"
	"github.com/zhouzirui/chatbox/internal/model/chat"
)

var (
	ErrEmptyInput         = errors.New("message is empty")
	ErrBusy               = errors.New("a message is already being sent")
	ErrConversationClosed = errors.New("conversation closed")
)

// Backend delivers a user message and returns the backend's reply.
type Backend interface {
	PostMessage(ctx context.Context, content string) (chat.Reply, error)
}

// Options tunes the request lifecycle of a Conversation.
type Options struct {
	// FailureText is appended as a bot message when a send fails.
	FailureText string
	// StrictReplies turns a reply without data.postMessage into a failure
	// instead of dropping it.
	StrictReplies bool
	Logger        zerolog.Logger
}

type phase int

const (
	phaseIdle phase = iota
	phasePending
)

// Conversation owns the message thread, the pending input and the busy gate
// of a single mounted chat widget. At most one request is in flight; the
// phase only moves idle -> pending in Submit and pending -> idle when the
// request resolves.
type Conversation struct {
	backend Backend
	opts    Options

	mu           sync.Mutex
	messages     []chat.Message
	pendingInput string
	phase        phase
	revision     uint64
	closed       bool

	subscribers map[uint64]chan chat.Snapshot
	nextSubID   uint64

	inflight sync.WaitGroup
}

// NewConversation creates an empty conversation.
func NewConversation(backend Backend, opts Options) *Conversation {
	return &Conversation{
		backend:     backend,
		opts:        opts,
		messages:    make([]chat.Message, 0, 16),
		subscribers: make(map[uint64]chan chat.Snapshot),
	}
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Busy reports whether a request is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == phasePending
}

// SetInput records the text currently typed into the widget.
func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.pendingInput == text {
		return
	}
	c.pendingInput = text
	c.publishLocked()
}

// SubmitPending submits the current pending input. The input is read and
// submitted under one lock, so a concurrent SetInput either lands before it
// and is sent, or after it and is kept as the next draft.
func (c *Conversation) SubmitPending() error {
	c.mu.Lock()
	err := c.submitLocked(c.pendingInput)
	c.mu.Unlock()
	return err
}

// Submit appends raw as a user message and sends it to the backend in the
// background. Blank input, a busy conversation or a closed one leave the
// state untouched and return the matching error. The outcome of the send is
// only observable through snapshots.
func (c *Conversation) Submit(raw string) error {
	c.mu.Lock()
	err := c.submitLocked(raw)
	c.mu.Unlock()
	return err
}

func (c *Conversation) submitLocked(raw string) error {
	switch {
	case c.closed:
		return ErrConversationClosed
	case strings.TrimSpace(raw) == "":
		return ErrEmptyInput
	case c.phase != phaseIdle:
		return ErrBusy
	}

	c.messages = append(c.messages, chat.Message{Text: raw, Sender: chat.SenderUser})
	c.publishLocked()

	c.pendingInput = ""
	c.phase = phasePending
	c.publishLocked()

	c.inflight.Add(1)
	go c.run(raw)
	return nil
}

// Wait blocks until no request is in flight.
func (c *Conversation) Wait() {
	c.inflight.Wait()
}

func (c *Conversation) run(content string) {
	defer c.inflight.Done()

	reply, err := c.backend.PostMessage(context.Background(), content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if msg, ok := c.resolve(reply, err); ok {
		c.messages = append(c.messages, msg)
		c.publishLocked()
	}

	c.phase = phaseIdle
	c.publishLocked()
}

// resolve maps a backend outcome to the message to append, if any.
func (c *Conversation) resolve(reply chat.Reply, err error) (chat.Message, bool) {
	switch {
	case err == nil:
		return reply.Message(), true
	case errors.Is(err, graphql.ErrMalformedReply) && !c.opts.StrictReplies:
		c.opts.Logger.Warn().Err(err).Msg("dropping reply without postMessage payload")
		return chat.Message{}, false
	case graphql.IsApplicationError(err):
		// Server-provided messages stay in the logs.
		c.opts.Logger.Warn().Err(err).Msg("backend rejected message")
	default:
		c.opts.Logger.Error().Err(err).Msg("failed to fetch bot response")
	}
	return chat.Message{Text: c.opts.FailureText, Sender: chat.SenderBot}, true
}

// Subscribe registers a listener that receives a snapshot after every
// mutation. Undelivered snapshots are replaced by newer ones, so a slow
// listener only ever sees the latest state. The returned func unsubscribes.
func (c *Conversation) Subscribe() (<-chan chat.Snapshot, func()) {
	ch := make(chan chat.Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close waits for any in-flight request, then discards the conversation and
// closes every subscriber channel.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.inflight.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	c.messages = nil
	c.pendingInput = ""
}

func (c *Conversation) snapshotLocked() chat.Snapshot {
	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	return chat.Snapshot{
		Messages:     messages,
		PendingInput: c.pendingInput,
		Busy:         c.phase == phasePending,
		Revision:     c.revision,
	}
}

func (c *Conversation) publishLocked() {
	c.revision++
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
