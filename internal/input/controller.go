// Package input interprets draft edits and key presses for the question box.
package input

import (
	"context"

	"docchat/internal/query"
)

type Key int

const (
	KeyOther Key = iota
	KeyEnter
)

func (k Key) String() string {
	if k == KeyEnter {
		return "enter"
	}
	return "other"
}

// Submitter is satisfied by *query.Coordinator.
type Submitter interface {
	Submit(ctx context.Context, question string) (<-chan query.Result, bool)
}

// KeyResult tells the caller what a key press did.
type KeyResult struct {
	// Suppress is true when the key's default effect (inserting a newline) must not happen.
	Suppress bool
	// Pending is non-nil when the key started a submission.
	Pending <-chan query.Result
}

// Controller owns the draft held in a query.Session.
type Controller struct {
	ctx       context.Context
	session   *query.Session
	submitter Submitter
}

func NewController(ctx context.Context, session *query.Session, submitter Submitter) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Controller{ctx: ctx, session: session, submitter: submitter}
}

// OnKeyEvent submits the current draft on Enter without Shift. Every other
// key, Shift+Enter included, is left to ordinary text editing.
func (c *Controller) OnKeyEvent(key Key, shiftHeld bool) KeyResult {
	if key != KeyEnter || shiftHeld {
		return KeyResult{}
	}
	pending, ok := c.submitter.Submit(c.ctx, c.session.Draft())
	if !ok {
		return KeyResult{Suppress: true}
	}
	return KeyResult{Suppress: true, Pending: pending}
}

// OnDraftChange replaces the draft verbatim.
func (c *Controller) OnDraftChange(text string) {
	c.session.SetDraft(text)
}

func (c *Controller) Draft() string {
	return c.session.Draft()
}

// Busy reports whether a question is waiting on the backend.
func (c *Controller) Busy() bool {
	return c.session.InFlight()
}
