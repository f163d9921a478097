// Package query runs the question lifecycle: one outstanding question at a
// time, answers and failures recorded in the transcript.
package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"docchat/internal/models"
	"docchat/internal/transcript"
)

// Asker is the question-answering backend.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Result is the settlement of one submitted question: an answer or a failure.
type Result struct {
	Question string
	Answer   string
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// ErrTimeout is reported when the backend does not answer within the configured timeout.
var ErrTimeout = errors.New("question timed out")

// Coordinator serializes questions through a Session and records them in a Store.
type Coordinator struct {
	session    *Session
	transcript *transcript.Store
	asker      Asker
	timeout    time.Duration

	wg sync.WaitGroup
}

func NewCoordinator(store *transcript.Store, session *Session, asker Asker, timeout time.Duration) *Coordinator {
	if session == nil {
		session = NewSession()
	}
	return &Coordinator{
		session:    session,
		transcript: store,
		asker:      asker,
		timeout:    timeout,
	}
}

func (c *Coordinator) Session() *Session {
	return c.session
}

// Submit sends question to the backend unless it is blank or another question
// is in flight; rejected submissions return ok=false and change nothing.
// The user turn is in the transcript and the draft is cleared before Submit
// returns. The channel yields the Result once the transcript and the
// in-flight flag reflect the settlement.
func (c *Coordinator) Submit(ctx context.Context, question string) (<-chan Result, bool) {
	if !c.session.tryBegin(question) {
		return nil, false
	}
	c.transcript.Append(models.Message{Role: models.RoleUser, Content: question})

	done := make(chan Result, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.ask(ctx, question)
		c.settle(res)
		done <- res
	}()
	return done, true
}

// Wait blocks until every submitted question has settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) ask(ctx context.Context, question string) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	answer, err := c.asker.Ask(ctx, question)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, c.timeout, err)
		}
		return Result{Question: question, Err: err}
	}
	if answer == "" {
		return Result{Question: question, Err: errors.New("backend returned an empty answer")}
	}
	return Result{Question: question, Answer: answer}
}

func (c *Coordinator) settle(res Result) {
	defer c.session.settle()
	if res.OK() {
		c.transcript.Append(models.Message{Role: models.RoleAssistant, Content: res.Answer})
		return
	}
	log.Printf("question failed: %v", res.Err)
	c.transcript.Append(models.Message{
		Role:    models.RoleAssistant,
		Content: failureText(res.Err),
		Failed:  true,
	})
}

func failureText(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "The answer took too long and the request was abandoned. Please try again."
	}
	return fmt.Sprintf("Sorry, the question could not be answered: %v", err)
}
