// Package eventloop serializes pipeline runs. Every trigger source posts into
// one buffered channel; Run is its only consumer.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screen-translate/src/session"
	"screen-translate/src/worker"
)

// TriggerKind says what a trigger asks the loop to do.
type TriggerKind int

const (
	Capture TriggerKind = iota
	Overlay
	History
)

func (k TriggerKind) String() string {
	switch k {
	case Capture:
		return "capture"
	case Overlay:
		return "overlay"
	case History:
		return "history"
	default:
		return "unknown"
	}
}

var ErrBusy = errors.New("Busy, please retry")

const (
	triggerBuffer = 4
	maxPending    = 4
)

// Trigger is one request posted to the loop.
type Trigger struct {
	Kind TriggerKind
	// Origin names the source for logs and notifications ("button", "hotkey", "run-once").
	Origin string
	// Result optionally receives the translation of a capture run.
	Result session.ResultTarget
	// Done is closed after the trigger has been fully handled, if set.
	Done chan struct{}
}

// Source produces triggers, e.g. a global hotkey or the run-once server.
type Source interface {
	Start(ctx context.Context, post func(Trigger)) error
}

// Handlers are the loop's side effects. Capture and Overlay run on the worker;
// History and the result hooks run on the loop goroutine.
type Handlers struct {
	Capture func(ctx context.Context, t Trigger) session.Outcome
	Overlay func(ctx context.Context) error
	History func()
	// OnResult is called on the loop after each capture run.
	OnResult func(t Trigger, o session.Outcome)
	// OnBusy is called with true when a job starts and false when the loop goes idle.
	OnBusy func(busy bool)
}

// Loop is the single-threaded coordinator for button, hotkey and run-once flows.
type Loop struct {
	handlers Handlers
	pool     *worker.Pool
	triggers chan Trigger
	results  chan result
	done     chan struct{}
	pending  []Trigger
	busy     bool
	deadline time.Duration
}

type result struct {
	trigger Trigger
	outcome session.Outcome
	err     error
	cancel  context.CancelFunc
}

// New creates a loop. A non-positive deadline falls back to 20s.
func New(h Handlers, deadline time.Duration) *Loop {
	if deadline <= 0 {
		deadline = session.DefaultDeadline
	}
	return &Loop{
		handlers: h,
		pool:     worker.New(1),
		triggers: make(chan Trigger, triggerBuffer),
		results:  make(chan result, 1),
		done:     make(chan struct{}),
		deadline: deadline,
	}
}

// Post enqueues a trigger without blocking. It reports false when the buffer
// is full and the trigger was dropped. Safe for concurrent use.
func (l *Loop) Post(t Trigger) bool {
	select {
	case l.triggers <- t:
		return true
	default:
		log.Printf("eventloop: dropped %s trigger from %s, buffer full", t.Kind, t.Origin)
		reject(t, ErrBusy)
		return false
	}
}

func (l *Loop) post(t Trigger) { l.Post(t) }

// Run starts the sources and processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, sources ...Source) error {
	defer l.pool.Close()
	defer close(l.done)

	for _, src := range sources {
		if err := src.Start(ctx, l.post); err != nil {
			log.Printf("eventloop: trigger source %T failed to start: %v", src, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range l.pending {
				reject(t, ctx.Err())
			}
			l.pending = nil
			return ctx.Err()
		case t := <-l.triggers:
			l.handleTrigger(ctx, t)
		case res := <-l.results:
			l.handleResult(res)
			l.startNext(ctx)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context, t Trigger) {
	log.Printf("eventloop: %s trigger from %s", t.Kind, t.Origin)
	if t.Kind == History {
		if l.handlers.History != nil {
			l.handlers.History()
		}
		finish(t)
		return
	}
	if l.busy {
		if len(l.pending) >= maxPending {
			log.Printf("eventloop: busy, dropping %s trigger from %s", t.Kind, t.Origin)
			reject(t, ErrBusy)
			return
		}
		l.pending = append(l.pending, t)
		return
	}
	l.start(ctx, t)
}

func (l *Loop) startNext(ctx context.Context) {
	for !l.busy && len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		l.start(ctx, t)
	}
}

func (l *Loop) start(ctx context.Context, t Trigger) {
	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, func(jobCtx context.Context) {
		res := result{trigger: t, cancel: cancel}
		// report a result even after a panic so the loop can leave the busy state
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("run panicked: %v", r)
				log.Printf("eventloop: %s trigger from %s: %v", t.Kind, t.Origin, err)
				res.err = err
				res.outcome.Err = err
			}
			select {
			case l.results <- res:
			case <-l.done:
				cancel()
			}
		}()
		switch t.Kind {
		case Capture:
			if l.handlers.Capture != nil {
				res.outcome = l.handlers.Capture(jobCtx, t)
			}
		case Overlay:
			if l.handlers.Overlay != nil {
				res.err = l.handlers.Overlay(jobCtx)
			}
		}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		reject(t, ErrBusy)
	}
}

func (l *Loop) handleResult(res result) {
	defer finish(res.trigger)
	if res.cancel != nil {
		defer res.cancel()
	}
	defer l.setBusy(false)

	switch res.trigger.Kind {
	case Capture:
		o := res.outcome
		log.Printf("eventloop: run %s from %s finished in %v, failure=%v", o.RunID, res.trigger.Origin, o.Duration, o.Failure())
		if res.trigger.Result != nil {
			if err := session.Deliver(res.trigger.Result, o); err != nil {
				log.Printf("eventloop: delivery to %s failed: %v", res.trigger.Origin, err)
			}
		}
		if l.handlers.OnResult != nil {
			l.handlers.OnResult(res.trigger, o)
		}
	case Overlay:
		if res.err != nil {
			log.Printf("eventloop: overlay failed: %v", res.err)
		}
	}
}

func (l *Loop) setBusy(b bool) {
	if l.busy == b {
		return
	}
	l.busy = b
	if l.handlers.OnBusy != nil {
		l.handlers.OnBusy(b)
	}
}

// Deadline returns the per-run deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }

func reject(t Trigger, err error) {
	if t.Result != nil {
		_ = t.Result.OnFailure(err)
	}
	finish(t)
}

func finish(t Trigger) {
	if t.Done != nil {
		close(t.Done)
	}
}
