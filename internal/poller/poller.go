// Package poller drives repeated status checks against a single remote
// resource until the status becomes terminal, a deadline passes, or the
// caller cancels.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// Class is the classification of one status value.
type Class int

const (
	ClassPending Class = iota
	ClassResolved
	ClassFailed
)

// ClassifyFunc maps a raw status value to its class.
type ClassifyFunc func(status string) Class

// CheckResult is the outcome of a single successful check.
type CheckResult struct {
	Status  string
	Payload any
}

// CheckFunc performs one status check. A returned error wrapped in
// *FatalError ends the session; any other error is transient and only skips
// the cycle.
type CheckFunc func(ctx context.Context, resourceID string) (CheckResult, error)

// FatalError marks a check failure that cannot be retried.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// EventType identifies a session event.
type EventType string

const (
	EventPending  EventType = "pending"
	EventResolved EventType = "resolved"
	EventFailed   EventType = "failed"
	EventTimedOut EventType = "timed_out"
	EventFatal    EventType = "fatal"
	// EventStopped is emitted exactly once when the session ends, for any
	// reason, and is always the last event before the channel closes.
	EventStopped EventType = "stopped"
)

// Event is one session observation.
type Event struct {
	Type    EventType
	Payload any
	Err     error
	Attempt int
}

// Options configures a session.
type Options struct {
	// Interval is the fixed delay between the completion of one check and
	// the start of the next.
	Interval time.Duration
	// Timeout bounds the whole session, measured from Start. Zero means no
	// deadline.
	Timeout time.Duration
	// Classify maps each check's status to pending/resolved/failed.
	Classify ClassifyFunc
}

// Session is a single in-flight polling run. All mutable session state is
// owned by the session goroutine; callers interact through Events and Cancel.
type Session struct {
	id         string
	resourceID string

	events     chan Event
	done       chan struct{}
	cancel     context.CancelFunc
	cancelOnce sync.Once

	attempts atomic.Int64

	deadline    time.Time
	hasDeadline bool
}

type checkOutcome struct {
	result CheckResult
	err    error
}

// Start begins polling resourceID with check. The first check is issued
// immediately. The returned session's event channel ends with EventStopped.
func Start(ctx context.Context, resourceID string, check CheckFunc, opts Options) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:         xid.New().String(),
		resourceID: resourceID,
		events:     make(chan Event, 16),
		done:       make(chan struct{}),
		cancel:     cancel,
	}

	if opts.Timeout > 0 {
		s.deadline = time.Now().Add(opts.Timeout)
		s.hasDeadline = true
	}

	go s.run(ctx, check, opts)

	return s
}

// ID returns the session identifier used in log fields.
func (s *Session) ID() string { return s.id }

// Events returns the session event stream. Consumers must drain it until it
// closes; the channel is buffered so short consumer stalls do not block the
// session. Terminal events and the final stopped event are never dropped.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Attempts returns the number of checks issued so far.
func (s *Session) Attempts() int { return int(s.attempts.Load()) }

// Deadline returns the authoritative session deadline, if one was set. It is
// computed once at Start; countdown displays derive from it rather than
// keeping their own clock.
func (s *Session) Deadline() (time.Time, bool) { return s.deadline, s.hasDeadline }

// Cancel stops the session. It is idempotent, and a no-op after a terminal
// event has already fired. A check in flight at cancellation completes but
// its result is discarded.
func (s *Session) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

func (s *Session) run(ctx context.Context, check CheckFunc, opts Options) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	// One timer for the whole session. Three independently-drifting timers
	// (interval, deadline, countdown) is exactly the failure mode this
	// session exists to replace.
	var deadlineC <-chan time.Time
	if s.hasDeadline {
		timer := time.NewTimer(time.Until(s.deadline))
		defer timer.Stop()
		deadlineC = timer.C
	}

	logger := log.With().
		Str("session_id", s.id).
		Str("resource_id", s.resourceID).
		Logger()

	for {
		attempt := int(s.attempts.Add(1))

		resultC := make(chan checkOutcome, 1)
		go func() {
			result, err := check(ctx, s.resourceID)
			resultC <- checkOutcome{result: result, err: err}
		}()

		select {
		case <-ctx.Done():
			// Cancelled while a check is in flight. The late result is
			// discarded; it must not revive the session.
			s.send(Event{Type: EventStopped, Attempt: attempt})
			return

		case <-deadlineC:
			// The deadline beat the in-flight check: the timeout stands even
			// if a terminal status arrives a moment later.
			logger.Info().Int("attempt", attempt).Msg("polling session timed out")
			s.send(Event{Type: EventTimedOut, Attempt: attempt})
			s.send(Event{Type: EventStopped, Attempt: attempt})
			return

		case out := <-resultC:
			if out.err != nil {
				if IsFatal(out.err) {
					logger.Error().Err(out.err).Int("attempt", attempt).Msg("fatal error, stopping polling session")
					s.send(Event{Type: EventFatal, Err: out.err, Attempt: attempt})
					s.send(Event{Type: EventStopped, Attempt: attempt})
					return
				}
				// Transient: skip the cycle. No event, and the deadline
				// clock is unaffected.
				logger.Warn().Err(out.err).Int("attempt", attempt).Msg("transient error checking status")
				break
			}

			switch opts.Classify(out.result.Status) {
			case ClassResolved:
				s.send(Event{Type: EventResolved, Payload: out.result.Payload, Attempt: attempt})
				s.send(Event{Type: EventStopped, Attempt: attempt})
				return
			case ClassFailed:
				s.send(Event{Type: EventFailed, Payload: out.result.Payload, Attempt: attempt})
				s.send(Event{Type: EventStopped, Attempt: attempt})
				return
			default:
				s.emit(Event{Type: EventPending, Payload: out.result.Payload, Attempt: attempt})
			}
		}

		// Fixed delay: the next check starts Interval after this one
		// completed, so at most one request is ever in flight.
		select {
		case <-ctx.Done():
			s.send(Event{Type: EventStopped, Attempt: attempt})
			return
		case <-deadlineC:
			logger.Info().Int("attempt", attempt).Msg("polling session timed out")
			s.send(Event{Type: EventTimedOut, Attempt: attempt})
			s.send(Event{Type: EventStopped, Attempt: attempt})
			return
		case <-time.After(opts.Interval):
		}
	}
}

// emit never blocks the session goroutine. Only pending observations go
// through it: a consumer that stopped draining forfeits progress updates but
// never the outcome.
func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// send delivers terminal and stopped events. The session goroutine is exiting
// at this point, so blocking until the consumer catches up is safe and keeps
// the channel's contract: it always ends with the terminal event and one
// stopped event.
func (s *Session) send(e Event) {
	s.events <- e
}
