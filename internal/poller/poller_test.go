package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCheck struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (CheckResult, error)
}

func (s *scriptedCheck) check(ctx context.Context, resourceID string) (CheckResult, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call)
}

func (s *scriptedCheck) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func statusSequence(statuses ...string) *scriptedCheck {
	return &scriptedCheck{fn: func(call int) (CheckResult, error) {
		idx := call - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		return CheckResult{Status: statuses[idx], Payload: statuses[idx]}, nil
	}}
}

func classifyTest(status string) Class {
	switch status {
	case "paid":
		return ClassResolved
	case "failed":
		return ClassFailed
	default:
		return ClassPending
	}
}

// drain collects every event until the channel closes.
func drain(t *testing.T, s *Session) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatal("session did not finish in time")
		}
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestSessionResolvesOnTerminalStatus(t *testing.T) {
	check := statusSequence("pending", "pending", "paid")

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	require.Equal(t, []EventType{EventPending, EventPending, EventResolved, EventStopped}, eventTypes(events))
	assert.Equal(t, "paid", events[2].Payload)
	assert.Equal(t, 3, check.callCount())

	// No checks may be issued after the terminal event.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, check.callCount())
}

func TestSessionStopsOnFailedStatus(t *testing.T) {
	check := statusSequence("pending", "failed")

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	require.Equal(t, []EventType{EventPending, EventFailed, EventStopped}, eventTypes(events))
	assert.Equal(t, 2, check.callCount())
}

func TestTimeoutBeatsLateTerminalResult(t *testing.T) {
	// The check only answers well after the deadline; the timeout must stand
	// and the late terminal result must be discarded.
	check := &scriptedCheck{fn: func(call int) (CheckResult, error) {
		time.Sleep(150 * time.Millisecond)
		return CheckResult{Status: "paid"}, nil
	}}

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Timeout:  40 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	types := eventTypes(events)
	require.Contains(t, types, EventTimedOut)
	assert.NotContains(t, types, EventResolved)
	assert.Equal(t, EventStopped, types[len(types)-1])
}

func TestTerminalResultBeatsPendingTimeout(t *testing.T) {
	// Terminal on the second check, well before the deadline. The deadline
	// timer must be cleared: no timeout event may follow.
	check := statusSequence("pending", "paid")

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Timeout:  80 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	types := eventTypes(events)
	require.Contains(t, types, EventResolved)
	assert.NotContains(t, types, EventTimedOut)

	// Past the original deadline; the session is gone and stays gone.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, check.callCount())
}

func TestTransientErrorSkipsCycleWithoutEvent(t *testing.T) {
	check := &scriptedCheck{fn: func(call int) (CheckResult, error) {
		switch call {
		case 1:
			return CheckResult{Status: "pending"}, nil
		case 2:
			return CheckResult{}, errors.New("connection refused")
		default:
			return CheckResult{Status: "paid"}, nil
		}
	}}

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
		Classify: classifyTest,
	})

	events := drain(t, session)
	// The transient cycle produces no event at all; polling continues.
	require.Equal(t, []EventType{EventPending, EventResolved, EventStopped}, eventTypes(events))
	assert.Equal(t, 3, check.callCount())
}

func TestFatalErrorStopsSessionImmediately(t *testing.T) {
	fatal := &FatalError{Err: errors.New("401 unauthorized")}
	check := &scriptedCheck{fn: func(call int) (CheckResult, error) {
		return CheckResult{}, fatal
	}}

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	require.Equal(t, []EventType{EventFatal, EventStopped}, eventTypes(events))
	assert.ErrorIs(t, events[0].Err, fatal)
	assert.Equal(t, 1, check.callCount())
}

func TestStalledConsumerStillReceivesOutcome(t *testing.T) {
	// A consumer that stops draining may lose pending observations, but the
	// terminal event and the final stopped event must survive the backlog.
	check := &scriptedCheck{fn: func(call int) (CheckResult, error) {
		if call <= 25 {
			return CheckResult{Status: "pending"}, nil
		}
		return CheckResult{Status: "paid"}, nil
	}}

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: time.Millisecond,
		Classify: classifyTest,
	})

	// Let the session overrun the event buffer before reading anything.
	time.Sleep(150 * time.Millisecond)

	events := drain(t, session)
	types := eventTypes(events)
	require.GreaterOrEqual(t, len(types), 2)
	assert.Equal(t, EventResolved, types[len(types)-2])
	assert.Equal(t, EventStopped, types[len(types)-1])
}

func TestCancelStopsFurtherChecks(t *testing.T) {
	firstCheck := make(chan struct{}, 1)
	check := &scriptedCheck{fn: func(call int) (CheckResult, error) {
		select {
		case firstCheck <- struct{}{}:
		default:
		}
		return CheckResult{Status: "pending"}, nil
	}}

	session := Start(context.Background(), "act_2", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})

	<-firstCheck
	session.Cancel()
	<-session.Done()

	calls := check.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, check.callCount())
}

func TestCancelAfterTerminalIsNoOp(t *testing.T) {
	check := statusSequence("paid")

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)

	// Terminal already fired; cancelling now must not panic nor produce a
	// second stopped event.
	session.Cancel()
	session.Cancel()

	stopped := 0
	for _, event := range events {
		if event.Type == EventStopped {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped)
}

func TestAttemptsAreMonotonic(t *testing.T) {
	check := statusSequence("pending", "pending", "paid")

	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 5 * time.Millisecond,
		Classify: classifyTest,
	})

	events := drain(t, session)
	last := 0
	for _, event := range events {
		if event.Type == EventStopped {
			continue
		}
		assert.Greater(t, event.Attempt, last-1)
		if event.Attempt > last {
			last = event.Attempt
		}
	}
	assert.Equal(t, 3, session.Attempts())
}

func TestDeadlineIsExposedForCountdowns(t *testing.T) {
	check := statusSequence("paid")

	before := time.Now()
	session := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Timeout:  2 * time.Minute,
		Classify: classifyTest,
	})
	drain(t, session)

	deadline, ok := session.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, before.Add(2*time.Minute), deadline, time.Second)

	noDeadline := Start(context.Background(), "dep_1", check.check, Options{
		Interval: 10 * time.Millisecond,
		Classify: classifyTest,
	})
	drain(t, noDeadline)

	_, ok = noDeadline.Deadline()
	assert.False(t, ok)
}
