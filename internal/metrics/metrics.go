// Package metrics holds process-wide feed counters for diagnostics.
package metrics

import "sync/atomic"

var (
	eventsPublished  atomic.Int64
	eventsDropped    atomic.Int64
	sessionsOpened   atomic.Int64
	sessionsActive   atomic.Int64
	replaysServed    atomic.Int64
	replaysFailed    atomic.Int64
	controlMalformed atomic.Int64
)

func IncPublished()        { eventsPublished.Add(1) }
func IncDropped()          { eventsDropped.Add(1) }
func IncReplayServed()     { replaysServed.Add(1) }
func IncReplayFailed()     { replaysFailed.Add(1) }
func IncControlMalformed() { controlMalformed.Add(1) }

func SessionOpened() {
	sessionsOpened.Add(1)
	sessionsActive.Add(1)
}

func SessionClosed() { sessionsActive.Add(-1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"events_published":  eventsPublished.Load(),
		"events_dropped":    eventsDropped.Load(),
		"sessions_opened":   sessionsOpened.Load(),
		"sessions_active":   sessionsActive.Load(),
		"replays_served":    replaysServed.Load(),
		"replays_failed":    replaysFailed.Load(),
		"control_malformed": controlMalformed.Load(),
	}
}
