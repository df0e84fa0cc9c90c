package match

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot timers. Callbacks run on their own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler is backed by time.AfterFunc.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type timerKind int

const (
	timerDeadline timerKind = iota
	timerAdvance
	timerVote
	timerCleanup
	timerRematch
)

func (k timerKind) String() string {
	switch k {
	case timerDeadline:
		return "deadline"
	case timerAdvance:
		return "advance"
	case timerVote:
		return "vote"
	case timerCleanup:
		return "cleanup"
	case timerRematch:
		return "rematch"
	}
	return "unknown"
}
