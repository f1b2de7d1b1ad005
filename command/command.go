// Package command is the cooperative command runtime that autonomous routines
// run on. A Command is polled once per scheduler tick on the control
// goroutine: Initialize once, Execute every tick until IsFinished reports
// true, then End. Commands that share a Subsystem requirement never run at
// the same time; scheduling one interrupts the other.
package command

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Subsystem is a resource commands can require exclusively.
type Subsystem interface {
	Name() string
	// Periodic runs once per scheduler tick before any command executes.
	Periodic()
}

type Command interface {
	Initialize()
	Execute()
	IsFinished() bool
	End(interrupted bool)
	Requirements() []Subsystem
}

// Named is implemented by commands that carry a display name.
type Named interface {
	Name() string
}

// NameOf returns the command's name, or its type for unnamed commands.
func NameOf(c Command) string {
	if n, ok := c.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return typeName(c)
}

// Timer measures elapsed time on a clock.
type Timer struct {
	clk   clock.Clock
	start time.Time
}

func NewTimer(clk clock.Clock) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{clk: clk, start: clk.Now()}
}

func (t *Timer) Restart() { t.start = t.clk.Now() }

func (t *Timer) Elapsed() time.Duration { return t.clk.Since(t.start) }

func (t *Timer) HasElapsed(d time.Duration) bool { return t.Elapsed() >= d }

// Seconds converts float seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
