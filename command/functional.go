package command

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"swerve-auto-core/utils"
)

// Functional is a command assembled from callbacks. Nil callbacks are no-ops;
// a nil isFinished never finishes.
type Functional struct {
	name       string
	onInit     func()
	onExecute  func()
	onEnd      func(interrupted bool)
	isFinished func() bool
	reqs       []Subsystem
}

func NewFunctional(name string, onInit, onExecute func(), onEnd func(bool), isFinished func() bool, reqs ...Subsystem) *Functional {
	return &Functional{
		name:       name,
		onInit:     onInit,
		onExecute:  onExecute,
		onEnd:      onEnd,
		isFinished: isFinished,
		reqs:       reqs,
	}
}

func (f *Functional) Name() string { return f.name }

func (f *Functional) Initialize() {
	if f.onInit != nil {
		f.onInit()
	}
}

func (f *Functional) Execute() {
	if f.onExecute != nil {
		f.onExecute()
	}
}

func (f *Functional) IsFinished() bool {
	return f.isFinished != nil && f.isFinished()
}

func (f *Functional) End(interrupted bool) {
	if f.onEnd != nil {
		f.onEnd(interrupted)
	}
}

func (f *Functional) Requirements() []Subsystem { return f.reqs }

func finished() bool { return true }

// Instant runs fn once and finishes.
func Instant(name string, fn func(), reqs ...Subsystem) Command {
	return NewFunctional(name, fn, nil, nil, finished, reqs...)
}

// Run calls fn every tick until interrupted.
func Run(name string, fn func(), reqs ...Subsystem) Command {
	return NewFunctional(name, nil, fn, nil, nil, reqs...)
}

// RunEnd calls run every tick and end once when interrupted.
func RunEnd(name string, run func(), end func(), reqs ...Subsystem) Command {
	return NewFunctional(name, nil, run, func(bool) { end() }, nil, reqs...)
}

// None does nothing and finishes immediately.
func None() Command {
	return NewFunctional("None", nil, nil, nil, finished)
}

// Print logs msg at info level and finishes.
func Print(log *utils.Logger, msg string) Command {
	return Instant("Print", func() { log.Info("%s", msg) })
}

// WaitCommand finishes once its duration has elapsed since Initialize.
type WaitCommand struct {
	d     time.Duration
	timer *Timer
}

func Wait(clk clock.Clock, d time.Duration) *WaitCommand {
	return &WaitCommand{d: d, timer: NewTimer(clk)}
}

func (w *WaitCommand) Name() string              { return fmt.Sprintf("Wait(%s)", w.d) }
func (w *WaitCommand) Initialize()               { w.timer.Restart() }
func (w *WaitCommand) Execute()                  {}
func (w *WaitCommand) IsFinished() bool          { return w.timer.HasElapsed(w.d) }
func (w *WaitCommand) End(bool)                  {}
func (w *WaitCommand) Requirements() []Subsystem { return nil }

// WaitUntil finishes once cond reports true.
func WaitUntil(name string, cond func() bool) Command {
	return NewFunctional(name, nil, nil, nil, cond)
}

// WithTimeout ends c once d has elapsed, whichever comes first.
func WithTimeout(clk clock.Clock, c Command, d time.Duration) Command {
	return Race(c, Wait(clk, d))
}

func typeName(c Command) string {
	return fmt.Sprintf("%T", c)
}
