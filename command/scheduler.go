package command

import (
	"context"
	"slices"
	"time"

	"github.com/benbjohnson/clock"

	"swerve-auto-core/utils"
)

// Scheduler polls scheduled commands and registered subsystems once per tick.
// It is not safe for concurrent use: every method must be called from the
// control goroutine, including from inside running commands, where Schedule
// and Cancel take effect after the current tick.
type Scheduler struct {
	log    *utils.Logger
	clk    clock.Clock
	period time.Duration

	subsystems   []Subsystem
	scheduled    []Command
	requirements map[Subsystem]Command

	inRun      bool
	toSchedule []Command
	toCancel   []Command
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock, e.g. with clock.NewMock in tests.
func WithClock(clk clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clk = clk }
}

// WithPeriod sets the tick period used by Loop.
func WithPeriod(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.period = d }
}

func NewScheduler(log *utils.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		log:          log,
		clk:          clock.New(),
		period:       20 * time.Millisecond,
		requirements: map[Subsystem]Command{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Clock is the clock ticks are measured on.
func (s *Scheduler) Clock() clock.Clock { return s.clk }

// RegisterSubsystem adds subsystems whose Periodic runs every tick.
func (s *Scheduler) RegisterSubsystem(subs ...Subsystem) {
	for _, sub := range subs {
		if !slices.Contains(s.subsystems, sub) {
			s.subsystems = append(s.subsystems, sub)
		}
	}
}

// Schedule initializes each command and starts polling it, interrupting any
// running command that holds one of its requirements.
func (s *Scheduler) Schedule(cmds ...Command) {
	for _, c := range cmds {
		if c == nil {
			continue
		}
		if s.inRun {
			s.toSchedule = append(s.toSchedule, c)
			continue
		}
		if s.IsScheduled(c) {
			continue
		}
		for _, req := range c.Requirements() {
			if holder, ok := s.requirements[req]; ok {
				s.log.Debug("%s interrupts %s on %s", NameOf(c), NameOf(holder), req.Name())
				s.Cancel(holder)
			}
		}
		c.Initialize()
		s.scheduled = append(s.scheduled, c)
		for _, req := range c.Requirements() {
			s.requirements[req] = c
		}
		s.log.Debug("scheduled %s", NameOf(c))
	}
}

// Cancel ends running commands with interrupted set.
func (s *Scheduler) Cancel(cmds ...Command) {
	for _, c := range cmds {
		if s.inRun {
			s.toCancel = append(s.toCancel, c)
			continue
		}
		if !s.IsScheduled(c) {
			continue
		}
		c.End(true)
		s.remove(c)
		s.log.Debug("canceled %s", NameOf(c))
	}
}

// CancelAll interrupts every running command.
func (s *Scheduler) CancelAll() {
	s.Cancel(slices.Clone(s.scheduled)...)
}

func (s *Scheduler) IsScheduled(c Command) bool {
	return slices.Contains(s.scheduled, c)
}

// Requiring returns the command currently holding sub, if any.
func (s *Scheduler) Requiring(sub Subsystem) (Command, bool) {
	c, ok := s.requirements[sub]
	return c, ok
}

func (s *Scheduler) remove(c Command) {
	s.scheduled = slices.DeleteFunc(s.scheduled, func(x Command) bool { return x == c })
	for _, req := range c.Requirements() {
		if s.requirements[req] == c {
			delete(s.requirements, req)
		}
	}
}

// Run performs one tick.
func (s *Scheduler) Run() {
	for _, sub := range s.subsystems {
		sub.Periodic()
	}

	s.inRun = true
	for _, c := range slices.Clone(s.scheduled) {
		if slices.Contains(s.toCancel, c) {
			continue
		}
		c.Execute()
		if c.IsFinished() {
			c.End(false)
			s.remove(c)
			s.log.Debug("finished %s", NameOf(c))
		}
	}
	s.inRun = false

	cancel, schedule := s.toCancel, s.toSchedule
	s.toCancel, s.toSchedule = nil, nil
	s.Cancel(cancel...)
	s.Schedule(schedule...)
}

// Loop ticks every period until ctx is done.
func (s *Scheduler) Loop(ctx context.Context) error {
	ticker := s.clk.Ticker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Run()
		}
	}
}

// RunUntilFinished schedules c and ticks until it ends. If ctx is done
// first, c is interrupted and ctx's error returned.
func (s *Scheduler) RunUntilFinished(ctx context.Context, c Command) error {
	s.Schedule(c)

	ticker := s.clk.Ticker(s.period)
	defer ticker.Stop()

	for s.IsScheduled(c) {
		select {
		case <-ctx.Done():
			s.Cancel(c)
			return ctx.Err()
		case <-ticker.C:
			s.Run()
		}
	}
	return nil
}
