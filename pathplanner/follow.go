package pathplanner

import (
	"math"
	"slices"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/command"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/utils"
)

// FollowPathCommand drives a swerve base along a trajectory with a
// holonomic controller, outputting module states every tick.
type FollowPathCommand struct {
	trajectory  *Trajectory
	transformed *Trajectory

	pose             func() geometry.Pose2d
	kin              *kinematics.SwerveDriveKinematics
	controller       *control.HolonomicDriveController
	output           func([]kinematics.SwerveModuleState)
	useAllianceColor bool
	alliance         func() Alliance
	reqs             []command.Subsystem

	timer *command.Timer
	log   *utils.Logger
}

func (c *FollowPathCommand) Name() string { return "FollowPath" }

func (c *FollowPathCommand) Initialize() {
	c.transformed = c.trajectory
	if c.useAllianceColor && c.alliance != nil {
		c.transformed = c.trajectory.TransformForAlliance(c.alliance())
	}
	c.controller.Reset()
	c.timer.Restart()
	c.log.Debug("following trajectory: %.2fs %.2fm", c.transformed.TotalTimeSeconds(), c.transformed.TotalDistanceMeters())
}

func (c *FollowPathCommand) Execute() {
	t := c.timer.Elapsed().Seconds()
	desired := c.transformed.Sample(t)
	current := c.pose()

	speeds := c.controller.Calculate(current, desired.Reference())
	c.output(c.kin.ToModuleStates(speeds))

	ex, ey, erot := c.controller.Errors()
	c.log.Trace("path t=%.3f target=(%.3f, %.3f) err=(%.3f, %.3f, %.3f)",
		t, desired.Pose.X(), desired.Pose.Y(), ex, ey, erot)
}

func (c *FollowPathCommand) IsFinished() bool {
	return c.timer.HasElapsed(command.Seconds(c.transformed.TotalTimeSeconds()))
}

// End stops the modules unless the path ends while still moving, in which
// case the next command takes over at speed.
func (c *FollowPathCommand) End(interrupted bool) {
	if interrupted || math.Abs(c.transformed.EndState().VelocityMetersPerSecond) < 0.1 {
		c.output(c.kin.ToModuleStates(geometry.ChassisSpeeds{}))
	}
}

func (c *FollowPathCommand) Requirements() []command.Subsystem { return c.reqs }

// FollowPathWithEvents runs a path command and starts the commands named by
// the trajectory's markers as their times pass. It finishes with the path;
// marker commands still running then are interrupted.
type FollowPathWithEvents struct {
	path     command.Command
	markers  []EventMarker
	eventMap EventMap
	reqs     []command.Subsystem

	timer    *command.Timer
	unpassed []EventMarker
	running  []command.Command
	pathDone bool
	log      *utils.Logger
}

func NewFollowPathWithEvents(clk clock.Clock, path command.Command, markers []EventMarker, events EventMap, log *utils.Logger) *FollowPathWithEvents {
	if log == nil {
		log = utils.NewNopLogger()
	}
	reqs := slices.Clone(path.Requirements())
	for _, m := range markers {
		for _, name := range m.Names {
			if c, ok := events[name]; ok {
				reqs = append(reqs, c.Requirements()...)
			}
		}
	}
	return &FollowPathWithEvents{
		path:     path,
		markers:  markers,
		eventMap: events,
		reqs:     lo.Uniq(reqs),
		timer:    command.NewTimer(clk),
		log:      log,
	}
}

func (f *FollowPathWithEvents) Name() string { return "FollowPathWithEvents" }

func (f *FollowPathWithEvents) Initialize() {
	f.unpassed = slices.Clone(f.markers)
	f.running = f.running[:0]
	f.pathDone = false
	f.timer.Restart()
	f.path.Initialize()
	f.running = append(f.running, f.path)
}

func (f *FollowPathWithEvents) Execute() {
	still := f.running[:0]
	for _, c := range f.running {
		c.Execute()
		if c.IsFinished() {
			c.End(false)
			if c == f.path {
				f.pathDone = true
			}
			continue
		}
		still = append(still, c)
	}
	f.running = still

	now := f.timer.Elapsed().Seconds()
	for len(f.unpassed) > 0 && now >= f.unpassed[0].TimeSeconds {
		marker := f.unpassed[0]
		f.unpassed = f.unpassed[1:]
		for _, name := range marker.Names {
			ev, ok := f.eventMap[name]
			if !ok {
				f.log.Warn("marker event %q has no command", name)
				continue
			}
			f.start(ev)
			f.log.Debug("marker event %s at t=%.2f", name, now)
		}
	}
}

// start interrupts running commands sharing a requirement with ev, then starts it.
func (f *FollowPathWithEvents) start(ev command.Command) {
	still := f.running[:0]
	for _, c := range f.running {
		if c == ev || sharesRequirement(c, ev) {
			c.End(true)
			if c == f.path {
				f.pathDone = true
			}
			continue
		}
		still = append(still, c)
	}
	f.running = still
	ev.Initialize()
	f.running = append(f.running, ev)
}

func sharesRequirement(a, b command.Command) bool {
	for _, r := range a.Requirements() {
		if slices.Contains(b.Requirements(), r) {
			return true
		}
	}
	return false
}

func (f *FollowPathWithEvents) IsFinished() bool { return f.pathDone }

func (f *FollowPathWithEvents) End(bool) {
	for _, c := range f.running {
		c.End(true)
	}
	f.running = f.running[:0]
}

func (f *FollowPathWithEvents) Requirements() []command.Subsystem { return f.reqs }
