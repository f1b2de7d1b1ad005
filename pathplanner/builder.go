package pathplanner

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/command"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/utils"
)

// ErrEmptyPathGroup is returned when a full auto is requested for no trajectories.
var ErrEmptyPathGroup = errors.New("empty path group")

// BuilderConfig binds the builder to a swerve drivetrain.
type BuilderConfig struct {
	PoseSupplier       func() geometry.Pose2d
	ResetPose          func(geometry.Pose2d)
	Kinematics         *kinematics.SwerveDriveKinematics
	TranslationPID     control.PIDConstants
	RotationPID        control.PIDConstants
	OutputModuleStates func([]kinematics.SwerveModuleState)
	EventMap           EventMap
	// UseAllianceColor mirrors paths for the red alliance as reported by Alliance.
	UseAllianceColor bool
	Alliance         func() Alliance
	// Requirements are the subsystems path-following commands lock, normally the drivetrain.
	Requirements []command.Subsystem

	Clock   clock.Clock
	PeriodS float64
	Log     *utils.Logger
}

// AutoBuilder turns path groups into autonomous command sequences.
type AutoBuilder struct {
	cfg BuilderConfig
}

func NewAutoBuilder(cfg BuilderConfig) (*AutoBuilder, error) {
	switch {
	case cfg.PoseSupplier == nil:
		return nil, fmt.Errorf("auto builder: pose supplier is required")
	case cfg.ResetPose == nil:
		return nil, fmt.Errorf("auto builder: pose reset is required")
	case cfg.Kinematics == nil:
		return nil, fmt.Errorf("auto builder: kinematics is required")
	case cfg.OutputModuleStates == nil:
		return nil, fmt.Errorf("auto builder: module state output is required")
	case cfg.UseAllianceColor && cfg.Alliance == nil:
		return nil, fmt.Errorf("auto builder: alliance source is required when mirroring by alliance")
	}
	if cfg.EventMap == nil {
		cfg.EventMap = EventMap{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.PeriodS <= 0 {
		cfg.PeriodS = control.DefaultPeriodS
	}
	if cfg.Log == nil {
		cfg.Log = utils.NewNopLogger()
	}
	return &AutoBuilder{cfg: cfg}, nil
}

func (b *AutoBuilder) alliance() Alliance {
	if !b.cfg.UseAllianceColor {
		return AllianceBlue
	}
	return b.cfg.Alliance()
}

// FollowPath tracks the trajectory without triggering events.
func (b *AutoBuilder) FollowPath(traj *Trajectory) command.Command {
	return &FollowPathCommand{
		trajectory: traj,
		pose:       b.cfg.PoseSupplier,
		kin:        b.cfg.Kinematics,
		controller: control.NewHolonomicDriveController(control.ControllerConfig{
			Translation: b.cfg.TranslationPID,
			Rotation:    b.cfg.RotationPID,
			PeriodS:     b.cfg.PeriodS,
		}),
		output:           b.cfg.OutputModuleStates,
		useAllianceColor: b.cfg.UseAllianceColor,
		alliance:         b.cfg.Alliance,
		reqs:             b.cfg.Requirements,
		timer:            command.NewTimer(b.cfg.Clock),
		log:              b.cfg.Log,
	}
}

// FollowPathWithEvents tracks the trajectory and fires its markers.
func (b *AutoBuilder) FollowPathWithEvents(traj *Trajectory) command.Command {
	return NewFollowPathWithEvents(b.cfg.Clock, b.FollowPath(traj), traj.Markers(), b.cfg.EventMap, b.cfg.Log)
}

// ResetPose moves odometry to the trajectory's start, mirrored for the
// alliance at the time the command runs.
func (b *AutoBuilder) ResetPose(traj *Trajectory) command.Command {
	return command.Instant("ResetPose", func() {
		pose := traj.TransformForAlliance(b.alliance()).InitialHolonomicPose()
		b.cfg.Log.Info("reset pose to (%.2f, %.2f, %.1f°)", pose.X(), pose.Y(), pose.Rotation.Degrees())
		b.cfg.ResetPose(pose)
	}, b.cfg.Requirements...)
}

// eventCommand wraps a mapped command so one map entry can appear in several groups.
func eventCommand(name string, c command.Command) command.Command {
	return command.NewFunctional(name, c.Initialize, c.Execute, c.End, c.IsFinished, c.Requirements()...)
}

func (b *AutoBuilder) lookup(name string) (command.Command, bool) {
	c, ok := b.cfg.EventMap[name]
	if !ok {
		b.cfg.Log.Warn("stop event %q has no command", name)
		return nil, false
	}
	return eventCommand(name, c), true
}

func (b *AutoBuilder) stopEventCommands(e StopEvent) command.Command {
	start := 0
	if e.ExecutionBehavior == ExecutionParallelDeadline {
		start = 1
	}
	var cmds []command.Command
	for _, name := range e.Names[start:] {
		if c, ok := b.lookup(name); ok {
			cmds = append(cmds, c)
		}
	}

	switch e.ExecutionBehavior {
	case ExecutionSequential:
		return command.Sequence(cmds...)
	case ExecutionParallelDeadline:
		deadline, ok := b.lookup(e.Names[0])
		if !ok {
			deadline = command.None()
		}
		return command.Deadline(deadline, cmds...)
	default:
		return command.Parallel(cmds...)
	}
}

// StopEventGroup runs the event's commands combined with its wait time.
func (b *AutoBuilder) StopEventGroup(e StopEvent) command.Command {
	wait := command.Wait(b.cfg.Clock, command.Seconds(e.WaitTimeSeconds))
	if len(e.Names) == 0 {
		return wait
	}
	events := b.stopEventCommands(e)

	switch e.WaitBehavior {
	case WaitBefore:
		return command.Sequence(wait, events)
	case WaitAfter:
		return command.Sequence(events, wait)
	case WaitDeadline:
		return command.Deadline(wait, events)
	case WaitMinimum:
		return command.Parallel(wait, events)
	default:
		return events
	}
}

// FullAuto resets the pose to the group's start, then for every trajectory
// runs its start stop event and follows it with events, and finishes with
// the last trajectory's end stop event.
func (b *AutoBuilder) FullAuto(group ...*Trajectory) (command.Command, error) {
	if len(group) == 0 {
		return nil, ErrEmptyPathGroup
	}
	cmds := []command.Command{b.ResetPose(group[0])}
	for _, traj := range group {
		cmds = append(cmds, b.StopEventGroup(traj.StartStopEvent()), b.FollowPathWithEvents(traj))
	}
	cmds = append(cmds, b.StopEventGroup(group[len(group)-1].EndStopEvent()))
	return command.Sequence(cmds...), nil
}
