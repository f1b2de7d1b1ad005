package pathplanner

import (
	"strings"

	"swerve-auto-core/command"
)

// EventMap names the commands that path markers and stop points trigger.
// It is built during setup and handed to the AutoBuilder; it is not modified
// while routines run.
type EventMap map[string]command.Command

// ExecutionBehavior is how the commands of a stop event run relative to each other.
type ExecutionBehavior string

const (
	ExecutionParallel         ExecutionBehavior = "parallel"
	ExecutionSequential       ExecutionBehavior = "sequential"
	ExecutionParallelDeadline ExecutionBehavior = "parallelDeadline"
)

// WaitBehavior is how a stop event's wait time combines with its commands.
type WaitBehavior string

const (
	WaitNone     WaitBehavior = "none"
	WaitBefore   WaitBehavior = "before"
	WaitAfter    WaitBehavior = "after"
	WaitDeadline WaitBehavior = "deadline"
	WaitMinimum  WaitBehavior = "minimum"
)

func parseExecutionBehavior(s string) ExecutionBehavior {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "sequential":
		return ExecutionSequential
	case "paralleldeadline":
		return ExecutionParallelDeadline
	default:
		return ExecutionParallel
	}
}

func parseWaitBehavior(s string) WaitBehavior {
	switch strings.ToLower(s) {
	case "before":
		return WaitBefore
	case "after":
		return WaitAfter
	case "deadline":
		return WaitDeadline
	case "minimum":
		return WaitMinimum
	default:
		return WaitNone
	}
}

// StopEvent runs while the robot is stopped at a waypoint.
type StopEvent struct {
	Names             []string
	ExecutionBehavior ExecutionBehavior
	WaitBehavior      WaitBehavior
	WaitTimeSeconds   float64
}

// EventMarker triggers commands once the trajectory reaches a point.
type EventMarker struct {
	Names       []string
	TimeSeconds float64
	// Position is measured in waypoints from the start of its trajectory:
	// 1.5 is halfway between the second and third waypoint.
	Position float64
}
