// Package config loads the robot's YAML configuration: where the CAN bus and
// path files live, which autos to register and what the named events do.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"swerve-auto-core/constants"
	"swerve-auto-core/pathplanner"
)

// Builtin routines that need no path file.
const (
	BuiltinNone         = "none"
	BuiltinDriveForward = "drive_forward"
)

// Event actions.
const (
	ActionWait  = "wait"
	ActionPrint = "print"
)

// CANConfig selects the SocketCAN interface and the frame map.
type CANConfig struct {
	Interface string `yaml:"interface"`
	MapPath   string `yaml:"map"`
}

// AutoConfig registers one routine. Exactly one of Path and Builtin is set.
type AutoConfig struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path,omitempty"`
	Builtin string `yaml:"builtin,omitempty"`

	// Optional limits; zero falls back to the trajectory constants.
	MaxVelocity     float64 `yaml:"max_velocity,omitempty"`
	MaxAcceleration float64 `yaml:"max_acceleration,omitempty"`

	// drive_forward only
	SpeedMPS float64 `yaml:"speed_mps,omitempty"`
	Seconds  float64 `yaml:"seconds,omitempty"`
}

// HasConstraints reports whether the auto overrides the default limits.
func (a AutoConfig) HasConstraints() bool {
	return a.MaxVelocity > 0 || a.MaxAcceleration > 0
}

// Constraints fills unset limits from the trajectory constants.
func (a AutoConfig) Constraints() pathplanner.PathConstraints {
	c := pathplanner.PathConstraints{
		MaxVelocity:     constants.Trajectory.MaxVelocityMetersPerSecond,
		MaxAcceleration: constants.Trajectory.MaxAccelerationMetersPerSecondSquared,
	}
	if a.MaxVelocity > 0 {
		c.MaxVelocity = a.MaxVelocity
	}
	if a.MaxAcceleration > 0 {
		c.MaxAcceleration = a.MaxAcceleration
	}
	return c
}

// EventConfig is what a named path event does when it fires.
type EventConfig struct {
	Action  string  `yaml:"action"`
	Seconds float64 `yaml:"seconds,omitempty"`
	Message string  `yaml:"message,omitempty"`
}

// RobotConfig is the whole file.
type RobotConfig struct {
	CAN CANConfig `yaml:"can"`
	Sim bool      `yaml:"sim"`

	DeployDir           string  `yaml:"deploy_dir"`
	MaxCentripetalAccel float64 `yaml:"max_centripetal_accel"`

	Alliance         string `yaml:"alliance"`
	UseAllianceColor *bool  `yaml:"use_alliance_color,omitempty"`
	LoopPeriodMS     int    `yaml:"loop_period_ms"`

	// SelectionFile holds the name of the chosen auto; it is watched while running.
	SelectionFile string `yaml:"selection_file,omitempty"`
	DefaultAuto   string `yaml:"default_auto,omitempty"`

	Autos  []AutoConfig           `yaml:"autos"`
	Events map[string]EventConfig `yaml:"events,omitempty"`
}

// Default is the configuration used when the file leaves a field unset.
func Default() RobotConfig {
	return RobotConfig{
		CAN: CANConfig{
			Interface: "vcan0",
			MapPath:   "config/can/swerve_can_map.csv",
		},
		DeployDir:           "deploy/pathplanner",
		MaxCentripetalAccel: constants.Trajectory.MaxCentripetalAcceleration,
		Alliance:            pathplanner.AllianceBlue.String(),
		LoopPeriodMS:        20,
	}
}

// LoopPeriod is the scheduler tick.
func (c RobotConfig) LoopPeriod() time.Duration {
	return time.Duration(c.LoopPeriodMS) * time.Millisecond
}

// MirrorForAlliance reports whether paths are mirrored for the red alliance.
func (c RobotConfig) MirrorForAlliance() bool {
	return c.UseAllianceColor == nil || *c.UseAllianceColor
}

// Load reads and validates the config at path.
func Load(path string) (RobotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RobotConfig{}, fmt.Errorf("read file: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return RobotConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config over the defaults and validates it. Unknown keys
// are rejected.
func Parse(in io.Reader) (RobotConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return RobotConfig{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RobotConfig{}, err
	}
	return cfg, nil
}

// Validate reports every problem in the config, not just the first.
func (c RobotConfig) Validate() error {
	var err error
	if _, perr := pathplanner.ParseAlliance(c.Alliance); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.LoopPeriodMS <= 0 {
		err = multierr.Append(err, fmt.Errorf("invalid loop_period_ms: %d", c.LoopPeriodMS))
	}
	if c.MaxCentripetalAccel < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid max_centripetal_accel: %f", c.MaxCentripetalAccel))
	}
	if !c.Sim && (c.CAN.Interface == "" || c.CAN.MapPath == "") {
		err = multierr.Append(err, fmt.Errorf("can interface and map are required unless sim is set"))
	}

	seen := map[string]bool{}
	for i, a := range c.Autos {
		switch {
		case a.Name == "":
			err = multierr.Append(err, fmt.Errorf("autos[%d]: name is required", i))
		case seen[a.Name]:
			err = multierr.Append(err, fmt.Errorf("autos[%d]: duplicate name %q", i, a.Name))
		}
		seen[a.Name] = true

		switch {
		case a.Path == "" && a.Builtin == "":
			err = multierr.Append(err, fmt.Errorf("auto %q: one of path or builtin is required", a.Name))
		case a.Path != "" && a.Builtin != "":
			err = multierr.Append(err, fmt.Errorf("auto %q: path and builtin are exclusive", a.Name))
		case a.Builtin != "" && a.Builtin != BuiltinNone && a.Builtin != BuiltinDriveForward:
			err = multierr.Append(err, fmt.Errorf("auto %q: unknown builtin %q", a.Name, a.Builtin))
		case a.Builtin == BuiltinDriveForward && a.Seconds <= 0:
			err = multierr.Append(err, fmt.Errorf("auto %q: drive_forward needs seconds > 0", a.Name))
		}
		if a.MaxVelocity < 0 || a.MaxAcceleration < 0 {
			err = multierr.Append(err, fmt.Errorf("auto %q: limits must not be negative", a.Name))
		}
	}
	if c.DefaultAuto != "" && !seen[c.DefaultAuto] {
		err = multierr.Append(err, fmt.Errorf("default_auto %q is not in autos", c.DefaultAuto))
	}

	for name, ev := range c.Events {
		switch ev.Action {
		case ActionWait:
			if ev.Seconds <= 0 {
				err = multierr.Append(err, fmt.Errorf("event %q: wait needs seconds > 0", name))
			}
		case ActionPrint:
		default:
			err = multierr.Append(err, fmt.Errorf("event %q: unknown action %q", name, ev.Action))
		}
	}
	return err
}
