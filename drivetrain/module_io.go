package drivetrain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/utils"
)

// ModuleNames are the module prefixes in kinematics order.
var ModuleNames = [4]string{"FL", "FR", "BL", "BR"}

// ModuleIO is one swerve module's command output and measured feedback.
type ModuleIO interface {
	SetDesiredState(state kinematics.SwerveModuleState) error
	State() kinematics.SwerveModuleState
	Position() kinematics.SwerveModulePosition
}

// SimModuleIO reaches every commanded state instantly and integrates wheel
// distance on a clock.
type SimModuleIO struct {
	mu       sync.Mutex
	clk      clock.Clock
	last     time.Time
	state    kinematics.SwerveModuleState
	distance float64
}

func NewSimModuleIO(clk clock.Clock) *SimModuleIO {
	return &SimModuleIO{clk: clk, last: clk.Now()}
}

func (m *SimModuleIO) advance() {
	now := m.clk.Now()
	m.distance += m.state.SpeedMetersPerSecond * now.Sub(m.last).Seconds()
	m.last = now
}

func (m *SimModuleIO) SetDesiredState(state kinematics.SwerveModuleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.state = state
	return nil
}

func (m *SimModuleIO) State() kinematics.SwerveModuleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *SimModuleIO) Position() kinematics.SwerveModulePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return kinematics.SwerveModulePosition{DistanceMeters: m.distance, Angle: m.state.Angle}
}

// CAN signal names shared by every module's frames.
const (
	SignalDriveVelocity = "drive_velocity_mps"
	SignalSteerAngle    = "steer_angle_deg"
	SignalDrivePosition = "drive_position_m"
	SignalDriveFFVolts  = "drive_ff_volts"
)

// CANModuleIO sends setpoints in the module's command frame and tracks the
// module's state frame. The motor controllers close the velocity and angle
// loops; the command carries a feedforward voltage for the drive motor.
type CANModuleIO struct {
	bus          *utils.CANBus
	cmdFrame     string
	stateFrame   string
	writeTimeout time.Duration

	clk      clock.Clock
	ff       *control.SimpleMotorFeedforward
	lastCmd  kinematics.SwerveModuleState
	lastSent time.Time

	mu       sync.Mutex
	state    kinematics.SwerveModuleState
	distance float64
}

// CommandFrame and StateFrame name a module's frames in the CAN map.
func CommandFrame(module string) string { return fmt.Sprintf("SWERVE_%s_CMD", module) }
func StateFrame(module string) string   { return fmt.Sprintf("SWERVE_%s_STATE", module) }

func NewCANModuleIO(bus *utils.CANBus, module string, clk clock.Clock, ff control.FeedforwardConstants) (*CANModuleIO, error) {
	m := &CANModuleIO{
		bus:          bus,
		cmdFrame:     CommandFrame(module),
		stateFrame:   StateFrame(module),
		writeTimeout: 10 * time.Millisecond,
		clk:          clk,
		ff:           control.NewSimpleMotorFeedforward(ff),
	}
	if err := bus.Map.RequireFrames(m.cmdFrame, m.stateFrame); err != nil {
		return nil, fmt.Errorf("module %s: %w", module, err)
	}
	return m, nil
}

func (m *CANModuleIO) SetDesiredState(state kinematics.SwerveModuleState) error {
	now := m.clk.Now()
	var accel float64
	if !m.lastSent.IsZero() {
		if dt := now.Sub(m.lastSent).Seconds(); dt > 0 {
			accel = (state.SpeedMetersPerSecond - m.lastCmd.SpeedMetersPerSecond) / dt
		}
	}
	m.lastCmd, m.lastSent = state, now

	ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout)
	defer cancel()
	return m.bus.Send(ctx, m.cmdFrame, map[string]float64{
		SignalDriveVelocity: state.SpeedMetersPerSecond,
		SignalSteerAngle:    state.Angle.Degrees(),
		SignalDriveFFVolts:  m.ff.Calculate(state.SpeedMetersPerSecond, accel),
	})
}

func (m *CANModuleIO) State() kinematics.SwerveModuleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CANModuleIO) Position() kinematics.SwerveModulePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return kinematics.SwerveModulePosition{DistanceMeters: m.distance, Angle: m.state.Angle}
}

// HandleFrame consumes the module's state frame and ignores every other frame.
func (m *CANModuleIO) HandleFrame(fd *utils.FrameDef, values map[string]float64) bool {
	if fd.Name != m.stateFrame {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = kinematics.SwerveModuleState{
		SpeedMetersPerSecond: values[SignalDriveVelocity],
		Angle:                geometry.FromDegrees(values[SignalSteerAngle]),
	}
	m.distance = values[SignalDrivePosition]
	return true
}

// CANModules routes received frames to their module.
type CANModules []*CANModuleIO

// NewCANModules builds the four modules; ff is shared by their drive motors.
func NewCANModules(bus *utils.CANBus, clk clock.Clock, ff control.FeedforwardConstants) (CANModules, error) {
	out := make(CANModules, 0, len(ModuleNames))
	for _, name := range ModuleNames {
		m, err := NewCANModuleIO(bus, name, clk, ff)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (ms CANModules) HandleFrame(fd *utils.FrameDef, values map[string]float64) {
	for _, m := range ms {
		if m.HandleFrame(fd, values) {
			return
		}
	}
}

// IO returns the modules as ModuleIO values.
func (ms CANModules) IO() []ModuleIO {
	out := make([]ModuleIO, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}
