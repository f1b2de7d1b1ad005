// Package drivetrain is the swerve drive subsystem: four modules, their
// kinematics and the odometry that tracks the robot's field pose.
package drivetrain

import (
	"fmt"
	"sync"

	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/utils"
)

type Drivetrain struct {
	log      *utils.Logger
	kin      *kinematics.SwerveDriveKinematics
	modules  []ModuleIO
	maxSpeed float64

	// guards odometry; the pose is read off the control goroutine for status output
	mu       sync.Mutex
	odometry *kinematics.SwerveDriveOdometry
}

// New builds the subsystem; maxSpeed is the module speed states are desaturated to.
func New(log *utils.Logger, kin *kinematics.SwerveDriveKinematics, modules []ModuleIO, maxSpeed float64) (*Drivetrain, error) {
	if len(modules) != kin.NumModules() {
		return nil, fmt.Errorf("drivetrain: %d modules for a %d-module layout", len(modules), kin.NumModules())
	}
	if maxSpeed <= 0 {
		return nil, fmt.Errorf("drivetrain: max speed must be positive, got %.3f", maxSpeed)
	}
	d := &Drivetrain{
		log:      log,
		kin:      kin,
		modules:  modules,
		maxSpeed: maxSpeed,
	}
	odo, err := kinematics.NewSwerveDriveOdometry(kin, d.positions(), geometry.Pose2d{})
	if err != nil {
		return nil, err
	}
	d.odometry = odo
	return d, nil
}

func (d *Drivetrain) Name() string { return "Drivetrain" }

func (d *Drivetrain) positions() []kinematics.SwerveModulePosition {
	out := make([]kinematics.SwerveModulePosition, len(d.modules))
	for i, m := range d.modules {
		out[i] = m.Position()
	}
	return out
}

// Periodic folds the latest module positions into the pose.
func (d *Drivetrain) Periodic() {
	positions := d.positions()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.odometry.Update(positions); err != nil {
		d.log.Error("odometry update: %v", err)
	}
}

func (d *Drivetrain) Pose() geometry.Pose2d {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.odometry.Pose()
}

func (d *Drivetrain) ResetPose(pose geometry.Pose2d) {
	positions := d.positions()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.odometry.ResetPosition(positions, pose)
}

func (d *Drivetrain) Kinematics() *kinematics.SwerveDriveKinematics { return d.kin }

// SwerveDrive commands one state per module, scaled so no wheel exceeds the
// max speed and flipped where that shortens the steering move. Module write
// errors are logged; the next tick retries with a fresh setpoint.
func (d *Drivetrain) SwerveDrive(states []kinematics.SwerveModuleState) {
	if len(states) != len(d.modules) {
		d.log.Error("swerve drive: %d states for %d modules", len(states), len(d.modules))
		return
	}
	out := append([]kinematics.SwerveModuleState(nil), states...)
	kinematics.DesaturateWheelSpeeds(out, d.maxSpeed)
	for i, m := range d.modules {
		s := kinematics.Optimize(out[i], m.State().Angle)
		if err := m.SetDesiredState(s); err != nil {
			d.log.Error("module %s: %v", ModuleNames[i%len(ModuleNames)], err)
		}
	}
}

// Drive commands robot-relative chassis speeds.
func (d *Drivetrain) Drive(speeds geometry.ChassisSpeeds) {
	d.SwerveDrive(d.kin.ToModuleStates(speeds))
}

// Stop zeroes every module's speed, keeping its heading.
func (d *Drivetrain) Stop() {
	d.Drive(geometry.ChassisSpeeds{})
}

// ModuleStates returns the measured module states.
func (d *Drivetrain) ModuleStates() []kinematics.SwerveModuleState {
	out := make([]kinematics.SwerveModuleState, len(d.modules))
	for i, m := range d.modules {
		out[i] = m.State()
	}
	return out
}

// NewSim builds a drivetrain of simulated modules.
func NewSim(log *utils.Logger, kin *kinematics.SwerveDriveKinematics, modules []*SimModuleIO, maxSpeed float64) (*Drivetrain, error) {
	io := make([]ModuleIO, len(modules))
	for i, m := range modules {
		io[i] = m
	}
	return New(log, kin, io, maxSpeed)
}
