// Package kinematics converts between robot chassis motion and per-module
// swerve commands, and integrates module motion into a field pose.
package kinematics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"swerve-auto-core/geometry"
)

// SwerveModuleState is a wheel speed and steering angle.
type SwerveModuleState struct {
	SpeedMetersPerSecond float64
	Angle                geometry.Rotation2d
}

// SwerveModulePosition is the distance a wheel has travelled and its current angle.
type SwerveModulePosition struct {
	DistanceMeters float64
	Angle          geometry.Rotation2d
}

// Optimize flips the wheel direction when that keeps the steering change
// within 90 degrees of the current angle.
func Optimize(desired SwerveModuleState, current geometry.Rotation2d) SwerveModuleState {
	delta := desired.Angle.Minus(current)
	if math.Abs(delta.Radians()) > math.Pi/2 {
		return SwerveModuleState{
			SpeedMetersPerSecond: -desired.SpeedMetersPerSecond,
			Angle:                desired.Angle.Plus(geometry.FromRadians(math.Pi)),
		}
	}
	return desired
}

// SwerveDriveKinematics holds the module layout. It is not safe for
// concurrent use: inverse kinematics remembers the last module headings.
type SwerveDriveKinematics struct {
	modules []geometry.Translation2d

	inverse *mat.Dense // (2n x 3) chassis speeds -> module vx/vy
	forward *mat.Dense // (3 x 2n) pseudo-inverse of inverse

	lastHeadings []geometry.Rotation2d
}

// NewSwerveDriveKinematics panics with fewer than two modules.
func NewSwerveDriveKinematics(modules ...geometry.Translation2d) *SwerveDriveKinematics {
	n := len(modules)
	if n < 2 {
		panic(fmt.Sprintf("swerve kinematics needs at least two modules, got %d", n))
	}

	inverse := mat.NewDense(2*n, 3, nil)
	for i, m := range modules {
		inverse.SetRow(2*i, []float64{1, 0, -m.Y})
		inverse.SetRow(2*i+1, []float64{0, 1, m.X})
	}

	// forward = (AᵀA)⁻¹Aᵀ
	var ata, ataInv mat.Dense
	ata.Mul(inverse.T(), inverse)
	if err := ataInv.Inverse(&ata); err != nil {
		panic(fmt.Sprintf("degenerate swerve module layout: %v", err))
	}
	forward := mat.NewDense(3, 2*n, nil)
	forward.Mul(&ataInv, inverse.T())

	return &SwerveDriveKinematics{
		modules:      append([]geometry.Translation2d(nil), modules...),
		inverse:      inverse,
		forward:      forward,
		lastHeadings: make([]geometry.Rotation2d, n),
	}
}

// NumModules is the number of modules in the layout.
func (k *SwerveDriveKinematics) NumModules() int { return len(k.modules) }

// Modules returns the module locations relative to the robot center.
func (k *SwerveDriveKinematics) Modules() []geometry.Translation2d {
	return append([]geometry.Translation2d(nil), k.modules...)
}

// ToModuleStates performs inverse kinematics about the robot center. For a
// zero command every module keeps its last heading with zero speed.
func (k *SwerveDriveKinematics) ToModuleStates(speeds geometry.ChassisSpeeds) []SwerveModuleState {
	states := make([]SwerveModuleState, len(k.modules))
	if speeds.IsZero() {
		for i := range states {
			states[i] = SwerveModuleState{Angle: k.lastHeadings[i]}
		}
		return states
	}

	var out mat.VecDense
	out.MulVec(k.inverse, mat.NewVecDense(3, []float64{speeds.Vx, speeds.Vy, speeds.Omega}))

	for i := range states {
		v := geometry.NewTranslation2d(out.AtVec(2*i), out.AtVec(2*i+1))
		speed := v.Norm()
		angle := k.lastHeadings[i]
		if speed > 1e-9 {
			angle = v.Angle()
		}
		states[i] = SwerveModuleState{SpeedMetersPerSecond: speed, Angle: angle}
		k.lastHeadings[i] = angle
	}
	return states
}

// ResetHeadings sets the headings reported for zero commands.
func (k *SwerveDriveKinematics) ResetHeadings(headings ...geometry.Rotation2d) {
	copy(k.lastHeadings, headings)
}

// ToChassisSpeeds performs forward kinematics as a least-squares fit.
func (k *SwerveDriveKinematics) ToChassisSpeeds(states ...SwerveModuleState) (geometry.ChassisSpeeds, error) {
	if len(states) != len(k.modules) {
		return geometry.ChassisSpeeds{}, fmt.Errorf("got %d module states for %d modules", len(states), len(k.modules))
	}
	x := k.solve(func(i int) (float64, geometry.Rotation2d) {
		return states[i].SpeedMetersPerSecond, states[i].Angle
	})
	return geometry.ChassisSpeeds{Vx: x[0], Vy: x[1], Omega: x[2]}, nil
}

// ToTwist2d converts module position deltas into a robot-frame twist.
func (k *SwerveDriveKinematics) ToTwist2d(deltas ...SwerveModulePosition) (geometry.Twist2d, error) {
	if len(deltas) != len(k.modules) {
		return geometry.Twist2d{}, fmt.Errorf("got %d module deltas for %d modules", len(deltas), len(k.modules))
	}
	x := k.solve(func(i int) (float64, geometry.Rotation2d) {
		return deltas[i].DistanceMeters, deltas[i].Angle
	})
	return geometry.Twist2d{Dx: x[0], Dy: x[1], Dtheta: x[2]}, nil
}

func (k *SwerveDriveKinematics) solve(module func(i int) (float64, geometry.Rotation2d)) [3]float64 {
	n := len(k.modules)
	in := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		mag, angle := module(i)
		in.SetVec(2*i, mag*angle.Cos())
		in.SetVec(2*i+1, mag*angle.Sin())
	}
	var out mat.VecDense
	out.MulVec(k.forward, in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// DesaturateWheelSpeeds scales every state down by the same factor when any
// wheel exceeds maxSpeed, keeping the commanded direction of travel.
func DesaturateWheelSpeeds(states []SwerveModuleState, maxSpeed float64) {
	realMax := 0.0
	for _, s := range states {
		realMax = math.Max(realMax, math.Abs(s.SpeedMetersPerSecond))
	}
	if realMax <= maxSpeed || realMax == 0 {
		return
	}
	for i := range states {
		states[i].SpeedMetersPerSecond = states[i].SpeedMetersPerSecond / realMax * maxSpeed
	}
}
