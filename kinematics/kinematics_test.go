package kinematics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swerve-auto-core/geometry"
)

const half = 0.2921

func square() *SwerveDriveKinematics {
	return NewSwerveDriveKinematics(
		geometry.NewTranslation2d(half, half),
		geometry.NewTranslation2d(half, -half),
		geometry.NewTranslation2d(-half, half),
		geometry.NewTranslation2d(-half, -half),
	)
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestStraightDriveAllModulesAgree(t *testing.T) {
	k := square()
	for _, s := range k.ToModuleStates(geometry.ChassisSpeeds{Vx: 2}) {
		assert.InDelta(t, 2, s.SpeedMetersPerSecond, 1e-9)
		assert.InDelta(t, 0, s.Angle.Degrees(), 1e-9)
	}
	for _, s := range k.ToModuleStates(geometry.ChassisSpeeds{Vy: -1}) {
		assert.InDelta(t, 1, s.SpeedMetersPerSecond, 1e-9)
		assert.InDelta(t, -90, s.Angle.Degrees(), 1e-9)
	}
}

func TestSpinInPlace(t *testing.T) {
	k := square()
	states := k.ToModuleStates(geometry.ChassisSpeeds{Omega: 1})
	want := []float64{135, 45, -135, -45}
	for i, s := range states {
		assert.InDelta(t, math.Hypot(half, half), s.SpeedMetersPerSecond, 1e-9, "module %d", i)
		assert.InDelta(t, want[i], s.Angle.Degrees(), 1e-9, "module %d", i)
	}
}

func TestZeroSpeedsKeepLastHeadings(t *testing.T) {
	k := square()
	k.ToModuleStates(geometry.ChassisSpeeds{Vy: 1})
	for _, s := range k.ToModuleStates(geometry.ChassisSpeeds{}) {
		assert.Zero(t, s.SpeedMetersPerSecond)
		assert.InDelta(t, 90, s.Angle.Degrees(), 1e-9)
	}
}

func TestInverseForwardRoundTrip(t *testing.T) {
	k := square()
	for _, speeds := range []geometry.ChassisSpeeds{
		{Vx: 1.5},
		{Vx: -0.5, Vy: 1.2},
		{Vx: 1, Vy: -0.3, Omega: 2},
		{Omega: -1.1},
	} {
		got, err := k.ToChassisSpeeds(k.ToModuleStates(speeds)...)
		require.NoError(t, err)
		if diff := cmp.Diff(speeds, got, approx); diff != "" {
			t.Errorf("round trip of %+v (-want +got):\n%s", speeds, diff)
		}
	}
}

func TestForwardKinematicsRejectsWrongCount(t *testing.T) {
	_, err := square().ToChassisSpeeds(SwerveModuleState{})
	assert.Error(t, err)
	_, err = square().ToTwist2d(SwerveModulePosition{})
	assert.Error(t, err)
}

func TestNewKinematicsNeedsTwoModules(t *testing.T) {
	assert.Panics(t, func() { NewSwerveDriveKinematics(geometry.NewTranslation2d(1, 1)) })
}

func TestDesaturateWheelSpeeds(t *testing.T) {
	states := []SwerveModuleState{
		{SpeedMetersPerSecond: 4},
		{SpeedMetersPerSecond: -2},
		{SpeedMetersPerSecond: 1},
	}
	DesaturateWheelSpeeds(states, 2)
	assert.InDelta(t, 2, states[0].SpeedMetersPerSecond, 1e-12)
	assert.InDelta(t, -1, states[1].SpeedMetersPerSecond, 1e-12)
	assert.InDelta(t, 0.5, states[2].SpeedMetersPerSecond, 1e-12)

	under := []SwerveModuleState{{SpeedMetersPerSecond: 1}}
	DesaturateWheelSpeeds(under, 2)
	assert.Equal(t, 1.0, under[0].SpeedMetersPerSecond)
}

func TestOptimize(t *testing.T) {
	desired := SwerveModuleState{SpeedMetersPerSecond: 2, Angle: geometry.FromDegrees(170)}

	flipped := Optimize(desired, geometry.FromDegrees(0))
	assert.InDelta(t, -2, flipped.SpeedMetersPerSecond, 1e-12)
	assert.InDelta(t, -10, flipped.Angle.Degrees(), 1e-9)

	kept := Optimize(desired, geometry.FromDegrees(120))
	assert.Equal(t, desired, kept)
}

func TestOdometryStraightLine(t *testing.T) {
	k := square()
	positions := make([]SwerveModulePosition, 4)
	odo, err := NewSwerveDriveOdometry(k, positions, geometry.NewPose2d(1, 1, geometry.FromDegrees(90)))
	require.NoError(t, err)

	for i := range positions {
		positions[i] = SwerveModulePosition{DistanceMeters: 0.5}
	}
	pose, err := odo.Update(positions)
	require.NoError(t, err)
	assert.InDelta(t, 1, pose.X(), 1e-9)
	assert.InDelta(t, 1.5, pose.Y(), 1e-9)
	assert.InDelta(t, 90, pose.Rotation.Degrees(), 1e-9)

	// same positions again: no motion
	pose, err = odo.Update(positions)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, pose.Y(), 1e-9)
}

func TestOdometryResetKeepsBaseline(t *testing.T) {
	k := square()
	positions := []SwerveModulePosition{{DistanceMeters: 3}, {DistanceMeters: 3}, {DistanceMeters: 3}, {DistanceMeters: 3}}
	odo, err := NewSwerveDriveOdometry(k, positions, geometry.Pose2d{})
	require.NoError(t, err)

	odo.ResetPosition(positions, geometry.NewPose2d(5, 5, 0))
	pose, err := odo.Update(positions)
	require.NoError(t, err)
	assert.InDelta(t, 5, pose.X(), 1e-12)
	assert.Equal(t, pose, odo.Pose())

	_, err = odo.Update(positions[:2])
	assert.Error(t, err)
}
