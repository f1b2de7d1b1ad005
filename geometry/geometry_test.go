package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestRotationWrapsToHalfOpenRange(t *testing.T) {
	r := FromDegrees(170).Plus(FromDegrees(20))
	assert.InDelta(t, -170, r.Degrees(), 1e-9)

	r = FromDegrees(-170).Minus(FromDegrees(20))
	assert.InDelta(t, 170, r.Degrees(), 1e-9)
}

func TestRotationNegStaysInRange(t *testing.T) {
	assert.InDelta(t, math.Pi, FromDegrees(180).Neg().Radians(), eps)
	assert.InDelta(t, math.Pi, FromRadians(-math.Pi).Neg().Radians(), eps)
	assert.InDelta(t, -90, FromDegrees(90).Neg().Degrees(), eps)
	assert.InDelta(t, 170, FromDegrees(190).Neg().Degrees(), eps)
}

func TestRotationInterpolateTakesShortArc(t *testing.T) {
	r := FromDegrees(170).Interpolate(FromDegrees(-170), 0.5)
	assert.InDelta(t, 180, math.Abs(r.Degrees()), 1e-9)
}

func TestTranslationRotateBy(t *testing.T) {
	v := NewTranslation2d(1, 0).RotateBy(FromDegrees(90))
	assert.InDelta(t, 0, v.X, eps)
	assert.InDelta(t, 1, v.Y, eps)

	p := TranslationFromPolar(2, FromDegrees(-90))
	assert.InDelta(t, 0, p.X, eps)
	assert.InDelta(t, -2, p.Y, eps)
	assert.InDelta(t, 2, p.Distance(NewTranslation2d(0, 0)), eps)
}

func TestPoseExpStraight(t *testing.T) {
	start := NewPose2d(1, 2, FromDegrees(90))
	end := start.Exp(Twist2d{Dx: 3})
	assert.InDelta(t, 1, end.X(), eps)
	assert.InDelta(t, 5, end.Y(), eps)
	assert.InDelta(t, 90, end.Rotation.Degrees(), eps)
}

func TestPoseExpLogQuarterCircle(t *testing.T) {
	start := Pose2d{}
	end := NewPose2d(1, 1, FromDegrees(90))

	twist := start.Log(end)
	assert.InDelta(t, math.Pi/2, twist.Dx, 1e-9)
	assert.InDelta(t, 0, twist.Dy, 1e-9)
	assert.InDelta(t, math.Pi/2, twist.Dtheta, 1e-9)

	back := start.Exp(twist)
	assert.InDelta(t, 1, back.X(), 1e-9)
	assert.InDelta(t, 1, back.Y(), 1e-9)
	assert.InDelta(t, 90, back.Rotation.Degrees(), 1e-9)
}

func TestPoseRelativeTo(t *testing.T) {
	p := NewPose2d(2, 1, FromDegrees(45))
	origin := NewPose2d(1, 1, FromDegrees(90))
	rel := p.RelativeTo(origin)
	// one meter along field +x is one meter to the robot's right
	assert.InDelta(t, 0, rel.X(), eps)
	assert.InDelta(t, -1, rel.Y(), eps)
	assert.InDelta(t, -45, rel.Rotation.Degrees(), eps)
}

func TestFromFieldRelativeSpeeds(t *testing.T) {
	s := FromFieldRelativeSpeeds(1, 0, 0.5, FromDegrees(90))
	assert.InDelta(t, 0, s.Vx, eps)
	assert.InDelta(t, -1, s.Vy, eps)
	assert.Equal(t, 0.5, s.Omega)
	assert.False(t, s.IsZero())
	assert.True(t, ChassisSpeeds{}.IsZero())
}
