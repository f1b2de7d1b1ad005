// Package geometry holds the planar types shared by kinematics, path
// following and odometry. Field coordinates are meters with +x away from the
// blue alliance wall and +y to the left; angles are counter-clockwise positive.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Translation2d is a point or displacement in meters.
type Translation2d struct {
	r2.Point
}

func NewTranslation2d(x, y float64) Translation2d {
	return Translation2d{r2.Point{X: x, Y: y}}
}

// TranslationFromPolar builds a translation of the given length along angle.
func TranslationFromPolar(distance float64, angle Rotation2d) Translation2d {
	return NewTranslation2d(distance*angle.Cos(), distance*angle.Sin())
}

func (t Translation2d) Plus(o Translation2d) Translation2d  { return Translation2d{t.Add(o.Point)} }
func (t Translation2d) Minus(o Translation2d) Translation2d { return Translation2d{t.Sub(o.Point)} }
func (t Translation2d) Times(k float64) Translation2d       { return Translation2d{t.Mul(k)} }
func (t Translation2d) Distance(o Translation2d) float64    { return t.Sub(o.Point).Norm() }

// Angle is the direction of the vector from the origin.
func (t Translation2d) Angle() Rotation2d { return Rotation2d(s1.Angle(math.Atan2(t.Y, t.X))) }

// RotateBy rotates the translation counter-clockwise about the origin.
func (t Translation2d) RotateBy(r Rotation2d) Translation2d {
	c, s := r.Cos(), r.Sin()
	return NewTranslation2d(t.X*c-t.Y*s, t.X*s+t.Y*c)
}

// Interpolate returns the point a fraction f of the way toward end.
func (t Translation2d) Interpolate(end Translation2d, f float64) Translation2d {
	return t.Plus(end.Minus(t).Times(f))
}

// Rotation2d is a heading in radians.
type Rotation2d s1.Angle

func FromRadians(rad float64) Rotation2d { return Rotation2d(s1.Angle(rad)) }
func FromDegrees(deg float64) Rotation2d { return Rotation2d(s1.Angle(deg) * s1.Degree) }

func (r Rotation2d) Radians() float64 { return s1.Angle(r).Radians() }
func (r Rotation2d) Degrees() float64 { return s1.Angle(r).Degrees() }
func (r Rotation2d) Cos() float64     { return math.Cos(r.Radians()) }
func (r Rotation2d) Sin() float64     { return math.Sin(r.Radians()) }

// Plus adds two rotations and wraps the result to (-pi, pi].
func (r Rotation2d) Plus(o Rotation2d) Rotation2d {
	return Rotation2d((s1.Angle(r) + s1.Angle(o)).Normalized())
}

// Minus subtracts o and wraps the result to (-pi, pi].
func (r Rotation2d) Minus(o Rotation2d) Rotation2d {
	return Rotation2d((s1.Angle(r) - s1.Angle(o)).Normalized())
}

func (r Rotation2d) Neg() Rotation2d { return Rotation2d((-s1.Angle(r)).Normalized()) }

// Interpolate follows the shorter arc toward end.
func (r Rotation2d) Interpolate(end Rotation2d, f float64) Rotation2d {
	return r.Plus(FromRadians(end.Minus(r).Radians() * f))
}

// Pose2d is a position and heading on the field.
type Pose2d struct {
	Translation Translation2d
	Rotation    Rotation2d
}

func NewPose2d(x, y float64, rot Rotation2d) Pose2d {
	return Pose2d{Translation: NewTranslation2d(x, y), Rotation: rot}
}

func (p Pose2d) X() float64 { return p.Translation.X }
func (p Pose2d) Y() float64 { return p.Translation.Y }

// Twist2d is a displacement along an arc in the robot frame.
type Twist2d struct {
	Dx, Dy, Dtheta float64
}

// Exp applies a twist to the pose using the pose exponential.
func (p Pose2d) Exp(t Twist2d) Pose2d {
	sinTheta, cosTheta := math.Sin(t.Dtheta), math.Cos(t.Dtheta)

	var s, c float64
	if math.Abs(t.Dtheta) < 1e-9 {
		s = 1.0 - t.Dtheta*t.Dtheta/6.0
		c = 0.5 * t.Dtheta
	} else {
		s = sinTheta / t.Dtheta
		c = (1 - cosTheta) / t.Dtheta
	}

	delta := NewTranslation2d(t.Dx*s-t.Dy*c, t.Dx*c+t.Dy*s).RotateBy(p.Rotation)
	return Pose2d{
		Translation: p.Translation.Plus(delta),
		Rotation:    p.Rotation.Plus(FromRadians(t.Dtheta)),
	}
}

// RelativeTo expresses p in the frame of other.
func (p Pose2d) RelativeTo(other Pose2d) Pose2d {
	return Pose2d{
		Translation: p.Translation.Minus(other.Translation).RotateBy(other.Rotation.Neg()),
		Rotation:    p.Rotation.Minus(other.Rotation),
	}
}

// Log returns the twist that takes p to end.
func (p Pose2d) Log(end Pose2d) Twist2d {
	rel := end.RelativeTo(p)
	dtheta := rel.Rotation.Radians()
	halfDtheta := dtheta / 2.0
	cosMinusOne := math.Cos(dtheta) - 1

	var halfThetaByTanOfHalfDtheta float64
	if math.Abs(cosMinusOne) < 1e-9 {
		halfThetaByTanOfHalfDtheta = 1.0 - dtheta*dtheta/12.0
	} else {
		halfThetaByTanOfHalfDtheta = -(halfDtheta * math.Sin(dtheta)) / cosMinusOne
	}

	tr := rel.Translation.RotateBy(FromRadians(-halfDtheta)).
		Times(math.Hypot(halfThetaByTanOfHalfDtheta, halfDtheta))
	return Twist2d{Dx: tr.X, Dy: tr.Y, Dtheta: dtheta}
}

// ChassisSpeeds is a robot-relative velocity: vx forward, vy left, omega CCW.
type ChassisSpeeds struct {
	Vx, Vy, Omega float64
}

// FromFieldRelativeSpeeds rotates field-relative speeds into the robot frame.
func FromFieldRelativeSpeeds(vx, vy, omega float64, robotAngle Rotation2d) ChassisSpeeds {
	v := NewTranslation2d(vx, vy).RotateBy(robotAngle.Neg())
	return ChassisSpeeds{Vx: v.X, Vy: v.Y, Omega: omega}
}

// IsZero reports whether the robot is commanded to stand still.
func (c ChassisSpeeds) IsZero() bool {
	return c.Vx == 0 && c.Vy == 0 && c.Omega == 0
}
