package control

import (
	"math"

	"swerve-auto-core/geometry"
)

// Reference is the trajectory sample the holonomic controller tracks
type Reference struct {
	Pose                     geometry.Pose2d     // position and direction of travel
	VelocityMetersPerSecond  float64             // speed along the direction of travel
	HolonomicRotation        geometry.Rotation2d // robot heading
	HolonomicAngularVelocity float64             // rad/s
}

// HolonomicDriveController tracks a reference with x, y and heading PID loops
// on top of the reference's own velocity as feedforward
type HolonomicDriveController struct {
	xController        *PIDController
	yController        *PIDController
	rotationController *PIDController

	enabled bool
}

// NewHolonomicDriveController creates a controller from translation and rotation gains
func NewHolonomicDriveController(cfg ControllerConfig) *HolonomicDriveController {
	rot := NewPIDController(cfg.Rotation, cfg.PeriodS)
	rot.EnableContinuousInput(-math.Pi, math.Pi)
	return &HolonomicDriveController{
		xController:        NewPIDController(cfg.Translation, cfg.PeriodS),
		yController:        NewPIDController(cfg.Translation, cfg.PeriodS),
		rotationController: rot,
		enabled:            true,
	}
}

// SetEnabled switches feedback off, leaving pure feedforward
func (c *HolonomicDriveController) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Reset clears every loop
func (c *HolonomicDriveController) Reset() {
	c.xController.Reset()
	c.yController.Reset()
	c.rotationController.Reset()
}

// Calculate returns robot-relative chassis speeds driving current toward ref
func (c *HolonomicDriveController) Calculate(current geometry.Pose2d, ref Reference) geometry.ChassisSpeeds {
	heading := ref.Pose.Rotation
	xFF := ref.VelocityMetersPerSecond * heading.Cos()
	yFF := ref.VelocityMetersPerSecond * heading.Sin()
	rotFF := ref.HolonomicAngularVelocity

	if !c.enabled {
		return geometry.FromFieldRelativeSpeeds(xFF, yFF, rotFF, current.Rotation)
	}

	xFB := c.xController.Calculate(current.X(), ref.Pose.X())
	yFB := c.yController.Calculate(current.Y(), ref.Pose.Y())
	rotFB := c.rotationController.Calculate(current.Rotation.Radians(), ref.HolonomicRotation.Radians())

	return geometry.FromFieldRelativeSpeeds(xFF+xFB, yFF+yFB, rotFF+rotFB, current.Rotation)
}

// Errors returns the last x, y and heading errors
func (c *HolonomicDriveController) Errors() (x, y, rotation float64) {
	return c.xController.GetDiagnostics().Error,
		c.yController.GetDiagnostics().Error,
		c.rotationController.GetDiagnostics().Error
}
