// Package constants is the robot-wide catalog of numeric and boolean
// parameters. Values that follow from other values are computed once at
// package initialization; edit the inputs, never the derived values.
package constants

import (
	"math"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
)

// InchesToMeters converts a length in inches to meters.
func InchesToMeters(in float64) float64 { return in * 0.0254 }

// Operator interface.
var Operator = struct {
	DriverControllerPort      int
	ManipulatorControllerPort int
}{
	DriverControllerPort:      0,
	ManipulatorControllerPort: 1,
}

// ModuleIDs are the CAN IDs of one swerve module.
type ModuleIDs struct {
	Rotate     int // turn motor
	Drive      int // drive motor
	RotEncoder int // turn encoder
}

// NEO free speed used for the attainable speed limits.
const MotorFreeSpeedRPM = 5880.0

type drivetrainConstants struct {
	FrontLeft, FrontRight, BackLeft, BackRight ModuleIDs

	// Gearing & conversions
	GearRatio              float64 // driving gear ratio of each swerve module
	WheelRadiusInches      float64
	MetersPerRot           float64 // drive encoder position factor
	MetersPerSecondPerRPM  float64 // drive encoder velocity factor
	RotateGearRatio        float64 // 1 while the turn encoder sits on the output shaft
	DegreesPerRot          float64 // turn encoder position factor
	DegreesPerSecondPerRPM float64 // turn encoder velocity factor

	// Drivebase
	TrackWidthMeters float64 // left-right distance between wheels
	WheelBaseMeters  float64 // front-back distance between wheels

	MaxAttainableSpeedMetersPerSecond  float64
	MaxAttainableRotationRadPerSecond  float64
	MaxSpeedMetersPerSecond            float64
	MaxAccelerationMetersPerSecondSq   float64
	MaxRotationRadPerSecond            float64
	MaxRotationAccelerationRadPerSecSq float64

	// Feedforward
	KsVolts                      float64
	KvVoltSecondsPerMeter        float64
	KaVoltSecondsSquaredPerMeter float64

	ModuleDriveP, ModuleDriveI, ModuleDriveD float64
	ModuleTurnP, ModuleTurnI, ModuleTurnD    float64

	// Turn-in-place PID for the whole robot
	TurnP, TurnI, TurnD, TurnFF float64
	TurnErrorThreshold          float64
	TurnVelocityThreshold       float64

	DriveCurrentLimit int
	TurnCurrentLimit  int

	ForwardSlewRate float64
	StrafeSlewRate  float64
	TurnSlewRate    float64
}

// ModuleLocations returns FL, FR, BL, BR wheel positions relative to the robot center.
func (d *drivetrainConstants) ModuleLocations() []geometry.Translation2d {
	x, y := d.TrackWidthMeters/2, d.WheelBaseMeters/2
	return []geometry.Translation2d{
		geometry.NewTranslation2d(x, y),   // front left
		geometry.NewTranslation2d(x, -y),  // front right
		geometry.NewTranslation2d(-x, y),  // back left
		geometry.NewTranslation2d(-x, -y), // back right
	}
}

// DriveFeedforward is the drive motors' characterized feedforward.
func (d *drivetrainConstants) DriveFeedforward() control.FeedforwardConstants {
	return control.FeedforwardConstants{
		Ks: d.KsVolts,
		Kv: d.KvVoltSecondsPerMeter,
		Ka: d.KaVoltSecondsSquaredPerMeter,
	}
}

// ModuleIDs returns module CAN IDs in kinematics order.
func (d *drivetrainConstants) ModuleIDs() [4]ModuleIDs {
	return [4]ModuleIDs{d.FrontLeft, d.FrontRight, d.BackLeft, d.BackRight}
}

var Drivetrain = newDrivetrain()

func newDrivetrain() drivetrainConstants {
	d := drivetrainConstants{
		FrontLeft:  ModuleIDs{Rotate: 3, Drive: 4, RotEncoder: 15},
		FrontRight: ModuleIDs{Rotate: 5, Drive: 6, RotEncoder: 16},
		BackLeft:   ModuleIDs{Rotate: 1, Drive: 2, RotEncoder: 14},
		BackRight:  ModuleIDs{Rotate: 7, Drive: 8, RotEncoder: 13},

		GearRatio:         6.12,
		WheelRadiusInches: 1.5,
		RotateGearRatio:   1,
		TrackWidthMeters:  InchesToMeters(23.0),
		WheelBaseMeters:   InchesToMeters(23.0),

		// TODO: tune against the carpet once the robot drives; 1 m/s is a bring-up value
		MaxSpeedMetersPerSecond:            1.0,
		MaxRotationRadPerSecond:            math.Pi,
		MaxRotationAccelerationRadPerSecSq: math.Pi,

		ModuleTurnP: 0.01,
		ModuleTurnD: 0.0001,

		DriveCurrentLimit: 40,
		TurnCurrentLimit:  20,
	}

	d.MetersPerRot = InchesToMeters(2 * math.Pi * d.WheelRadiusInches / d.GearRatio)
	d.MetersPerSecondPerRPM = d.MetersPerRot / 60
	d.DegreesPerRot = 360 / d.RotateGearRatio
	d.DegreesPerSecondPerRPM = d.DegreesPerRot / 60

	d.MaxAttainableSpeedMetersPerSecond = MotorFreeSpeedRPM / 60.0 / d.GearRatio *
		2 * InchesToMeters(d.WheelRadiusInches) * math.Pi
	d.MaxAttainableRotationRadPerSecond = d.MaxAttainableSpeedMetersPerSecond /
		math.Hypot(d.TrackWidthMeters/2, d.WheelBaseMeters/2)

	// reach max speed in one second
	d.MaxAccelerationMetersPerSecondSq = d.MaxSpeedMetersPerSecond / 1.0

	d.ForwardSlewRate = d.MaxAccelerationMetersPerSecondSq
	d.StrafeSlewRate = d.MaxAccelerationMetersPerSecondSq
	d.TurnSlewRate = d.MaxRotationAccelerationRadPerSecSq
	return d
}

// DriveKinematics builds the swerve kinematics for the module layout.
func DriveKinematics() *kinematics.SwerveDriveKinematics {
	return kinematics.NewSwerveDriveKinematics(Drivetrain.ModuleLocations()...)
}

type trajectoryConstants struct {
	// translation PID for trajectory following
	DriveP, DriveI, DriveD float64
	// rotation PID, same as the robot turn PID
	OmegaP, OmegaI, OmegaD float64

	MaxVelocityMetersPerSecond            float64
	MaxAccelerationMetersPerSecondSquared float64
	MaxCentripetalAcceleration            float64
}

var Trajectory = trajectoryConstants{
	OmegaP: Drivetrain.TurnP,
	OmegaI: Drivetrain.TurnI,
	OmegaD: Drivetrain.TurnD,

	MaxVelocityMetersPerSecond:            3.21,
	MaxAccelerationMetersPerSecondSquared: 2.54,
	MaxCentripetalAcceleration:            0.8,
}

type armConstants struct {
	MotorID                  int
	FF                       float64
	S, V, G, A, T            float64
	ArmLength                float64
	ArmWeight                float64
	MotorOhms                float64
	GearBox                  float64
	InitialAngle             float64
	GroundAngle              float64
	P                        float64
	CurrentLimit             int
	ConversionFactor         float64
	VelocityConversionFactor float64
	AngleError               float64
}

var Arm = newArm()

func newArm() armConstants {
	a := armConstants{
		InitialAngle:     120,
		CurrentLimit:     40,
		ConversionFactor: 0.5,
	}
	a.VelocityConversionFactor = a.ConversionFactor / 60
	return a
}

var Intake = struct {
	MotorRightID  int
	MotorLeftID   int
	MotorLimit    int
	RightInverted bool
	LeftInverted  bool
}{
	MotorRightID:  1,
	MotorLeftID:   2,
	MotorLimit:    40,
	RightInverted: true,
	LeftInverted:  true,
}

var BalanceAuto = struct {
	P, I, D        float64
	ErrorThreshold float64
}{}
