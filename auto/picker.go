// Package auto binds the drivetrain to the path-following builder and keeps
// the registry of autonomous routines the operator picks from at match start.
package auto

import (
	"github.com/benbjohnson/clock"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/command"
	"swerve-auto-core/constants"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/pathplanner"
	"swerve-auto-core/utils"
)

// Drivetrain is the swerve base routines drive. It is the requirement of
// every path-following command the picker builds.
type Drivetrain interface {
	command.Subsystem
	Pose() geometry.Pose2d
	ResetPose(geometry.Pose2d)
	SwerveDrive([]kinematics.SwerveModuleState)
	Kinematics() *kinematics.SwerveDriveKinematics
}

// PathLoader loads a path file as a group of trajectories.
type PathLoader interface {
	LoadPathGroup(name string, c pathplanner.PathConstraints) ([]*pathplanner.Trajectory, error)
}

type pickerConfig struct {
	eventMap         pathplanner.EventMap
	alliance         func() pathplanner.Alliance
	useAllianceColor bool
	translation      control.PIDConstants
	rotation         control.PIDConstants
	clk              clock.Clock
	periodS          float64
	log              *utils.Logger
}

// Option configures a Picker.
type Option func(*pickerConfig)

// WithEventMap sets the commands path markers and stop points trigger.
func WithEventMap(m pathplanner.EventMap) Option {
	return func(c *pickerConfig) { c.eventMap = m }
}

// WithAlliance sets where the alliance is read from when a routine starts.
func WithAlliance(f func() pathplanner.Alliance) Option {
	return func(c *pickerConfig) { c.alliance = f }
}

// WithoutAllianceMirroring drives every path as authored.
func WithoutAllianceMirroring() Option {
	return func(c *pickerConfig) { c.useAllianceColor = false }
}

// WithPID overrides the trajectory gains from the constants catalog.
func WithPID(translation, rotation control.PIDConstants) Option {
	return func(c *pickerConfig) {
		c.translation = translation
		c.rotation = rotation
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *pickerConfig) { c.clk = clk }
}

func WithPeriod(seconds float64) Option {
	return func(c *pickerConfig) { c.periodS = seconds }
}

func WithLogger(log *utils.Logger) Option {
	return func(c *pickerConfig) { c.log = log }
}

// Picker registers autonomous routines and hands out the selected one.
type Picker struct {
	chooser *Chooser
	builder *pathplanner.AutoBuilder
	loader  PathLoader
	log     *utils.Logger
}

// NewPicker binds the builder to drivetrain. It panics on a nil drivetrain
// or loader.
func NewPicker(drivetrain Drivetrain, loader PathLoader, opts ...Option) *Picker {
	if drivetrain == nil {
		panic("auto: nil drivetrain")
	}
	if loader == nil {
		panic("auto: nil path loader")
	}

	cfg := pickerConfig{
		eventMap:         pathplanner.EventMap{},
		alliance:         func() pathplanner.Alliance { return pathplanner.AllianceBlue },
		useAllianceColor: true,
		translation: control.PIDConstants{
			Kp: constants.Trajectory.DriveP,
			Ki: constants.Trajectory.DriveI,
			Kd: constants.Trajectory.DriveD,
		},
		rotation: control.PIDConstants{
			Kp: constants.Trajectory.OmegaP,
			Ki: constants.Trajectory.OmegaI,
			Kd: constants.Trajectory.OmegaD,
		},
		clk:     clock.New(),
		periodS: control.DefaultPeriodS,
		log:     utils.NewNopLogger(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	builder, err := pathplanner.NewAutoBuilder(pathplanner.BuilderConfig{
		PoseSupplier:       drivetrain.Pose,
		ResetPose:          drivetrain.ResetPose,
		Kinematics:         drivetrain.Kinematics(),
		TranslationPID:     cfg.translation,
		RotationPID:        cfg.rotation,
		OutputModuleStates: drivetrain.SwerveDrive,
		EventMap:           cfg.eventMap,
		UseAllianceColor:   cfg.useAllianceColor,
		Alliance:           cfg.alliance,
		Requirements:       []command.Subsystem{drivetrain},
		Clock:              cfg.clk,
		PeriodS:            cfg.periodS,
		Log:                cfg.log,
	})
	if err != nil {
		// every required field is set above
		panic(err)
	}

	return &Picker{
		chooser: NewChooser(),
		builder: builder,
		loader:  loader,
		log:     cfg.log,
	}
}

// AddAuto registers routine under name. A second registration under the
// same name replaces the first and logs a warning.
func (p *Picker) AddAuto(name string, routine command.Command) {
	if p.chooser.AddOption(name, routine) {
		p.log.Warn("auto %q registered twice; keeping the latest", name)
	}
}

// SetDefaultAuto registers routine under name and runs it when the operator
// selects nothing.
func (p *Picker) SetDefaultAuto(name string, routine command.Command) {
	if p.chooser.SetDefaultOption(name, routine) {
		p.log.Warn("auto %q registered twice; keeping the latest", name)
	}
}

// SetDefault makes an already registered routine the default.
func (p *Picker) SetDefault(name string) error { return p.chooser.SetDefault(name) }

// AddAutoFromFile builds a full auto from a path file with the trajectory
// velocity and acceleration limits from the constants catalog.
func (p *Picker) AddAutoFromFile(name, fileName string) (command.Command, error) {
	return p.AddAutoFromFileWithConstraints(name, fileName,
		constants.Trajectory.MaxVelocityMetersPerSecond,
		constants.Trajectory.MaxAccelerationMetersPerSecondSquared)
}

// AddAutoFromFileWithConstraints loads fileName as a path group, builds the
// full auto, registers it under name and returns it. Loader and builder
// errors are returned as they are.
func (p *Picker) AddAutoFromFileWithConstraints(name, fileName string, maxVel, maxAccel float64) (command.Command, error) {
	group, err := p.loader.LoadPathGroup(fileName, pathplanner.PathConstraints{
		MaxVelocity:     maxVel,
		MaxAcceleration: maxAccel,
	})
	if err != nil {
		return nil, err
	}
	routine, err := p.builder.FullAuto(group...)
	if err != nil {
		return nil, err
	}
	p.AddAuto(name, routine)
	p.log.Info("auto %q from %s: %d paths", name, fileName, len(group))
	return routine, nil
}

// SelectedAuto returns the routine chosen by the operator, the default when
// nothing was chosen, or a command that does nothing.
func (p *Picker) SelectedAuto() command.Command {
	if _, c, ok := p.chooser.Selected(); ok {
		return c
	}
	return command.None()
}

// SelectedName is the name of the routine SelectedAuto returns, or "".
func (p *Picker) SelectedName() string {
	name, _, _ := p.chooser.Selected()
	return name
}

func (p *Picker) Select(name string) error { return p.chooser.Select(name) }

func (p *Picker) Names() []string { return p.chooser.Names() }

func (p *Picker) Chooser() *Chooser { return p.chooser }

func (p *Picker) Builder() *pathplanner.AutoBuilder { return p.builder }
