package main

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"swerve-auto-core/auto"
	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/command"
	"swerve-auto-core/config"
	"swerve-auto-core/constants"
	"swerve-auto-core/drivetrain"
	"swerve-auto-core/geometry"
	"swerve-auto-core/pathplanner"
	"swerve-auto-core/utils"
)

// buildEventMap turns the configured event actions into commands.
func buildEventMap(events map[string]config.EventConfig, clk clock.Clock, log *utils.Logger) pathplanner.EventMap {
	m := make(pathplanner.EventMap, len(events))
	for name, ev := range events {
		switch ev.Action {
		case config.ActionWait:
			m[name] = command.Wait(clk, command.Seconds(ev.Seconds))
		case config.ActionPrint:
			msg := ev.Message
			if msg == "" {
				msg = name
			}
			m[name] = command.Print(log, msg)
		}
	}
	return m
}

// driveForward ramps up to speed robot-forward at the forward slew rate,
// drives for seconds, then stops.
func driveForward(dt *drivetrain.Drivetrain, clk clock.Clock, speed, seconds, periodS float64) command.Command {
	if speed == 0 {
		speed = constants.Drivetrain.MaxSpeedMetersPerSecond
	}
	ramp := control.NewSlewRateLimiter(constants.Drivetrain.ForwardSlewRate, 0)
	drive := command.NewFunctional("DriveForward",
		func() { ramp.Reset(0) },
		func() { dt.Drive(geometry.ChassisSpeeds{Vx: ramp.Calculate(speed, periodS)}) },
		func(bool) { dt.Stop() },
		nil,
		dt)
	return command.WithTimeout(clk, drive, command.Seconds(seconds))
}

// registerAutos adds every configured auto to the picker. All failures are
// reported together.
func registerAutos(p *auto.Picker, autos []config.AutoConfig, dt *drivetrain.Drivetrain, clk clock.Clock, periodS float64) error {
	var err error
	for _, a := range autos {
		switch {
		case a.Builtin == config.BuiltinNone:
			p.AddAuto(a.Name, command.None())
		case a.Builtin == config.BuiltinDriveForward:
			p.AddAuto(a.Name, driveForward(dt, clk, a.SpeedMPS, a.Seconds, periodS))
		case a.HasConstraints():
			c := a.Constraints()
			if _, aerr := p.AddAutoFromFileWithConstraints(a.Name, a.Path, c.MaxVelocity, c.MaxAcceleration); aerr != nil {
				err = multierr.Append(err, fmt.Errorf("auto %q: %w", a.Name, aerr))
			}
		default:
			if _, aerr := p.AddAutoFromFile(a.Name, a.Path); aerr != nil {
				err = multierr.Append(err, fmt.Errorf("auto %q: %w", a.Name, aerr))
			}
		}
	}
	return err
}
