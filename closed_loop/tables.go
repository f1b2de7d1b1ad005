package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/multierr"

	"swerve-auto-core/config"
	"swerve-auto-core/constants"
	"swerve-auto-core/pathplanner"
)

// autosTable loads every path-backed auto and tabulates its trajectories.
// Autos that fail to load are listed with the error, which is also returned.
func autosTable(robot config.RobotConfig, loader *pathplanner.Loader) (string, error) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Source", "Vel", "Accel", "Paths", "Time (s)", "Dist (m)", ""})

	var err error
	for _, a := range robot.Autos {
		mark := ""
		if a.Name == robot.DefaultAuto {
			mark = "default"
		}
		if a.Builtin != "" {
			t.AppendRow(table.Row{a.Name, "builtin:" + a.Builtin, "", "", "", fmt.Sprintf("%.2f", a.Seconds), "", mark})
			continue
		}

		c := a.Constraints()
		group, lerr := loader.LoadPathGroup(a.Path, c)
		if lerr != nil {
			err = multierr.Append(err, fmt.Errorf("auto %q: %w", a.Name, lerr))
			t.AppendRow(table.Row{a.Name, a.Path, c.MaxVelocity, c.MaxAcceleration, "", "", "", lerr.Error()})
			continue
		}
		var seconds, meters float64
		for _, traj := range group {
			seconds += traj.TotalTimeSeconds()
			meters += traj.TotalDistanceMeters()
		}
		t.AppendRow(table.Row{
			a.Name, a.Path, c.MaxVelocity, c.MaxAcceleration, len(group),
			fmt.Sprintf("%.2f", seconds), fmt.Sprintf("%.2f", meters), mark,
		})
	}
	return t.Render(), err
}

func constantsTable() string {
	d := constants.Drivetrain
	tr := constants.Trajectory

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Group", "Name", "Value"})
	for i, ids := range d.ModuleIDs() {
		t.AppendRow(table.Row{"Drivetrain", moduleName(i) + " rotate/drive/encoder",
			fmt.Sprintf("%d / %d / %d", ids.Rotate, ids.Drive, ids.RotEncoder)})
	}
	rows := []table.Row{
		{"Drivetrain", "GearRatio", d.GearRatio},
		{"Drivetrain", "MetersPerRot", fmt.Sprintf("%.6f", d.MetersPerRot)},
		{"Drivetrain", "MetersPerSecondPerRPM", fmt.Sprintf("%.6f", d.MetersPerSecondPerRPM)},
		{"Drivetrain", "DegreesPerRot", d.DegreesPerRot},
		{"Drivetrain", "TrackWidthMeters", fmt.Sprintf("%.4f", d.TrackWidthMeters)},
		{"Drivetrain", "WheelBaseMeters", fmt.Sprintf("%.4f", d.WheelBaseMeters)},
		{"Drivetrain", "MaxAttainableSpeed (m/s)", fmt.Sprintf("%.3f", d.MaxAttainableSpeedMetersPerSecond)},
		{"Drivetrain", "MaxAttainableRotation (rad/s)", fmt.Sprintf("%.3f", d.MaxAttainableRotationRadPerSecond)},
		{"Drivetrain", "MaxSpeed (m/s)", d.MaxSpeedMetersPerSecond},
		{"Drivetrain", "MaxAcceleration (m/s²)", d.MaxAccelerationMetersPerSecondSq},
		{"Trajectory", "MaxVelocity (m/s)", tr.MaxVelocityMetersPerSecond},
		{"Trajectory", "MaxAcceleration (m/s²)", tr.MaxAccelerationMetersPerSecondSquared},
		{"Trajectory", "MaxCentripetalAcceleration (m/s²)", tr.MaxCentripetalAcceleration},
		{"Arm", "VelocityConversionFactor", fmt.Sprintf("%.6f", constants.Arm.VelocityConversionFactor)},
	}
	t.AppendRows(rows)
	return t.Render()
}

func moduleName(i int) string {
	return [...]string{"FrontLeft", "FrontRight", "BackLeft", "BackRight"}[i]
}
