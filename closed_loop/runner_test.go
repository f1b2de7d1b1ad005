package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"swerve-auto-core/auto"
	"swerve-auto-core/command"
	"swerve-auto-core/config"
	"swerve-auto-core/constants"
	"swerve-auto-core/drivetrain"
	"swerve-auto-core/pathplanner"
	"swerve-auto-core/utils"
)

const shortPath = `{
  "waypoints": [
    {"anchorPoint": {"x": 2, "y": 1}, "nextControl": {"x": 2.2, "y": 1}, "holonomicAngle": 0,
     "stopEvent": {"names": ["ready"], "executionBehavior": "parallel", "waitBehavior": "none"}},
    {"anchorPoint": {"x": 2.6, "y": 1}, "prevControl": {"x": 2.4, "y": 1}, "holonomicAngle": 0,
     "stopEvent": {"names": [], "executionBehavior": "parallel", "waitBehavior": "none"}}
  ]
}`

func simConfig(t *testing.T) config.RobotConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.path"), []byte(shortPath), 0o644))

	cfg := config.Default()
	cfg.Sim = true
	cfg.DeployDir = dir
	cfg.LoopPeriodMS = 5
	cfg.Autos = []config.AutoConfig{
		{Name: "Do Nothing", Builtin: config.BuiltinNone},
		{Name: "Short", Path: "short"},
		{Name: "Mobility", Builtin: config.BuiltinDriveForward, SpeedMPS: 0.5, Seconds: 0.2},
	}
	cfg.DefaultAuto = "Do Nothing"
	cfg.Events = map[string]config.EventConfig{"ready": {Action: config.ActionPrint}}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunnerRunsSelectedPathAuto(t *testing.T) {
	defer goleak.VerifyNone(t)
	robot := simConfig(t)
	robot.SelectionFile = filepath.Join(t.TempDir(), "selection")

	r, err := NewRunner(context.Background(), RunnerConfig{
		Robot:      robot,
		Alliance:   pathplanner.AllianceBlue,
		Auto:       "Short",
		StartDelay: 10 * time.Millisecond,
	}, clock.New(), utils.NewNopLogger())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"Do Nothing", "Mobility", "Short"}, r.picker.Names())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	pose := r.drive.Pose()
	assert.InDelta(t, 2.6, pose.X(), 0.15)
	assert.InDelta(t, 1, pose.Y(), 0.15)
}

func TestRunnerDefaultAuto(t *testing.T) {
	r, err := NewRunner(context.Background(), RunnerConfig{Robot: simConfig(t)}, clock.New(), utils.NewNopLogger())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "Do Nothing", r.picker.SelectedName())
	require.NoError(t, r.Run(context.Background()))
	pose := r.drive.Pose()
	assert.InDelta(t, 0, pose.X(), 1e-9)
	assert.InDelta(t, 0, pose.Y(), 1e-9)
}

func TestRunnerCanceled(t *testing.T) {
	r, err := NewRunner(context.Background(), RunnerConfig{Robot: simConfig(t)}, clock.New(), utils.NewNopLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestNewRunnerErrors(t *testing.T) {
	robot := simConfig(t)
	robot.Autos = append(robot.Autos, config.AutoConfig{Name: "Ghost", Path: "ghost"})
	_, err := NewRunner(context.Background(), RunnerConfig{Robot: robot}, clock.New(), utils.NewNopLogger())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorContains(t, err, `auto "Ghost"`)

	_, err = NewRunner(context.Background(), RunnerConfig{Robot: simConfig(t), Auto: "Nope"}, clock.New(), utils.NewNopLogger())
	assert.ErrorIs(t, err, auto.ErrUnknownAuto)

	robot = simConfig(t)
	robot.Sim = false
	robot.CAN.MapPath = filepath.Join(t.TempDir(), "missing.csv")
	_, err = NewRunner(context.Background(), RunnerConfig{Robot: robot}, clock.New(), utils.NewNopLogger())
	assert.ErrorContains(t, err, "load can map")
}

func TestBuildEventMap(t *testing.T) {
	m := buildEventMap(map[string]config.EventConfig{
		"score": {Action: config.ActionWait, Seconds: 0.6},
		"stow":  {Action: config.ActionPrint},
	}, clock.NewMock(), utils.NewNopLogger())

	require.Len(t, m, 2)
	assert.Equal(t, "Wait(600ms)", command.NameOf(m["score"]))
	assert.Equal(t, "Print", command.NameOf(m["stow"]))
}

func TestDriveForwardRampsAndStops(t *testing.T) {
	clk := clock.NewMock()
	kin := constants.DriveKinematics()
	sims := make([]*drivetrain.SimModuleIO, kin.NumModules())
	for i := range sims {
		sims[i] = drivetrain.NewSimModuleIO(clk)
	}
	dt, err := drivetrain.NewSim(utils.NewNopLogger(), kin, sims, constants.Drivetrain.MaxAttainableSpeedMetersPerSecond)
	require.NoError(t, err)

	c := driveForward(dt, clk, 0.5, 1, 0.02)
	s := command.NewScheduler(utils.NewNopLogger(), command.WithClock(clk))
	s.RegisterSubsystem(dt)
	s.Schedule(c)

	tick := func() {
		clk.Add(20 * time.Millisecond)
		s.Run()
	}
	tick()
	assert.InDelta(t, 0.02, sims[0].State().SpeedMetersPerSecond, 1e-9, "slew limited")
	for i := 0; i < 30; i++ {
		tick()
	}
	assert.InDelta(t, 0.5, sims[0].State().SpeedMetersPerSecond, 1e-9)

	for i := 0; i < 100 && s.IsScheduled(c); i++ {
		tick()
	}
	require.False(t, s.IsScheduled(c))
	for _, m := range sims {
		assert.Zero(t, m.State().SpeedMetersPerSecond)
	}
	assert.InDelta(t, 0.37, dt.Pose().X(), 0.02)
}

func TestDriveForwardDefaultsToMaxSpeed(t *testing.T) {
	clk := clock.NewMock()
	kin := constants.DriveKinematics()
	sims := make([]*drivetrain.SimModuleIO, kin.NumModules())
	for i := range sims {
		sims[i] = drivetrain.NewSimModuleIO(clk)
	}
	dt, err := drivetrain.NewSim(utils.NewNopLogger(), kin, sims, 4)
	require.NoError(t, err)

	c := driveForward(dt, clk, 0, 10, 0.02)
	s := command.NewScheduler(utils.NewNopLogger(), command.WithClock(clk))
	s.Schedule(c)
	for i := 0; i < 200; i++ {
		clk.Add(20 * time.Millisecond)
		s.Run()
	}
	assert.InDelta(t, constants.Drivetrain.MaxSpeedMetersPerSecond, sims[0].State().SpeedMetersPerSecond, 1e-9)
}

func TestAutosTable(t *testing.T) {
	robot := simConfig(t)
	loader := pathplanner.NewDirLoader(robot.DeployDir)

	out, err := autosTable(robot, loader)
	require.NoError(t, err)
	for _, want := range []string{"Do Nothing", "builtin:none", "Short", "short", "default"} {
		assert.Contains(t, out, want)
	}

	robot.Autos = append(robot.Autos, config.AutoConfig{Name: "Ghost", Path: "ghost"})
	out, err = autosTable(robot, loader)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, out, "Ghost")
}

func TestConstantsTable(t *testing.T) {
	out := constantsTable()
	for _, want := range []string{"FrontLeft rotate/drive/encoder", "GearRatio", "MaxCentripetalAcceleration", "VelocityConversionFactor"} {
		assert.Contains(t, out, want)
	}
}
