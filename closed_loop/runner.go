package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"swerve-auto-core/auto"
	"swerve-auto-core/command"
	"swerve-auto-core/config"
	"swerve-auto-core/constants"
	"swerve-auto-core/drivetrain"
	"swerve-auto-core/pathplanner"
	"swerve-auto-core/utils"
)

type RunnerConfig struct {
	Robot    config.RobotConfig
	Alliance pathplanner.Alliance
	// Auto overrides the selection file and the configured default.
	Auto string
	// StartDelay is spent disabled before the auto starts: odometry runs and
	// the selection file is still honoured.
	StartDelay time.Duration
}

type Runner struct {
	id  uuid.UUID
	cfg RunnerConfig
	log *utils.Logger
	clk clock.Clock

	bus     *utils.CANBus // nil in simulation
	modules drivetrain.CANModules
	drive   *drivetrain.Drivetrain
	picker  *auto.Picker
	sched   *command.Scheduler
}

func NewRunner(ctx context.Context, cfg RunnerConfig, clk clock.Clock, log *utils.Logger) (*Runner, error) {
	r := &Runner{
		id:  uuid.New(),
		cfg: cfg,
		log: log,
		clk: clk,
	}
	if err := r.buildDrivetrain(ctx); err != nil {
		return nil, err
	}

	loader := pathplanner.NewDirLoader(cfg.Robot.DeployDir,
		pathplanner.WithMaxCentripetalAcceleration(cfg.Robot.MaxCentripetalAccel),
		pathplanner.WithLogger(log.Named("paths")))

	opts := []auto.Option{
		auto.WithEventMap(buildEventMap(cfg.Robot.Events, clk, log.Named("events"))),
		auto.WithAlliance(func() pathplanner.Alliance { return r.cfg.Alliance }),
		auto.WithClock(clk),
		auto.WithPeriod(cfg.Robot.LoopPeriod().Seconds()),
		auto.WithLogger(log.Named("auto")),
	}
	if !cfg.Robot.MirrorForAlliance() {
		opts = append(opts, auto.WithoutAllianceMirroring())
	}
	r.picker = auto.NewPicker(r.drive, loader, opts...)

	if err := registerAutos(r.picker, cfg.Robot.Autos, r.drive, clk, cfg.Robot.LoopPeriod().Seconds()); err != nil {
		r.Close()
		return nil, fmt.Errorf("register autos: %w", err)
	}
	if cfg.Robot.DefaultAuto != "" {
		if err := r.picker.SetDefault(cfg.Robot.DefaultAuto); err != nil {
			r.Close()
			return nil, err
		}
	}
	if cfg.Auto != "" {
		if err := r.picker.Select(cfg.Auto); err != nil {
			r.Close()
			return nil, err
		}
	}

	r.sched = command.NewScheduler(log.Named("scheduler"),
		command.WithClock(clk),
		command.WithPeriod(cfg.Robot.LoopPeriod()))
	r.sched.RegisterSubsystem(r.drive)
	return r, nil
}

func (r *Runner) buildDrivetrain(ctx context.Context) error {
	kin := constants.DriveKinematics()
	maxSpeed := constants.Drivetrain.MaxAttainableSpeedMetersPerSecond
	dlog := r.log.Named("drivetrain")

	if r.cfg.Robot.Sim {
		sims := make([]*drivetrain.SimModuleIO, kin.NumModules())
		for i := range sims {
			sims[i] = drivetrain.NewSimModuleIO(r.clk)
		}
		dt, err := drivetrain.NewSim(dlog, kin, sims, maxSpeed)
		if err != nil {
			return err
		}
		r.drive = dt
		return nil
	}

	cmap, err := utils.LoadCANMap(r.cfg.Robot.CAN.MapPath)
	if err != nil {
		return fmt.Errorf("load can map: %w", err)
	}
	bus, err := utils.DialCANBus(ctx, r.cfg.Robot.CAN.Interface, cmap)
	if err != nil {
		return err
	}
	modules, err := drivetrain.NewCANModules(bus, r.clk, constants.Drivetrain.DriveFeedforward())
	if err != nil {
		_ = bus.Close()
		return err
	}
	dt, err := drivetrain.New(dlog, kin, modules.IO(), maxSpeed)
	if err != nil {
		_ = bus.Close()
		return err
	}
	r.bus, r.modules, r.drive = bus, modules, dt
	return nil
}

func (r *Runner) Close() {
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			r.log.Warn("close can bus: %v", err)
		}
	}
}

// Run waits out the start delay, then runs the selected auto to completion.
// The CAN receive loop and the selection watcher run alongside and stop with it.
func (r *Runner) Run(ctx context.Context) error {
	mode := "can:" + r.cfg.Robot.CAN.Interface
	if r.bus == nil {
		mode = "sim"
	}
	r.log.Info("Starting run %s: mode=%s alliance=%s period=%s autos=[%d]",
		r.id, mode, r.cfg.Alliance, r.cfg.Robot.LoopPeriod(), len(r.picker.Names()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if r.bus != nil {
		g.Go(func() error {
			return r.bus.Receive(gctx, r.log.Named("can"), r.modules.HandleFrame)
		})
	}
	if path := r.cfg.Robot.SelectionFile; path != "" {
		g.Go(func() error {
			return r.picker.Chooser().WatchSelectionFile(gctx, path, r.log.Named("selection"))
		})
	}

	g.Go(func() error {
		defer cancel()
		if err := r.disabled(gctx, r.cfg.StartDelay); err != nil {
			return err
		}
		return r.autonomous(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// runCtx was canceled by the finished auto
		err = nil
	}
	return err
}

// disabled ticks subsystems without commands for d.
func (r *Runner) disabled(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.log.Info("Disabled for %s", d)
	start := r.clk.After(d)
	ticker := r.clk.Ticker(r.cfg.Robot.LoopPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-start:
			return nil
		case <-ticker.C:
			r.sched.Run()
		}
	}
}

func (r *Runner) autonomous(ctx context.Context) error {
	routine := r.picker.SelectedAuto()
	name := r.picker.SelectedName()
	if name == "" {
		name = "<none>"
	}
	r.log.Info("Autonomous start: %s (%s)", name, command.NameOf(routine))

	start := r.clk.Now()
	err := r.sched.RunUntilFinished(ctx, routine)
	r.drive.Stop()

	pose := r.drive.Pose()
	r.log.Info("Autonomous end after %.2fs: pose=(%.2f, %.2f, %.1f°)",
		r.clk.Since(start).Seconds(), pose.X(), pose.Y(), pose.Rotation.Degrees())
	return err
}
