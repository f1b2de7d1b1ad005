package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"swerve-auto-core/config"
	"swerve-auto-core/pathplanner"
	"swerve-auto-core/utils"
)

var (
	configPath string
	logLevel   string

	autoName   string
	alliance   string
	sim        bool
	logFile    string
	startDelay time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "swerve-auto",
	Short:         "Autonomous routine picker and runner for a swerve drive robot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the selected autonomous routine",
	Long: `Load the robot config, register its autos and run the selected one
on the command scheduler until it finishes or the process is interrupted.

The routine is chosen by --auto, else the selection file, else default_auto.`,
	RunE: runAuto,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured autos and their trajectories",
	RunE:  runList,
}

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "Print the robot constants catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), constantsTable())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/robot.yaml", "Robot config YAML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "trace|debug|info|warn|error|critical")

	runCmd.Flags().StringVar(&autoName, "auto", "", "Auto to run, overriding the selection")
	runCmd.Flags().StringVar(&alliance, "alliance", "", "blue|red, overriding the config")
	runCmd.Flags().BoolVar(&sim, "sim", false, "Simulate the modules instead of using CAN")
	runCmd.Flags().StringVar(&logFile, "log-file", "closed_loop.log", "Log file, rotated")
	runCmd.Flags().DurationVar(&startDelay, "start-delay", 0, "Time spent disabled before the auto starts")

	rootCmd.AddCommand(runCmd, listCmd, constantsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.RobotConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.RobotConfig{}, fmt.Errorf("load config: %w", err)
	}
	if sim {
		cfg.Sim = true
	}
	return cfg, nil
}

func runAuto(cmd *cobra.Command, args []string) error {
	log, err := utils.NewFileLogger(logFile, utils.ParseLevel(logLevel), true)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", logFile, err)
	}
	defer log.Close()

	robot, err := loadConfig()
	if err != nil {
		return err
	}
	side := robot.Alliance
	if alliance != "" {
		side = alliance
	}
	a, err := pathplanner.ParseAlliance(side)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, RunnerConfig{
		Robot:      robot,
		Alliance:   a,
		Auto:       autoName,
		StartDelay: startDelay,
	}, clock.New(), log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		return err
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		return err
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	robot, err := loadConfig()
	if err != nil {
		return err
	}
	loader := pathplanner.NewDirLoader(robot.DeployDir,
		pathplanner.WithMaxCentripetalAcceleration(robot.MaxCentripetalAccel),
		pathplanner.WithLogger(utils.NewStdoutLogger(utils.ParseLevel(logLevel))))

	out, err := autosTable(robot, loader)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
