package pathplanner

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/command"
	"swerve-auto-core/constants"
	"swerve-auto-core/geometry"
	"swerve-auto-core/kinematics"
	"swerve-auto-core/utils"
)

// counter is an event command that finishes on its first tick.
type counter struct{ inits int }

func (c *counter) Initialize()                       { c.inits++ }
func (c *counter) Execute()                          {}
func (c *counter) IsFinished() bool                  { return true }
func (c *counter) End(bool)                          {}
func (c *counter) Requirements() []command.Subsystem { return nil }

type fakeDrive struct {
	pose   geometry.Pose2d
	resets []geometry.Pose2d
	output [][]kinematics.SwerveModuleState
}

func (d *fakeDrive) config(clk clock.Clock, events EventMap) BuilderConfig {
	return BuilderConfig{
		PoseSupplier: func() geometry.Pose2d { return d.pose },
		ResetPose: func(p geometry.Pose2d) {
			d.pose = p
			d.resets = append(d.resets, p)
		},
		Kinematics:         constants.DriveKinematics(),
		TranslationPID:     control.PIDConstants{Kp: 1},
		RotationPID:        control.PIDConstants{Kp: 1},
		OutputModuleStates: func(s []kinematics.SwerveModuleState) { d.output = append(d.output, s) },
		EventMap:           events,
		Clock:              clk,
	}
}

func TestNewAutoBuilderRequiresCallbacks(t *testing.T) {
	d := &fakeDrive{}
	full := d.config(clock.NewMock(), nil)

	for name, mutate := range map[string]func(*BuilderConfig){
		"pose":     func(c *BuilderConfig) { c.PoseSupplier = nil },
		"reset":    func(c *BuilderConfig) { c.ResetPose = nil },
		"kin":      func(c *BuilderConfig) { c.Kinematics = nil },
		"output":   func(c *BuilderConfig) { c.OutputModuleStates = nil },
		"alliance": func(c *BuilderConfig) { c.UseAllianceColor = true },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := full
			mutate(&cfg)
			_, err := NewAutoBuilder(cfg)
			assert.Error(t, err)
		})
	}

	b, err := NewAutoBuilder(full)
	require.NoError(t, err)
	_, err = b.FullAuto()
	assert.ErrorIs(t, err, ErrEmptyPathGroup)
}

func TestFullAutoRunsStopEventsAndMarkers(t *testing.T) {
	names := []string{"score", "intake", "arm", "early", "late", "later", "end"}
	counters := map[string]*counter{}
	events := EventMap{}
	for _, n := range names {
		counters[n] = &counter{}
		events[n] = counters[n]
	}

	group, err := NewLoader(testFS()).LoadPathGroup("stops", PathConstraints{MaxVelocity: 3, MaxAcceleration: 2})
	require.NoError(t, err)

	clk := clock.NewMock()
	d := &fakeDrive{}
	b, err := NewAutoBuilder(d.config(clk, events))
	require.NoError(t, err)
	routine, err := b.FullAuto(group...)
	require.NoError(t, err)

	s := command.NewScheduler(utils.NewNopLogger(), command.WithClock(clk))
	s.Schedule(routine)
	for i := 0; i < 3000 && s.IsScheduled(routine); i++ {
		clk.Add(20 * time.Millisecond)
		s.Run()
	}
	require.False(t, s.IsScheduled(routine), "auto did not finish")

	require.Len(t, d.resets, 1)
	assert.InDelta(t, 1, d.resets[0].X(), 1e-9)
	assert.InDelta(t, 1, d.resets[0].Y(), 1e-9)
	assert.InDelta(t, 0, d.resets[0].Rotation.Degrees(), 1e-9)

	want := map[string]int{"score": 2, "intake": 1, "arm": 1, "early": 1, "late": 1, "later": 1, "end": 1}
	for n, c := range counters {
		assert.Equal(t, want[n], c.inits, "event %s", n)
	}

	require.NotEmpty(t, d.output)
	for _, st := range d.output[len(d.output)-1] {
		assert.Zero(t, st.SpeedMetersPerSecond)
	}
}

func TestStopEventGroupWaitsOnClock(t *testing.T) {
	clk := clock.NewMock()
	d := &fakeDrive{}
	score := &counter{}
	b, err := NewAutoBuilder(d.config(clk, EventMap{"score": score}))
	require.NoError(t, err)

	c := b.StopEventGroup(StopEvent{
		Names:             []string{"score", "unmapped"},
		ExecutionBehavior: ExecutionSequential,
		WaitBehavior:      WaitBefore,
		WaitTimeSeconds:   0.5,
	})
	s := command.NewScheduler(utils.NewNopLogger(), command.WithClock(clk))
	s.Schedule(c)

	clk.Add(400 * time.Millisecond)
	s.Run()
	assert.Zero(t, score.inits, "still waiting")

	clk.Add(200 * time.Millisecond)
	s.Run()
	assert.Equal(t, 1, score.inits)
	s.Run()
	assert.False(t, s.IsScheduled(c))
}

func TestResetPoseMirrorsForRed(t *testing.T) {
	traj, err := NewLoader(testFS()).LoadPath("stops", slow)
	require.NoError(t, err)

	d := &fakeDrive{}
	cfg := d.config(clock.NewMock(), nil)
	cfg.UseAllianceColor = true
	cfg.Alliance = func() Alliance { return AllianceRed }
	b, err := NewAutoBuilder(cfg)
	require.NoError(t, err)

	reset := b.ResetPose(traj)
	reset.Initialize()

	require.Len(t, d.resets, 1)
	assert.InDelta(t, 1, d.resets[0].X(), 1e-9)
	assert.InDelta(t, FieldWidthMeters-1, d.resets[0].Y(), 1e-9)
}
