package pathplanner

import (
	"io/fs"
	"math"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const straightPath = `{
  "waypoints": [
    {"anchorPoint": {"x": 1.8, "y": 4.4}, "prevControl": null, "nextControl": {"x": 2.8, "y": 4.4},
     "holonomicAngle": 180, "isStopPoint": false,
     "stopEvent": {"names": [], "executionBehavior": "parallel", "waitBehavior": "none", "waitTime": 0}},
    {"anchorPoint": {"x": 4.8, "y": 4.4}, "prevControl": {"x": 3.8, "y": 4.4}, "nextControl": null,
     "holonomicAngle": 90, "isStopPoint": false,
     "stopEvent": {"names": [], "executionBehavior": "parallel", "waitBehavior": "none", "waitTime": 0}}
  ],
  "markers": []
}`

const stopPath = `{
  "waypoints": [
    {"anchorPoint": {"x": 1, "y": 1}, "prevControl": null, "nextControl": {"x": 2, "y": 1},
     "holonomicAngle": 0,
     "stopEvent": {"names": ["score"], "executionBehavior": "sequential", "waitBehavior": "after", "waitTime": 0.25}},
    {"anchorPoint": {"x": 4, "y": 2}, "prevControl": {"x": 3, "y": 2}, "nextControl": {"x": 4, "y": 3},
     "holonomicAngle": 90, "velOverride": 0.5, "isStopPoint": true,
     "stopEvent": {"names": ["intake", "arm"], "executionBehavior": "parallelDeadline", "waitBehavior": "minimum", "waitTime": 1}},
    {"anchorPoint": {"x": 4, "y": 5}, "prevControl": {"x": 4, "y": 4}, "nextControl": null,
     "holonomicAngle": 90,
     "stopEvent": {"names": ["score"], "executionBehavior": "parallel", "waitBehavior": "none", "waitTime": 0}}
  ],
  "markers": [
    {"position": 0.5, "names": ["early"]},
    {"position": 1.5, "names": ["late", "later"]},
    {"position": 2.0, "names": ["end"]}
  ]
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"straight.path": {Data: []byte(straightPath)},
		"stops.path":    {Data: []byte(stopPath)},
		"broken.path":   {Data: []byte(`{"waypoints": [`)},
		"notes.txt":     {Data: []byte("not a path")},
	}
}

var slow = PathConstraints{MaxVelocity: 1, MaxAcceleration: 1}

func TestParsePathRejectsBadFiles(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":       `{"waypoints": [`,
		"one waypoint": `{"waypoints": [{"anchorPoint": {"x": 1, "y": 1}}]}`,
		"marker past end": `{"waypoints": [{"anchorPoint": {"x": 1, "y": 1}}, {"anchorPoint": {"x": 2, "y": 1}}],
			"markers": [{"position": 1.5, "names": ["x"]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePath([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestParsePathStopEvents(t *testing.T) {
	p, err := ParsePath([]byte(stopPath))
	require.NoError(t, err)
	require.Len(t, p.Waypoints, 3)

	first := p.Waypoints[0]
	assert.Equal(t, first.Anchor, first.PrevControl, "missing control falls back to the anchor")
	assert.Equal(t, StopEvent{
		Names:             []string{"score"},
		ExecutionBehavior: ExecutionSequential,
		WaitBehavior:      WaitAfter,
		WaitTimeSeconds:   0.25,
	}, first.StopEvent)

	mid := p.Waypoints[1]
	assert.True(t, mid.IsStopPoint)
	assert.Equal(t, 0.5, mid.VelOverride)
	assert.Equal(t, ExecutionParallelDeadline, mid.StopEvent.ExecutionBehavior)
	assert.Equal(t, WaitMinimum, mid.StopEvent.WaitBehavior)
	assert.InDelta(t, 90, mid.HolonomicRotation.Degrees(), 1e-9)
}

func TestSplitAtStopPoints(t *testing.T) {
	p, err := ParsePath([]byte(stopPath))
	require.NoError(t, err)

	pieces := p.Split()
	require.Len(t, pieces, 2)
	assert.Len(t, pieces[0].Waypoints, 2)
	assert.Len(t, pieces[1].Waypoints, 2)
	assert.Equal(t, pieces[0].Waypoints[1].Anchor, pieces[1].Waypoints[0].Anchor)

	require.Len(t, pieces[0].Markers, 1)
	assert.Equal(t, []string{"early"}, pieces[0].Markers[0].Names)

	require.Len(t, pieces[1].Markers, 2)
	assert.Equal(t, 0.5, pieces[1].Markers[0].Position)
	assert.Equal(t, 1.0, pieces[1].Markers[1].Position)
}

func TestSplitWithoutStopPointsIsWholePath(t *testing.T) {
	p, err := ParsePath([]byte(straightPath))
	require.NoError(t, err)
	pieces := p.Split()
	require.Len(t, pieces, 1)
	assert.Equal(t, p.Waypoints, pieces[0].Waypoints)
}

func TestLoaderNames(t *testing.T) {
	names, err := NewLoader(testFS()).Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"straight", "stops", "broken"}, names)
}

func TestLoaderErrors(t *testing.T) {
	l := NewLoader(testFS())

	_, err := l.LoadPathGroup("missing", slow)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = l.LoadPathGroup("broken", slow)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = l.LoadPath("straight", PathConstraints{MaxVelocity: 0, MaxAcceleration: 1})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStraightTrajectoryProfile(t *testing.T) {
	traj, err := NewLoader(testFS()).LoadPath("straight.path", slow)
	require.NoError(t, err)

	assert.InDelta(t, 3, traj.TotalDistanceMeters(), 1e-6)
	// one second up, two at speed, one down
	assert.InDelta(t, 4, traj.TotalTimeSeconds(), 0.05)

	assert.Zero(t, traj.InitialState().VelocityMetersPerSecond)
	assert.Zero(t, traj.EndState().VelocityMetersPerSecond)
	prev := -1.0
	for _, s := range traj.States() {
		assert.LessOrEqual(t, s.VelocityMetersPerSecond, slow.MaxVelocity+1e-9)
		assert.GreaterOrEqual(t, s.TimeSeconds, prev)
		assert.InDelta(t, 0, s.Pose.Rotation.Degrees(), 1e-9, "direction of travel")
		prev = s.TimeSeconds
	}

	start := traj.InitialHolonomicPose()
	assert.InDelta(t, 1.8, start.X(), 1e-9)
	assert.InDelta(t, 4.4, start.Y(), 1e-9)
	assert.InDelta(t, 180, math.Abs(start.Rotation.Degrees()), 1e-9)
}

func TestSampleClampsAndInterpolates(t *testing.T) {
	traj, err := NewLoader(testFS()).LoadPath("straight", slow)
	require.NoError(t, err)

	assert.Equal(t, traj.InitialState(), traj.Sample(-1))
	assert.Equal(t, traj.EndState(), traj.Sample(traj.TotalTimeSeconds()+1))

	mid := traj.Sample(traj.TotalTimeSeconds() / 2)
	assert.InDelta(t, 3.3, mid.Pose.X(), 0.01)
	assert.InDelta(t, 1, mid.VelocityMetersPerSecond, 0.01)
}

func TestPathGroupConstraintsAndMarkers(t *testing.T) {
	fast := PathConstraints{MaxVelocity: 3, MaxAcceleration: 2}
	group, err := NewLoader(testFS(), WithMaxCentripetalAcceleration(0.8)).LoadPathGroup("stops", fast)
	require.NoError(t, err)
	require.Len(t, group, 2)

	for i, traj := range group {
		assert.Zero(t, traj.InitialState().VelocityMetersPerSecond, "piece %d", i)
		assert.Zero(t, traj.EndState().VelocityMetersPerSecond, "piece %d", i)
	}
	for _, s := range group[1].States() {
		assert.LessOrEqual(t, s.VelocityMetersPerSecond, 0.5+1e-9, "override caps the second leg")
	}

	assert.Equal(t, []string{"score"}, group[0].StartStopEvent().Names)
	assert.Equal(t, []string{"intake", "arm"}, group[0].EndStopEvent().Names)
	assert.Equal(t, []string{"intake", "arm"}, group[1].StartStopEvent().Names)
	assert.Equal(t, []string{"score"}, group[1].EndStopEvent().Names)

	markers := group[1].Markers()
	require.Len(t, markers, 2)
	assert.Greater(t, markers[0].TimeSeconds, 0.0)
	assert.Less(t, markers[0].TimeSeconds, markers[1].TimeSeconds)
	assert.InDelta(t, group[1].TotalTimeSeconds(), markers[1].TimeSeconds, 1e-9)
}

const curvePath = `{
  "waypoints": [
    {"anchorPoint": {"x": 1, "y": 1}, "nextControl": {"x": 2.1, "y": 1}, "holonomicAngle": 0,
     "stopEvent": {"names": [], "executionBehavior": "parallel", "waitBehavior": "none"}},
    {"anchorPoint": {"x": 3, "y": 3}, "prevControl": {"x": 3, "y": 1.9}, "holonomicAngle": 90,
     "stopEvent": {"names": [], "executionBehavior": "parallel", "waitBehavior": "none"}}
  ]
}`

func TestCentripetalLimitSlowsCurves(t *testing.T) {
	const maxCentripetal = 0.8
	fsys := fstest.MapFS{"curve.path": {Data: []byte(curvePath)}}
	fast := PathConstraints{MaxVelocity: 3, MaxAcceleration: 2}

	free, err := NewLoader(fsys).LoadPath("curve", fast)
	require.NoError(t, err)
	capped, err := NewLoader(fsys, WithMaxCentripetalAcceleration(maxCentripetal)).LoadPath("curve", fast)
	require.NoError(t, err)

	lateral := func(s State) float64 {
		return s.VelocityMetersPerSecond * s.VelocityMetersPerSecond * math.Abs(s.CurvatureRadPerMeter)
	}
	var freePeak, cappedPeak float64
	for _, s := range free.States() {
		freePeak = math.Max(freePeak, lateral(s))
	}
	for _, s := range capped.States() {
		assert.LessOrEqual(t, lateral(s), maxCentripetal+1e-9)
		cappedPeak = math.Max(cappedPeak, lateral(s))
	}
	assert.Greater(t, freePeak, maxCentripetal, "the curve is tight enough to need the cap")
	assert.InDelta(t, maxCentripetal, cappedPeak, 0.05)

	assert.InDelta(t, free.TotalDistanceMeters(), capped.TotalDistanceMeters(), 1e-9)
	assert.Greater(t, capped.TotalTimeSeconds(), free.TotalTimeSeconds())
	assert.Zero(t, capped.EndState().VelocityMetersPerSecond)
}

func TestTransformForRedAlliance(t *testing.T) {
	traj, err := NewLoader(testFS()).LoadPath("stops", slow)
	require.NoError(t, err)

	assert.Same(t, traj, traj.TransformForAlliance(AllianceBlue))
	assert.Same(t, traj, traj.TransformForAlliance(AllianceInvalid))

	red := traj.TransformForAlliance(AllianceRed)
	require.Len(t, red.States(), len(traj.States()))
	for i, s := range red.States() {
		b := traj.States()[i]
		assert.InDelta(t, b.Pose.X(), s.Pose.X(), 1e-12)
		assert.InDelta(t, FieldWidthMeters-b.Pose.Y(), s.Pose.Y(), 1e-12)
		assert.InDelta(t, -b.HolonomicRotation.Radians(), s.HolonomicRotation.Radians(), 1e-12)
		assert.InDelta(t, -b.HolonomicAngularVelocityRadPerSec, s.HolonomicAngularVelocityRadPerSec, 1e-12)
		assert.Equal(t, b.VelocityMetersPerSecond, s.VelocityMetersPerSecond)
		assert.Equal(t, b.TimeSeconds, s.TimeSeconds)
	}
	assert.Equal(t, traj.Markers(), red.Markers())

	straight, err := NewLoader(testFS()).LoadPath("straight", slow)
	require.NoError(t, err)
	facing := straight.TransformForAlliance(AllianceRed).InitialHolonomicPose().Rotation
	assert.InDelta(t, math.Pi, facing.Radians(), 1e-9, "mirrored heading stays in (-pi, pi]")
}

func TestParseAlliance(t *testing.T) {
	a, err := ParseAlliance(" Red ")
	require.NoError(t, err)
	assert.Equal(t, AllianceRed, a)
	assert.Equal(t, "red", a.String())

	a, err = ParseAlliance("")
	require.NoError(t, err)
	assert.Equal(t, AllianceInvalid, a)

	_, err = ParseAlliance("green")
	assert.Error(t, err)
}
