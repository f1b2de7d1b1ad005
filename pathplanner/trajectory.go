package pathplanner

import (
	"math"
	"sort"

	control "swerve-auto-core/closed_loop/holonomic_control"
	"swerve-auto-core/geometry"
)

// samplesPerSegment is the Bézier sampling resolution between two waypoints.
const samplesPerSegment = 100

// PathConstraints bound the generated velocity profile.
type PathConstraints struct {
	MaxVelocity     float64 // m/s
	MaxAcceleration float64 // m/s²
}

// State is one time-stamped sample of a trajectory.
type State struct {
	TimeSeconds                       float64
	Pose                              geometry.Pose2d // rotation is the direction of travel
	VelocityMetersPerSecond           float64
	AccelerationMetersPerSecondSq     float64
	AngularVelocityRadPerSec          float64
	CurvatureRadPerMeter              float64
	HolonomicRotation                 geometry.Rotation2d
	HolonomicAngularVelocityRadPerSec float64
	DistanceMeters                    float64

	position float64 // waypoint-relative, see EventMarker.Position
}

// Reference adapts the state for the holonomic controller.
func (s State) Reference() control.Reference {
	return control.Reference{
		Pose:                     s.Pose,
		VelocityMetersPerSecond:  s.VelocityMetersPerSecond,
		HolonomicRotation:        s.HolonomicRotation,
		HolonomicAngularVelocity: s.HolonomicAngularVelocityRadPerSec,
	}
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func (s State) interpolate(end State, f float64) State {
	return State{
		TimeSeconds: lerp(s.TimeSeconds, end.TimeSeconds, f),
		Pose: geometry.Pose2d{
			Translation: s.Pose.Translation.Interpolate(end.Pose.Translation, f),
			Rotation:    s.Pose.Rotation.Interpolate(end.Pose.Rotation, f),
		},
		VelocityMetersPerSecond:           lerp(s.VelocityMetersPerSecond, end.VelocityMetersPerSecond, f),
		AccelerationMetersPerSecondSq:     lerp(s.AccelerationMetersPerSecondSq, end.AccelerationMetersPerSecondSq, f),
		AngularVelocityRadPerSec:          lerp(s.AngularVelocityRadPerSec, end.AngularVelocityRadPerSec, f),
		CurvatureRadPerMeter:              lerp(s.CurvatureRadPerMeter, end.CurvatureRadPerMeter, f),
		HolonomicRotation:                 s.HolonomicRotation.Interpolate(end.HolonomicRotation, f),
		HolonomicAngularVelocityRadPerSec: lerp(s.HolonomicAngularVelocityRadPerSec, end.HolonomicAngularVelocityRadPerSec, f),
		DistanceMeters:                    lerp(s.DistanceMeters, end.DistanceMeters, f),
		position:                          lerp(s.position, end.position, f),
	}
}

// mirrored reflects the state across the field's long center line.
func (s State) mirrored() State {
	out := s
	out.Pose = geometry.Pose2d{
		Translation: geometry.NewTranslation2d(s.Pose.X(), FieldWidthMeters-s.Pose.Y()),
		Rotation:    s.Pose.Rotation.Neg(),
	}
	out.AngularVelocityRadPerSec = -s.AngularVelocityRadPerSec
	out.CurvatureRadPerMeter = -s.CurvatureRadPerMeter
	out.HolonomicRotation = s.HolonomicRotation.Neg()
	out.HolonomicAngularVelocityRadPerSec = -s.HolonomicAngularVelocityRadPerSec
	return out
}

// Trajectory is a time-parameterized path. It is immutable once generated.
type Trajectory struct {
	states    []State
	markers   []EventMarker
	startStop StopEvent
	endStop   StopEvent
}

func (t *Trajectory) States() []State              { return t.states }
func (t *Trajectory) Markers() []EventMarker       { return t.markers }
func (t *Trajectory) StartStopEvent() StopEvent    { return t.startStop }
func (t *Trajectory) EndStopEvent() StopEvent      { return t.endStop }
func (t *Trajectory) InitialState() State          { return t.states[0] }
func (t *Trajectory) EndState() State              { return t.states[len(t.states)-1] }
func (t *Trajectory) TotalTimeSeconds() float64    { return t.EndState().TimeSeconds }
func (t *Trajectory) TotalDistanceMeters() float64 { return t.EndState().DistanceMeters }

// InitialHolonomicPose is where the robot must stand, facing its holonomic heading.
func (t *Trajectory) InitialHolonomicPose() geometry.Pose2d {
	s := t.InitialState()
	return geometry.Pose2d{Translation: s.Pose.Translation, Rotation: s.HolonomicRotation}
}

// Sample interpolates the state at time seconds, clamped to the trajectory.
func (t *Trajectory) Sample(seconds float64) State {
	if seconds <= t.InitialState().TimeSeconds {
		return t.InitialState()
	}
	if seconds >= t.TotalTimeSeconds() {
		return t.EndState()
	}
	hi := sort.Search(len(t.states), func(i int) bool { return t.states[i].TimeSeconds >= seconds })
	lo := hi - 1
	prev, next := t.states[lo], t.states[hi]
	span := next.TimeSeconds - prev.TimeSeconds
	if span <= 0 {
		return next
	}
	return prev.interpolate(next, (seconds-prev.TimeSeconds)/span)
}

// TransformForAlliance returns the trajectory as driven by alliance. Paths are
// authored for blue; red mirrors them.
func (t *Trajectory) TransformForAlliance(alliance Alliance) *Trajectory {
	if alliance != AllianceRed {
		return t
	}
	states := make([]State, len(t.states))
	for i, s := range t.states {
		states[i] = s.mirrored()
	}
	return &Trajectory{states: states, markers: t.markers, startStop: t.startStop, endStop: t.endStop}
}

// Waypoint is one anchor of an authored path and its Bézier control points.
type Waypoint struct {
	Anchor            geometry.Translation2d
	PrevControl       geometry.Translation2d
	NextControl       geometry.Translation2d
	HolonomicRotation geometry.Rotation2d
	// VelOverride caps the speed on the segment leaving this waypoint; zero means none.
	VelOverride float64
	IsStopPoint bool
	StopEvent   StopEvent
}

func cubicBezier(p0, p1, p2, p3 geometry.Translation2d, t float64) geometry.Translation2d {
	u := 1 - t
	return p0.Times(u * u * u).
		Plus(p1.Times(3 * u * u * t)).
		Plus(p2.Times(3 * u * t * t)).
		Plus(p3.Times(t * t * t))
}

// generateTrajectory samples the waypoints' Bézier segments and fits a
// velocity profile that starts and ends at rest, respecting the constraints
// and the centripetal acceleration limit on curves.
func generateTrajectory(wps []Waypoint, markers []EventMarker, c PathConstraints, maxCentripetal float64) *Trajectory {
	n := (len(wps)-1)*samplesPerSegment + 1
	states := make([]State, 0, n)
	limits := make([]float64, 0, n)

	for i := 0; i < len(wps)-1; i++ {
		a, b := wps[i], wps[i+1]
		maxVel := c.MaxVelocity
		if a.VelOverride > 0 {
			maxVel = math.Min(maxVel, a.VelOverride)
		}
		for j := 0; j < samplesPerSegment; j++ {
			f := float64(j) / samplesPerSegment
			states = append(states, State{
				Pose:              geometry.Pose2d{Translation: cubicBezier(a.Anchor, a.NextControl, b.PrevControl, b.Anchor, f)},
				HolonomicRotation: a.HolonomicRotation.Interpolate(b.HolonomicRotation, f),
				position:          float64(i) + f,
			})
			limits = append(limits, maxVel)
		}
	}
	last := wps[len(wps)-1]
	states = append(states, State{
		Pose:              geometry.Pose2d{Translation: last.Anchor},
		HolonomicRotation: last.HolonomicRotation,
		position:          float64(len(wps) - 1),
	})
	limits = append(limits, limits[len(limits)-1])

	// distance and direction of travel
	ds := make([]float64, len(states)) // ds[k] is the length from k-1 to k
	for k := 1; k < len(states); k++ {
		ds[k] = states[k].Pose.Translation.Distance(states[k-1].Pose.Translation)
		states[k].DistanceMeters = states[k-1].DistanceMeters + ds[k]
	}
	heading := firstHeading(states)
	for k := range states {
		if k+1 < len(states) && ds[k+1] > 1e-9 {
			heading = states[k+1].Pose.Translation.Minus(states[k].Pose.Translation).Angle()
		}
		states[k].Pose.Rotation = heading
	}

	// curvature and the centripetal cap
	for k := 0; k+1 < len(states); k++ {
		if ds[k+1] <= 1e-9 {
			continue
		}
		curv := states[k+1].Pose.Rotation.Minus(states[k].Pose.Rotation).Radians() / ds[k+1]
		states[k].CurvatureRadPerMeter = curv
		if maxCentripetal > 0 && math.Abs(curv) > 1e-9 {
			limits[k] = math.Min(limits[k], math.Sqrt(maxCentripetal/math.Abs(curv)))
		}
	}

	// forward pass accelerates from rest, backward pass brakes to rest
	v := make([]float64, len(states))
	for k := 1; k < len(states); k++ {
		v[k] = math.Min(limits[k], math.Sqrt(v[k-1]*v[k-1]+2*c.MaxAcceleration*ds[k]))
	}
	v[len(v)-1] = 0
	for k := len(states) - 2; k >= 0; k-- {
		v[k] = math.Min(v[k], math.Sqrt(v[k+1]*v[k+1]+2*c.MaxAcceleration*ds[k+1]))
	}
	v[0] = 0

	for k := range states {
		states[k].VelocityMetersPerSecond = v[k]
		if k == 0 {
			continue
		}
		var dt float64
		switch {
		case ds[k] <= 1e-9:
			dt = 0
		case v[k]+v[k-1] > 1e-9:
			dt = 2 * ds[k] / (v[k] + v[k-1])
		default:
			dt = math.Sqrt(2 * ds[k] / c.MaxAcceleration)
		}
		states[k].TimeSeconds = states[k-1].TimeSeconds + dt
		if dt > 0 {
			prev := &states[k-1]
			prev.AccelerationMetersPerSecondSq = (v[k] - v[k-1]) / dt
			prev.AngularVelocityRadPerSec = states[k].Pose.Rotation.Minus(prev.Pose.Rotation).Radians() / dt
			prev.HolonomicAngularVelocityRadPerSec = states[k].HolonomicRotation.Minus(prev.HolonomicRotation).Radians() / dt
		}
	}

	traj := &Trajectory{
		states:    states,
		startStop: wps[0].StopEvent,
		endStop:   last.StopEvent,
	}
	for _, m := range markers {
		m.TimeSeconds = traj.timeAtPosition(m.Position)
		traj.markers = append(traj.markers, m)
	}
	sort.SliceStable(traj.markers, func(i, j int) bool { return traj.markers[i].TimeSeconds < traj.markers[j].TimeSeconds })
	return traj
}

// firstHeading is the direction of the first non-degenerate step.
func firstHeading(states []State) geometry.Rotation2d {
	for k := 1; k < len(states); k++ {
		d := states[k].Pose.Translation.Minus(states[0].Pose.Translation)
		if d.Norm() > 1e-9 {
			return d.Angle()
		}
	}
	return geometry.Rotation2d(0)
}

func (t *Trajectory) timeAtPosition(pos float64) float64 {
	i := sort.Search(len(t.states), func(i int) bool { return t.states[i].position >= pos })
	if i >= len(t.states) {
		return t.TotalTimeSeconds()
	}
	return t.states[i].TimeSeconds
}
