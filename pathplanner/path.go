package pathplanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"swerve-auto-core/geometry"
	"swerve-auto-core/utils"
)

// PathExtension is the suffix of path files in the deploy directory.
const PathExtension = ".path"

// ErrInvalidPath is wrapped by every error about a path file's content.
var ErrInvalidPath = errors.New("invalid path")

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p *pointJSON) translation(fallback geometry.Translation2d) geometry.Translation2d {
	if p == nil {
		return fallback
	}
	return geometry.NewTranslation2d(p.X, p.Y)
}

type stopEventJSON struct {
	Names             []string `json:"names"`
	ExecutionBehavior string   `json:"executionBehavior"`
	WaitBehavior      string   `json:"waitBehavior"`
	WaitTime          float64  `json:"waitTime"`
}

type waypointJSON struct {
	AnchorPoint    pointJSON     `json:"anchorPoint"`
	PrevControl    *pointJSON    `json:"prevControl"`
	NextControl    *pointJSON    `json:"nextControl"`
	HolonomicAngle float64       `json:"holonomicAngle"` // degrees
	IsReversal     bool          `json:"isReversal"`
	VelOverride    *float64      `json:"velOverride"`
	IsLocked       bool          `json:"isLocked"`
	IsStopPoint    bool          `json:"isStopPoint"`
	StopEvent      stopEventJSON `json:"stopEvent"`
}

type markerJSON struct {
	Position float64  `json:"position"`
	Names    []string `json:"names"`
}

type pathFileJSON struct {
	Waypoints []waypointJSON `json:"waypoints"`
	Markers   []markerJSON   `json:"markers"`
}

// Path is an authored path before trajectory generation.
type Path struct {
	Waypoints []Waypoint
	Markers   []EventMarker
}

// ParsePath decodes a path file.
func ParsePath(data []byte) (*Path, error) {
	var raw pathFileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if len(raw.Waypoints) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 waypoints, got %d", ErrInvalidPath, len(raw.Waypoints))
	}

	p := &Path{}
	for _, w := range raw.Waypoints {
		anchor := geometry.NewTranslation2d(w.AnchorPoint.X, w.AnchorPoint.Y)
		wp := Waypoint{
			Anchor:            anchor,
			PrevControl:       w.PrevControl.translation(anchor),
			NextControl:       w.NextControl.translation(anchor),
			HolonomicRotation: geometry.FromDegrees(w.HolonomicAngle),
			IsStopPoint:       w.IsStopPoint,
			StopEvent: StopEvent{
				Names:             w.StopEvent.Names,
				ExecutionBehavior: parseExecutionBehavior(w.StopEvent.ExecutionBehavior),
				WaitBehavior:      parseWaitBehavior(w.StopEvent.WaitBehavior),
				WaitTimeSeconds:   w.StopEvent.WaitTime,
			},
		}
		if w.VelOverride != nil {
			wp.VelOverride = *w.VelOverride
		}
		p.Waypoints = append(p.Waypoints, wp)
	}
	for _, m := range raw.Markers {
		if m.Position < 0 || m.Position > float64(len(p.Waypoints)-1) {
			return nil, fmt.Errorf("%w: marker %v at %.2f outside the path", ErrInvalidPath, m.Names, m.Position)
		}
		p.Markers = append(p.Markers, EventMarker{Names: m.Names, Position: m.Position})
	}
	return p, nil
}

// Split cuts the path at interior stop points. Each piece shares its first
// waypoint with the previous piece's last, and keeps the markers that fall
// inside it, re-based to the piece.
func (p *Path) Split() []*Path {
	var out []*Path
	start := 0
	for i := 1; i < len(p.Waypoints); i++ {
		if !p.Waypoints[i].IsStopPoint && i != len(p.Waypoints)-1 {
			continue
		}
		piece := &Path{Waypoints: append([]Waypoint(nil), p.Waypoints[start:i+1]...)}
		for _, m := range p.Markers {
			inside := m.Position >= float64(start) && m.Position < float64(i)
			if i == len(p.Waypoints)-1 {
				inside = m.Position >= float64(start) && m.Position <= float64(i)
			}
			if inside {
				m.Position -= float64(start)
				piece.Markers = append(piece.Markers, m)
			}
		}
		out = append(out, piece)
		start = i
	}
	return out
}

// Loader reads path files from a deploy directory.
type Loader struct {
	fsys           fs.FS
	maxCentripetal float64
	log            *utils.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxCentripetalAcceleration caps speed on curves; zero disables the cap.
func WithMaxCentripetalAcceleration(a float64) LoaderOption {
	return func(l *Loader) { l.maxCentripetal = a }
}

func WithLogger(log *utils.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader reads paths from fsys; NewDirLoader is the usual entry point.
func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{fsys: fsys, log: utils.NewNopLogger()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// NewDirLoader reads paths from a directory on disk.
func NewDirLoader(dir string, opts ...LoaderOption) *Loader {
	return NewLoader(os.DirFS(dir), opts...)
}

// Names lists the path files available, without extension.
func (l *Loader) Names() ([]string, error) {
	matches, err := fs.Glob(l.fsys, "*"+PathExtension)
	if err != nil {
		return nil, err
	}
	for i, m := range matches {
		matches[i] = strings.TrimSuffix(m, PathExtension)
	}
	return matches, nil
}

func (l *Loader) read(name string) (*Path, error) {
	file := path.Clean(name)
	if !strings.HasSuffix(file, PathExtension) {
		file += PathExtension
	}
	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return nil, fmt.Errorf("load path %s: %w", name, err)
	}
	p, err := ParsePath(data)
	if err != nil {
		return nil, fmt.Errorf("load path %s: %w", name, err)
	}
	return p, nil
}

func (c PathConstraints) validate() error {
	if c.MaxVelocity <= 0 || c.MaxAcceleration <= 0 {
		return fmt.Errorf("%w: constraints must be positive, got vel=%.3f accel=%.3f",
			ErrInvalidPath, c.MaxVelocity, c.MaxAcceleration)
	}
	return nil
}

// LoadPath generates one trajectory through every waypoint of the file,
// ignoring stop points.
func (l *Loader) LoadPath(name string, c PathConstraints) (*Trajectory, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	p, err := l.read(name)
	if err != nil {
		return nil, err
	}
	return generateTrajectory(p.Waypoints, p.Markers, c, l.maxCentripetal), nil
}

// LoadPathGroup generates one trajectory per stop-point-delimited piece.
func (l *Loader) LoadPathGroup(name string, c PathConstraints) ([]*Trajectory, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	p, err := l.read(name)
	if err != nil {
		return nil, err
	}
	pieces := p.Split()
	group := make([]*Trajectory, 0, len(pieces))
	for _, piece := range pieces {
		group = append(group, generateTrajectory(piece.Waypoints, piece.Markers, c, l.maxCentripetal))
	}
	l.log.Debug("loaded path group %s: %d trajectories (vel=%.2f accel=%.2f)",
		name, len(group), c.MaxVelocity, c.MaxAcceleration)
	return group, nil
}
