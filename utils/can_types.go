package utils

import "sort"

// SignalDef describes one little-endian signal inside a classic CAN payload.
type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64
	Max        float64
	Default    float64
	Unit       string
	Comment    string
	Endianness string // only "little" supported
}

// FrameDef groups the signals sharing one arbitration ID.
type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string // "tx" frames are sent by the robot program, "rx" frames are feedback
	CycleMS   int
	Signals   []SignalDef
}

// Signal returns the signal definition with the given name.
func (fd *FrameDef) Signal(name string) (SignalDef, bool) {
	for _, s := range fd.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return SignalDef{}, false
}

type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RequireFrames fails on the first name missing from the map.
func (m *CANMap) RequireFrames(names ...string) error {
	for _, n := range names {
		if _, err := m.FrameByName(n); err != nil {
			return err
		}
	}
	return nil
}
