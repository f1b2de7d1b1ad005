package command

import (
	"strings"

	"github.com/samber/lo"
)

func unionRequirements(cmds []Command) []Subsystem {
	var out []Subsystem
	for _, c := range cmds {
		out = append(out, c.Requirements()...)
	}
	return lo.Uniq(out)
}

func groupName(kind string, cmds []Command) string {
	return kind + "(" + strings.Join(lo.Map(cmds, func(c Command, _ int) string { return NameOf(c) }), ", ") + ")"
}

// SequentialGroup runs its commands one after another.
type SequentialGroup struct {
	cmds []Command
	idx  int
	reqs []Subsystem
}

func Sequence(cmds ...Command) *SequentialGroup {
	return &SequentialGroup{cmds: cmds, idx: -1, reqs: unionRequirements(cmds)}
}

func (g *SequentialGroup) Name() string { return groupName("Sequence", g.cmds) }

func (g *SequentialGroup) Initialize() {
	g.idx = 0
	if len(g.cmds) > 0 {
		g.cmds[0].Initialize()
	}
}

func (g *SequentialGroup) Execute() {
	if g.idx < 0 || g.idx >= len(g.cmds) {
		return
	}
	cur := g.cmds[g.idx]
	cur.Execute()
	if cur.IsFinished() {
		cur.End(false)
		g.idx++
		if g.idx < len(g.cmds) {
			g.cmds[g.idx].Initialize()
		}
	}
}

func (g *SequentialGroup) IsFinished() bool { return g.idx >= len(g.cmds) }

func (g *SequentialGroup) End(interrupted bool) {
	if interrupted && g.idx >= 0 && g.idx < len(g.cmds) {
		g.cmds[g.idx].End(true)
	}
	g.idx = -1
}

func (g *SequentialGroup) Requirements() []Subsystem { return g.reqs }

// Current is the index of the running command, or -1 when not running.
func (g *SequentialGroup) Current() int { return g.idx }

// ParallelGroup runs its commands together and finishes when all have.
type ParallelGroup struct {
	cmds    []Command
	running []bool
	reqs    []Subsystem
}

func Parallel(cmds ...Command) *ParallelGroup {
	return &ParallelGroup{cmds: cmds, running: make([]bool, len(cmds)), reqs: unionRequirements(cmds)}
}

func (g *ParallelGroup) Name() string { return groupName("Parallel", g.cmds) }

func (g *ParallelGroup) Initialize() {
	for i, c := range g.cmds {
		c.Initialize()
		g.running[i] = true
	}
}

func (g *ParallelGroup) Execute() {
	for i, c := range g.cmds {
		if !g.running[i] {
			continue
		}
		c.Execute()
		if c.IsFinished() {
			c.End(false)
			g.running[i] = false
		}
	}
}

func (g *ParallelGroup) IsFinished() bool {
	return !lo.Contains(g.running, true)
}

func (g *ParallelGroup) End(interrupted bool) {
	for i, c := range g.cmds {
		if g.running[i] {
			c.End(interrupted)
			g.running[i] = false
		}
	}
}

func (g *ParallelGroup) Requirements() []Subsystem { return g.reqs }

// RaceGroup runs its commands together and finishes when any has.
type RaceGroup struct {
	cmds     []Command
	finished bool
	reqs     []Subsystem
}

func Race(cmds ...Command) *RaceGroup {
	return &RaceGroup{cmds: cmds, reqs: unionRequirements(cmds)}
}

func (g *RaceGroup) Name() string { return groupName("Race", g.cmds) }

func (g *RaceGroup) Initialize() {
	g.finished = false
	for _, c := range g.cmds {
		c.Initialize()
	}
}

func (g *RaceGroup) Execute() {
	for _, c := range g.cmds {
		c.Execute()
		if c.IsFinished() {
			g.finished = true
		}
	}
}

func (g *RaceGroup) IsFinished() bool { return g.finished || len(g.cmds) == 0 }

func (g *RaceGroup) End(bool) {
	for _, c := range g.cmds {
		c.End(!c.IsFinished())
	}
}

func (g *RaceGroup) Requirements() []Subsystem { return g.reqs }

// DeadlineGroup runs its commands together and finishes with the deadline,
// interrupting any others still running.
type DeadlineGroup struct {
	deadline Command
	all      *ParallelGroup
}

func Deadline(deadline Command, others ...Command) *DeadlineGroup {
	return &DeadlineGroup{
		deadline: deadline,
		all:      Parallel(append([]Command{deadline}, others...)...),
	}
}

func (g *DeadlineGroup) Name() string { return groupName("Deadline", g.all.cmds) }

func (g *DeadlineGroup) Initialize() { g.all.Initialize() }
func (g *DeadlineGroup) Execute()    { g.all.Execute() }

// the deadline is always the first member of the parallel group
func (g *DeadlineGroup) IsFinished() bool { return !g.all.running[0] }

func (g *DeadlineGroup) End(interrupted bool) {
	for i, c := range g.all.cmds {
		if g.all.running[i] {
			c.End(i > 0 || interrupted)
			g.all.running[i] = false
		}
	}
}

func (g *DeadlineGroup) Requirements() []Subsystem { return g.all.reqs }
