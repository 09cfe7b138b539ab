package reconcile

import (
	"time"

	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
)

// Goal reports completion once every goal flag is set. It reports at most
// once per session; an empty flag list never completes.
type Goal struct {
	Env *Env

	sent bool
}

func (g *Goal) Check(now time.Time, flags game.EventFlags, goal []uint32, c GoalSetter) (bool, error) {
	if g.sent || len(goal) == 0 {
		return false, nil
	}
	for _, f := range goal {
		set, err := flags.EventFlag(f)
		if err != nil || !set {
			return false, err
		}
	}
	if err := c.SetGoal(); err != nil {
		return false, err
	}
	g.sent = true
	g.Env.logf("goal reached (flags %v)", goal)
	g.Env.record(journal.Entry{At: now, Kind: journal.KindGoal})
	return true, nil
}

func (g *Goal) Sent() bool { return g.sent }
