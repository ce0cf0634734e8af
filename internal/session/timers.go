package session

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the session dispatcher.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// timerGroup cancels together. Callbacks scheduled before cancel
// are skipped even if the underlying timer already fired.
type timerGroup struct {
	sched  Scheduler
	epoch  uint64
	nextID uint64
	active map[uint64]Timer
}

func newTimerGroup(s Scheduler) timerGroup {
	return timerGroup{sched: s, active: make(map[uint64]Timer)}
}

func (g *timerGroup) after(d time.Duration, f func()) {
	epoch := g.epoch
	g.nextID++
	id := g.nextID
	g.active[id] = g.sched.AfterFunc(d, func() {
		if g.epoch != epoch {
			return
		}
		delete(g.active, id)
		f()
	})
}

// every runs f each period until cancel.
func (g *timerGroup) every(period time.Duration, f func()) {
	var tick func()
	tick = func() {
		g.after(period, tick)
		f()
	}
	g.after(period, tick)
}

func (g *timerGroup) cancel() {
	g.epoch++
	for id, t := range g.active {
		t.Stop()
		delete(g.active, id)
	}
}

func (g *timerGroup) len() int { return len(g.active) }
