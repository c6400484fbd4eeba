package timer

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Tier is a cadence class. Display fields subscribe to the tier group that
// matches the finest unit they show, so the whole display shares at most
// three timers.
type Tier int

const (
	Immediate Tier = iota // every millisecond
	Lazy                  // every second, on the second
	Late                  // every minute, on the minute
)

type tierSpec struct {
	name     string
	interval time.Duration
	align    string // cron spec with a seconds field; empty means unaligned
}

var tierSpecs = [...]tierSpec{
	Immediate: {name: "immediate", interval: time.Millisecond},
	Lazy:      {name: "lazy", interval: time.Second, align: "* * * * * *"},
	Late:      {name: "late", interval: time.Minute, align: "0 * * * * *"},
}

var secondsParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

var tierAlign [len(tierSpecs)]cron.Schedule

func init() {
	for i, spec := range tierSpecs {
		if spec.align == "" {
			continue
		}
		sched, err := secondsParser.Parse(spec.align)
		if err != nil {
			panic(fmt.Sprintf("timer: tier %s: %v", spec.name, err))
		}
		tierAlign[i] = sched
	}
}

// Tiers lists every tier from finest to coarsest.
func Tiers() []Tier { return []Tier{Immediate, Lazy, Late} }

func (t Tier) Valid() bool { return t >= Immediate && t <= Late }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierSpecs[t].name
}

// GroupName is the scheduler group the tier runs as.
func (t Tier) GroupName() string { return t.String() }

func (t Tier) Interval() time.Duration {
	if !t.Valid() {
		return 0
	}
	return tierSpecs[t].interval
}

// Options returns the group options that phase-align the tier.
func (t Tier) Options() []GroupOption {
	if !t.Valid() || tierAlign[t] == nil {
		return nil
	}
	return []GroupOption{Aligned(tierAlign[t])}
}

// StartTiers declares and starts the group of every tier. Callbacks may be
// registered before or after.
func StartTiers(s *Scheduler) error {
	starters := make([]Starter, 0, len(tierSpecs))
	for _, t := range Tiers() {
		start := s.AddTimerGroup(t.GroupName(), t.Interval(), t.Options()...)
		if start == nil {
			return fmt.Errorf("timer: tier group %q already exists", t.GroupName())
		}
		starters = append(starters, start)
	}
	for _, start := range starters {
		start()
	}
	return nil
}
