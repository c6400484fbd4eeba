// Package timer runs named update groups. Each group owns a single repeating
// timer that every callback in the group shares. Ticks are handed to the
// owner loop through C and run there by Dispatch, so callbacks never run
// concurrently with each other or with the code that registers them.
package timer

import (
	"context"
	"runtime/debug"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tokenclock/clock"
)

const defaultQueueSize = 64

// FuncID identifies one registered callback.
type FuncID uuid.UUID

func (id FuncID) String() string { return uuid.UUID(id).String() }

// Func is a group callback. now is the clock reading at dispatch.
type Func func(now time.Time)

// Starter arms the repeating timer of a declared group. Register callbacks
// before calling it so the first tick reaches all of them.
type Starter func()

// Tick is one firing of a group waiting to be dispatched.
type Tick struct {
	Group     string
	Scheduled time.Time // phase-exact instant the tick was due
	Fired     time.Time // clock reading when the timer actually fired

	g *group
}

type entry struct {
	id      FuncID
	fn      Func
	removed atomic.Bool
}

type group struct {
	name     string
	interval time.Duration
	align    cron.Schedule
	declared bool // AddTimerGroup was called
	started  bool
	idle     bool // started, but parked because it had no callbacks
	queued   bool // a tick sits in the channel
	timer    clock.Timer
	funcs    []*entry
}

// GroupOption configures a group in AddTimerGroup.
type GroupOption func(*group)

// Aligned delays the first tick to the next activation of sched; the
// repeating interval starts from there.
func Aligned(sched cron.Schedule) GroupOption {
	return func(g *group) { g.align = sched }
}

// AlignEvery delays the first tick to the next multiple of d.
func AlignEvery(d time.Duration) GroupOption {
	if d <= 0 {
		return func(*group) {}
	}
	return Aligned(boundary(d))
}

// boundary is a cron.Schedule firing on every multiple of a duration.
type boundary time.Duration

func (b boundary) Next(t time.Time) time.Time {
	d := time.Duration(b)
	next := t.Truncate(d).Add(d)
	if !next.After(t) {
		next = next.Add(d)
	}
	return next
}

// Scheduler is the registry of timer groups. It is safe for concurrent use,
// but callbacks only ever run inside Dispatch.
type Scheduler struct {
	clock clock.Clock
	log   *zap.Logger

	mu     sync.Mutex
	groups map[string]*group
	ticks  chan Tick
}

// New returns an empty Scheduler. A nil clock means the real clock and a nil
// logger discards diagnostics.
func New(c clock.Clock, logger *zap.Logger) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:  c,
		log:    logger.Named("timer"),
		groups: make(map[string]*group),
		ticks:  make(chan Tick, defaultQueueSize),
	}
}

// Now reads the scheduler's clock.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// C delivers ticks for the owner loop to Dispatch.
func (s *Scheduler) C() <-chan Tick { return s.ticks }

// AddTimerGroup declares a group ticking every interval and returns its
// Starter. It returns nil, logging a warning, if the name is already taken or
// the interval is not positive. Callbacks registered under the name before
// this call are kept.
func (s *Scheduler) AddTimerGroup(name string, interval time.Duration, opts ...GroupOption) Starter {
	if interval <= 0 {
		s.log.Warn("timer group interval must be positive",
			zap.String("group", name), zap.Duration("interval", interval))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[name]
	if ok && g.declared {
		s.log.Warn("timer group already exists",
			zap.String("group", name), zap.Duration("interval", g.interval))
		return nil
	}
	if !ok {
		g = &group{name: name}
		s.groups[name] = g
	}
	g.declared = true
	g.interval = interval
	for _, opt := range opts {
		opt(g)
	}
	return func() { s.start(g) }
}

// AddGroupFunction appends fn to the named group and returns its identity.
// The group does not need to be declared yet.
func (s *Scheduler) AddGroupFunction(name string, fn Func) FuncID {
	if fn == nil {
		s.log.Warn("nil timer group function ignored", zap.String("group", name))
		return FuncID{}
	}
	id := FuncID(uuid.New())

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		g = &group{name: name}
		s.groups[name] = g
	}
	g.funcs = append(g.funcs, &entry{id: id, fn: fn})
	if g.idle {
		g.idle = false
		s.armFirstLocked(g)
	}
	return id
}

// RemoveGroupFunction removes exactly the callback registered as id.
func (s *Scheduler) RemoveGroupFunction(name string, id FuncID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[name]
	if !ok {
		s.log.Warn("remove function from unknown timer group",
			zap.String("group", name), zap.Stringer("id", id))
		return
	}
	for i, e := range g.funcs {
		if e.id == id {
			e.removed.Store(true)
			g.funcs = slices.Delete(g.funcs, i, i+1)
			return
		}
	}
	s.log.Warn("unknown timer group function",
		zap.String("group", name), zap.Stringer("id", id))
}

// RemoveTimerGroup cancels the group's timer and drops its callbacks. A tick
// already queued for the group is discarded by Dispatch.
func (s *Scheduler) RemoveTimerGroup(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[name]
	if !ok {
		s.log.Warn("remove unknown timer group", zap.String("group", name))
		return
	}
	s.dropLocked(g)
}

// Close removes every group.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		s.dropLocked(g)
	}
}

func (s *Scheduler) dropLocked(g *group) {
	delete(s.groups, g.name)
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	for _, e := range g.funcs {
		e.removed.Store(true)
	}
	g.funcs = nil
	g.started = false
	g.idle = false
}

func (s *Scheduler) start(g *group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groups[g.name] != g {
		s.log.Warn("timer group removed before start", zap.String("group", g.name))
		return
	}
	if g.started {
		s.log.Debug("timer group already started", zap.String("group", g.name))
		return
	}
	g.started = true
	s.armFirstLocked(g)
}

// armFirstLocked arms the group's first tick: the next alignment instant, or
// one interval from now when unaligned.
func (s *Scheduler) armFirstLocked(g *group) {
	now := s.clock.Now()
	first := now.Add(g.interval)
	if g.align != nil {
		if next := g.align.Next(now); next.After(now) {
			first = next
		}
	}
	s.armLocked(g, first, now)
}

func (s *Scheduler) armLocked(g *group, at, now time.Time) {
	g.timer = s.clock.AfterFunc(at.Sub(now), func() { s.fire(g, at) })
}

// fire runs on the clock's goroutine. The registration check covers the
// alignment deferral too: a group removed while its first wait was pending
// is never armed. A group found without callbacks goes idle until the next
// AddGroupFunction re-arms it on its alignment.
func (s *Scheduler) fire(g *group, at time.Time) {
	s.mu.Lock()
	if s.groups[g.name] != g || !g.started {
		s.mu.Unlock()
		return
	}
	if len(g.funcs) == 0 {
		g.timer = nil
		g.idle = true
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	next := at.Add(g.interval)
	if !next.After(now) {
		// Fell behind (suspend, slow host): skip the missed ticks, keep the phase.
		missed := now.Sub(at) / g.interval
		next = at.Add((missed + 1) * g.interval)
	}
	s.armLocked(g, next, now)
	if g.queued {
		s.mu.Unlock()
		return
	}
	g.queued = true
	s.mu.Unlock()

	select {
	case s.ticks <- Tick{Group: g.name, Scheduled: at, Fired: now, g: g}:
	default:
		s.mu.Lock()
		g.queued = false
		s.mu.Unlock()
		s.log.Debug("tick queue full", zap.String("group", g.name))
	}
}

// Dispatch runs the callbacks of the tick's group in registration order and
// returns how many ran. Callbacks receive the clock reading at dispatch, so a
// tick that waited still renders the current time. The list is snapshotted
// first; callbacks removed by an earlier callback in the same dispatch are
// skipped. A panicking callback is logged and does not stop the others.
func (s *Scheduler) Dispatch(t Tick) int {
	s.mu.Lock()
	g := t.g
	if g == nil || s.groups[g.name] != g {
		s.mu.Unlock()
		return 0
	}
	g.queued = false
	funcs := slices.Clone(g.funcs)
	s.mu.Unlock()

	now := s.clock.Now()
	ran := 0
	for _, e := range funcs {
		if e.removed.Load() {
			continue
		}
		s.call(g.name, e, now)
		ran++
	}
	return ran
}

func (s *Scheduler) call(name string, e *entry, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("timer group function panicked",
				zap.String("group", name),
				zap.Stringer("id", e.id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	e.fn(now)
}

// Run dispatches ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-s.ticks:
			s.Dispatch(t)
		}
	}
}

// Groups returns the registered group names, sorted.
func (s *Scheduler) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interval reports the interval of a declared group.
func (s *Scheduler) Interval(name string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok || !g.declared {
		return 0, false
	}
	return g.interval, true
}

// FuncCount returns the number of callbacks bound to name.
func (s *Scheduler) FuncCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[name]; ok {
		return len(g.funcs)
	}
	return 0
}
