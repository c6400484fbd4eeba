package format

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"tokenclock/timer"
)

// Snapshot is a copy of an engine's state.
type Snapshot struct {
	Axis          Axis
	Active        []FormatToken
	Inactive      []FormatToken
	Convention    Convention
	Delimiter     DelimiterStyle
	Format        string
	DisableAdd    bool
	DisableRemove bool
}

// Sink receives the rendered text of a token whenever it changes.
type Sink func(index int, text string)

type Option func(*Engine)

func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

type binding struct {
	group string
	id    timer.FuncID
}

// Engine owns the rails of one axis. All rail changes go through its
// methods, which validate first and leave the state untouched on error.
// An Engine is not safe for concurrent use; drive it from the goroutine
// that dispatches scheduler ticks.
type Engine struct {
	axis       Axis
	limits     Limits
	log        *zap.Logger
	active     []FormatToken
	inactive   []FormatToken
	convention Convention
	style      DelimiterStyle
	format     string
	nextIndex  int

	sched     *timer.Scheduler
	sink      Sink
	bound     []binding
	texts     map[int]string
	observers []func(Snapshot)
}

// New returns an engine for axis with empty rails.
func New(axis Axis, c Convention, style DelimiterStyle, opts ...Option) (*Engine, error) {
	switch {
	case !axis.Valid():
		return nil, fmt.Errorf("%w: axis %q", ErrInvalidSetting, axis)
	case !c.Valid():
		return nil, fmt.Errorf("%w: convention %q", ErrInvalidSetting, c)
	case !style.Valid():
		return nil, fmt.Errorf("%w: delimiter style %q", ErrInvalidSetting, style)
	}
	e := &Engine{
		axis:       axis,
		limits:     DefaultLimits,
		log:        zap.NewNop(),
		convention: c,
		style:      style,
		texts:      make(map[int]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("format").With(zap.String("axis", string(axis)))
	return e, nil
}

func (e *Engine) Axis() Axis                { return e.axis }
func (e *Engine) Convention() Convention    { return e.convention }
func (e *Engine) Delimiter() DelimiterStyle { return e.style }

// Format returns the last non-empty compiled format string.
func (e *Engine) Format() string { return e.format }

// Stale reports whether the current active rail compiles to nothing, so
// Format is a leftover from an earlier state.
func (e *Engine) Stale() bool {
	return CompileFormatString(e.active, e.convention, e.style) == ""
}

// Rails returns copies of the active and inactive rails.
func (e *Engine) Rails() (active, inactive []FormatToken) {
	return slices.Clone(e.active), slices.Clone(e.inactive)
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Axis:          e.axis,
		Active:        slices.Clone(e.active),
		Inactive:      slices.Clone(e.inactive),
		Convention:    e.convention,
		Delimiter:     e.style,
		Format:        e.format,
		DisableAdd:    e.DisableAdd(),
		DisableRemove: e.DisableRemove(),
	}
}

// OnChange registers fn to receive a snapshot after every accepted mutation.
func (e *Engine) OnChange(fn func(Snapshot)) {
	e.observers = append(e.observers, fn)
}

// DisableAdd reports whether AddDelimiter would exceed a bound.
func (e *Engine) DisableAdd() bool {
	inactive := countDelimiters(e.inactive)
	return inactive >= e.limits.MaxInactive ||
		countDelimiters(e.active)+inactive >= e.limits.MaxOverall
}

// DisableRemove reports whether there is no delimiter left to remove.
func (e *Engine) DisableRemove() bool {
	return countDelimiters(e.active)+countDelimiters(e.inactive) == 0
}

// SetFormat replaces both rails.
func (e *Engine) SetFormat(active, inactive []FormatToken) error {
	if err := validateRails(e.axis, active, inactive, e.limits); err != nil {
		return e.reject("set format", err)
	}
	e.active = slices.Clone(active)
	e.inactive = slices.Clone(inactive)
	e.nextIndex = maxIndex(e.active, e.inactive) + 1
	e.applyConvention()
	e.changed(true)
	return nil
}

// Restore replaces the whole state at once, as loaded from a settings store.
func (e *Engine) Restore(s Snapshot) error {
	switch {
	case !s.Convention.Valid():
		return e.reject("restore", fmt.Errorf("%w: convention %q", ErrInvalidSetting, s.Convention))
	case !s.Delimiter.Valid():
		return e.reject("restore", fmt.Errorf("%w: delimiter style %q", ErrInvalidSetting, s.Delimiter))
	}
	if err := validateRails(e.axis, s.Active, s.Inactive, e.limits); err != nil {
		return e.reject("restore", err)
	}
	e.active = slices.Clone(s.Active)
	e.inactive = slices.Clone(s.Inactive)
	e.nextIndex = maxIndex(e.active, e.inactive) + 1
	e.convention = s.Convention
	e.style = s.Delimiter
	e.applyConvention()
	e.changed(true)
	return nil
}

// MoveToken moves the token with index to position on rail. Positions past
// the end append.
func (e *Engine) MoveToken(index int, to Rail, position int) error {
	from, pos := Active, findIndex(e.active, index)
	if pos < 0 {
		from, pos = Inactive, findIndex(e.inactive, index)
	}
	if pos < 0 {
		return e.reject("move token", fmt.Errorf("%w: %d", ErrUnknownIndex, index))
	}
	active, inactive := slices.Clone(e.active), slices.Clone(e.inactive)
	src := &active
	if from == Inactive {
		src = &inactive
	}
	tok := (*src)[pos]
	*src = slices.Delete(*src, pos, pos+1)

	dst := &active
	if to == Inactive {
		dst = &inactive
	}
	position = min(max(position, 0), len(*dst))
	*dst = slices.Insert(*dst, position, tok)

	if err := validateRails(e.axis, active, inactive, e.limits); err != nil {
		return e.reject("move token", err)
	}
	e.active, e.inactive = active, inactive
	e.changed(from == Active || to == Active)
	return nil
}

// AddDelimiter parks a new delimiter on the inactive rail.
func (e *Engine) AddDelimiter() error {
	if e.DisableAdd() {
		return e.reject("add delimiter", fmt.Errorf("%w: %d overall, %d inactive",
			ErrDelimiterLimit, e.limits.MaxOverall, e.limits.MaxInactive))
	}
	e.inactive = append(e.inactive, NewDelimiter(e.nextIndex))
	e.nextIndex++
	e.changed(false)
	return nil
}

// RemoveNewestDelimiter removes the most recently created delimiter from
// the inactive rail, or from the active rail when none is parked.
func (e *Engine) RemoveNewestDelimiter() error {
	if pos := newestDelimiter(e.inactive); pos >= 0 {
		e.inactive = slices.Delete(slices.Clone(e.inactive), pos, pos+1)
		e.changed(false)
		return nil
	}
	if pos := newestDelimiter(e.active); pos >= 0 {
		e.active = slices.Delete(slices.Clone(e.active), pos, pos+1)
		e.changed(true)
		return nil
	}
	return e.reject("remove delimiter", ErrNoDelimiter)
}

// SetConvention switches between 12-hour and 24-hour display.
func (e *Engine) SetConvention(c Convention) error {
	if !c.Valid() {
		return e.reject("set convention", fmt.Errorf("%w: convention %q", ErrInvalidSetting, c))
	}
	if c == e.convention {
		return nil
	}
	e.convention = c
	// Meridiem flags first: rebinding and recompiling read them.
	e.applyConvention()
	e.changed(true)
	return nil
}

func (e *Engine) SetDelimiterStyle(s DelimiterStyle) error {
	if !s.Valid() {
		return e.reject("set delimiter style", fmt.Errorf("%w: delimiter style %q", ErrInvalidSetting, s))
	}
	if s == e.style {
		return nil
	}
	e.style = s
	e.recompile()
	e.notify()
	return nil
}

// TierFor returns the update tier of the token with index.
func (e *Engine) TierFor(index int) (timer.Tier, error) {
	for _, rail := range [][]FormatToken{e.active, e.inactive} {
		if pos := findIndex(rail, index); pos >= 0 {
			if rail[pos].Delimiter {
				return 0, fmt.Errorf("%w: %d is a delimiter", ErrMalformedToken, index)
			}
			return TierOf(rail[pos].Token)
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
}

// Bind registers a callback for every visible active token in the tier
// group of its kind and renders all of them once. sink sees a token only
// when its text changes. A previous binding is released first.
func (e *Engine) Bind(s *timer.Scheduler, sink Sink) {
	e.Unbind()
	e.sched = s
	e.sink = sink
	e.rebind()
}

// Unbind removes every callback registered by Bind.
func (e *Engine) Unbind() {
	if e.sched != nil {
		for _, b := range e.bound {
			e.sched.RemoveGroupFunction(b.group, b.id)
		}
	}
	e.bound = nil
	e.sched = nil
	e.sink = nil
	clear(e.texts)
}

// Text renders the active rail at the current clock reading. Tiers firing at
// the same boundary arrive as separate ticks, so the per-token cache only
// decides when the sink hears about a change; a row is always rendered whole.
func (e *Engine) Text() string {
	return e.Preview(e.now())
}

// Preview renders the active rail at t without touching bindings.
func (e *Engine) Preview(t time.Time) string {
	return RenderRail(e.active, e.convention, e.style, t)
}

func (e *Engine) now() time.Time {
	if e.sched != nil {
		return e.sched.Now()
	}
	return time.Now()
}

func (e *Engine) applyConvention() {
	disabled := e.convention == Hour24
	for _, rail := range [][]FormatToken{e.active, e.inactive} {
		for i := range rail {
			if rail[i].Token.Meridiem() {
				rail[i].Disabled = disabled
			}
		}
	}
}

// changed finishes an accepted mutation. Bindings and the format string are
// rebuilt when the active rail may render differently.
func (e *Engine) changed(active bool) {
	if active {
		e.rebind()
		e.recompile()
	}
	e.notify()
}

func (e *Engine) rebind() {
	if e.sched == nil {
		return
	}
	for _, b := range e.bound {
		e.sched.RemoveGroupFunction(b.group, b.id)
	}
	e.bound = e.bound[:0]
	clear(e.texts)

	now := e.sched.Now()
	for _, tok := range e.active {
		literal, ok := Literal(tok, e.convention)
		if !ok {
			continue
		}
		tier, err := TierOf(tok.Token)
		if err != nil {
			e.log.Warn("token has no update tier", zap.Int("index", tok.Index), zap.Error(err))
			continue
		}
		index := tok.Index
		id := e.sched.AddGroupFunction(tier.GroupName(), func(now time.Time) {
			e.refresh(index, literal, now)
		})
		e.bound = append(e.bound, binding{group: tier.GroupName(), id: id})
		e.refresh(index, literal, now)
	}
}

func (e *Engine) refresh(index int, literal string, now time.Time) {
	text := Render(literal, now)
	if prev, ok := e.texts[index]; ok && prev == text {
		return
	}
	e.texts[index] = text
	if e.sink != nil {
		e.sink(index, text)
	}
}

func (e *Engine) recompile() {
	f := CompileFormatString(e.active, e.convention, e.style)
	if f == "" {
		e.log.Debug("active rail compiles to nothing, keeping last format", zap.String("format", e.format))
		return
	}
	e.format = f
}

func (e *Engine) notify() {
	if len(e.observers) == 0 {
		return
	}
	snap := e.Snapshot()
	for _, fn := range e.observers {
		fn(snap)
	}
}

func (e *Engine) reject(op string, err error) error {
	e.log.Warn("format mutation rejected", zap.String("op", op), zap.Error(err))
	return err
}
