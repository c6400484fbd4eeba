package blocks

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"tokenclock/clicks"
	"tokenclock/config"
	"tokenclock/format"
	"tokenclock/settings"
	"tokenclock/theme"
)

func init() {
	for _, axis := range []format.Axis{format.DateAxis, format.TimeAxis} {
		Register(ProviderSpec{
			Name: string(axis),
			Enable: func(cfg *config.Config) bool {
				mod, _ := cfg.Module(string(axis))
				return mod.Enabled
			},
			Build: func(cfg *config.Config, deps Deps) (Provider, error) {
				mod, _ := cfg.Module(string(axis))
				return NewClockProvider(axis, mod, deps)
			},
		})
	}
}

// ClockProvider renders one format axis. Its engine is bound to the tier
// groups, every accepted edit is written to the settings store, and state
// set in the store by others is applied back to the engine.
type ClockProvider struct {
	axis   format.Axis
	engine *format.Engine
	store  *settings.Store
	log    *zap.Logger
	module config.AxisModule
	cancel func()

	dirty    bool
	lastText string // last non-empty rendered text
	blk      Block
}

// NewClockProvider builds the provider for axis. Stored state wins over the
// module config; stored state the engine rejects is replaced by the config.
func NewClockProvider(axis format.Axis, mod config.AxisModule, deps Deps) (*ClockProvider, error) {
	if deps.Scheduler == nil {
		return nil, errors.New("clock block needs a scheduler")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = settings.New(deps.Logger)
	}
	log := deps.Logger.Named("blocks").With(zap.String("block", string(axis)))

	engine, err := format.New(axis, format.Convention(mod.Convention), format.DelimiterStyle(mod.Delimiter),
		format.WithLogger(deps.Logger))
	if err != nil {
		return nil, err
	}
	p := &ClockProvider{
		axis:   axis,
		engine: engine,
		store:  deps.Store,
		log:    log,
		module: mod,
	}

	restored := false
	if st, ok := p.store.Get(axis); ok {
		if err := engine.Restore(st.Snapshot(axis)); err != nil {
			log.Warn("stored format rejected, using config", zap.Error(err))
		} else {
			restored = true
		}
	}
	if !restored {
		if err := p.apply(mod); err != nil {
			return nil, fmt.Errorf("%s format: %w", axis, err)
		}
	}

	engine.OnChange(p.onEngine)
	p.persist(engine.Snapshot())
	p.cancel = p.store.Subscribe(p.onStore)
	engine.Bind(deps.Scheduler, func(int, string) { p.dirty = true })
	p.dirty = true
	p.Refresh()
	return p, nil
}

func (p *ClockProvider) Name() string { return string(p.axis) }

func (p *ClockProvider) Engine() *format.Engine { return p.engine }

func (p *ClockProvider) Refresh() bool {
	if !p.dirty {
		return false
	}
	p.dirty = false

	blk := Block{
		Name:                string(p.axis),
		Separator:           false,
		SeparatorBlockWidth: SeparatorWidth,
	}
	sev := theme.SeverityNormal
	text := p.engine.Text()
	if p.engine.Stale() || text == "" {
		// Nothing visible on the rail: keep showing the last good text.
		sev = theme.SeverityStale
		text = p.lastText
		if text == "" {
			text = p.engine.Format()
		}
	} else {
		p.lastText = text
	}
	if c, ok := theme.ColorFor(sev); ok {
		blk.Color = c
	}
	blk.FullText = p.module.Prefix + text
	blk.ShortText = text

	if blk == p.blk {
		return false
	}
	p.blk = blk
	return true
}

func (p *ClockProvider) Current() Block { return p.blk }

// Handle applies a click action to the engine.
func (p *ClockProvider) Handle(a clicks.Action) error {
	var err error
	switch a {
	case clicks.ToggleConvention:
		err = p.engine.SetConvention(p.engine.Convention().Toggle())
	case clicks.CycleDelimiter:
		err = p.engine.SetDelimiterStyle(p.engine.Delimiter().Next())
	case clicks.AppendDelimiter:
		err = p.appendDelimiter()
	case clicks.DropDelimiter:
		err = p.dropDelimiter()
	case clicks.ResetFormat:
		err = p.apply(p.module)
	default:
		err = fmt.Errorf("unsupported click action %v", a)
	}
	if err != nil {
		p.log.Info("click action not applied", zap.Stringer("action", a), zap.Error(err))
	}
	return err
}

// Reconfigure applies a reloaded module config. Edits made by clicks survive
// reloads that leave this module's format settings unchanged; a new prefix
// alone only relabels the block.
func (p *ClockProvider) Reconfigure(mod config.AxisModule) error {
	if moduleEqual(mod, p.module) {
		return nil
	}
	if p.module.Prefix != mod.Prefix {
		p.dirty = true
		prefixOnly := p.module
		prefixOnly.Prefix = mod.Prefix
		p.module = prefixOnly
		if moduleEqual(mod, p.module) {
			return nil
		}
	}
	st, err := moduleState(p.axis, mod)
	if err != nil {
		p.log.Warn("reloaded module rejected", zap.Error(err))
		return err
	}
	p.module = mod
	p.dirty = true
	// The store subscription hands the new state to the engine.
	return p.store.Set(p.axis, st)
}

// Close releases the scheduler callbacks and the store subscription.
func (p *ClockProvider) Close() error {
	p.engine.Unbind()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return nil
}

func (p *ClockProvider) apply(mod config.AxisModule) error {
	st, err := moduleState(p.axis, mod)
	if err != nil {
		return err
	}
	return p.engine.Restore(st.Snapshot(p.axis))
}

// appendDelimiter places a parked delimiter at the end of the active rail,
// parking a new one first when none is spare.
func (p *ClockProvider) appendDelimiter() error {
	index, ok := p.newestParked()
	if !ok {
		if err := p.engine.AddDelimiter(); err != nil {
			return err
		}
		index, _ = p.newestParked()
	}
	active, _ := p.engine.Rails()
	return p.engine.MoveToken(index, format.Active, len(active))
}

// dropDelimiter parks the last delimiter of the active rail, discarding the
// newest parked one first when the inactive rail is full.
func (p *ClockProvider) dropDelimiter() error {
	active, _ := p.engine.Rails()
	index := -1
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].Delimiter {
			index = active[i].Index
			break
		}
	}
	if index < 0 {
		return format.ErrNoDelimiter
	}
	err := p.engine.MoveToken(index, format.Inactive, 0)
	if errors.Is(err, format.ErrDelimiterLimit) {
		if err := p.engine.RemoveNewestDelimiter(); err != nil {
			return err
		}
		err = p.engine.MoveToken(index, format.Inactive, 0)
	}
	return err
}

func (p *ClockProvider) newestParked() (int, bool) {
	_, inactive := p.engine.Rails()
	index, ok := -1, false
	for _, tok := range inactive {
		if tok.Delimiter && tok.Index > index {
			index, ok = tok.Index, true
		}
	}
	return index, ok
}

func (p *ClockProvider) onEngine(s format.Snapshot) {
	p.dirty = true
	p.persist(s)
}

func (p *ClockProvider) persist(s format.Snapshot) {
	// Store errors are logged by the store; the display carries on.
	_ = p.store.Set(p.axis, settings.FromSnapshot(s))
}

func (p *ClockProvider) onStore(axis format.Axis, st settings.AxisState) {
	if axis != p.axis || st.Equal(settings.FromSnapshot(p.engine.Snapshot())) {
		return
	}
	if err := p.engine.Restore(st.Snapshot(axis)); err != nil {
		p.log.Warn("store update rejected", zap.Error(err))
		p.persist(p.engine.Snapshot())
	}
}

// moduleState turns a module config into the state it describes. Format is
// left for the engine to compile.
func moduleState(axis format.Axis, mod config.AxisModule) (settings.AxisState, error) {
	active, inactive, err := format.NewRails(axis, mod.Active, mod.SpareDelimiters)
	if err != nil {
		return settings.AxisState{}, err
	}
	return settings.AxisState{
		Active:     active,
		Inactive:   inactive,
		Convention: format.Convention(mod.Convention),
		Delimiter:  format.DelimiterStyle(mod.Delimiter),
	}, nil
}

func moduleEqual(a, b config.AxisModule) bool {
	return a.Enabled == b.Enabled &&
		a.Convention == b.Convention &&
		a.Delimiter == b.Delimiter &&
		a.SpareDelimiters == b.SpareDelimiters &&
		a.Prefix == b.Prefix &&
		slices.Equal(a.Active, b.Active)
}
