package blocks

import (
	"go.uber.org/zap"

	"tokenclock/config"
	"tokenclock/settings"
	"tokenclock/timer"
)

// Deps are the shared services providers are built with.
type Deps struct {
	Scheduler *timer.Scheduler
	Store     *settings.Store
	Logger    *zap.Logger
}

// ProviderSpec describes how to enable and build a provider.
type ProviderSpec struct {
	Name   string
	Enable func(*config.Config) bool
	Build  func(*config.Config, Deps) (Provider, error)
}

var (
	reg      = map[string]ProviderSpec{}
	regOrder []string
)

// Register adds a provider spec if not already present. Subsequent registrations
// with the same name overwrite the spec but preserve original ordering.
func Register(spec ProviderSpec) {
	if _, exists := reg[spec.Name]; !exists {
		regOrder = append(regOrder, spec.Name)
	}
	reg[spec.Name] = spec
}

// BuildProviders returns provider instances in the order:
// 1. Order of module tables as specified in config file.
// 2. Registration order when the config names no modules.
// A provider that fails to build is replaced by an error block.
func BuildProviders(cfg *config.Config, deps Deps) []Provider {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	providers := []Provider{}
	appendIf := func(name string) {
		spec, ok := reg[name]
		if !ok {
			deps.Logger.Warn("unknown module in config", zap.String("module", name))
			return
		}
		if spec.Enable != nil && !spec.Enable(cfg) {
			return
		}
		p, err := spec.Build(cfg, deps)
		if err != nil {
			deps.Logger.Error("build module", zap.String("module", name), zap.Error(err))
			providers = append(providers, newErrorProvider(name, err))
			return
		}
		providers = append(providers, p)
	}
	if order := cfg.ModuleOrder(); len(order) > 0 { // explicit config file: only build those listed and enabled
		for _, n := range order {
			appendIf(n)
		}
		return providers
	}
	// No explicit file order (defaults case): use registration order
	for _, n := range regOrder {
		appendIf(n)
	}
	return providers
}
