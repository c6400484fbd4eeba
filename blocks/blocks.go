package blocks

import (
	"tokenclock/clicks"
	"tokenclock/config"
)

// Block represents an i3bar protocol block. Clock blocks fill Name, the
// texts, Color and the separator fields; the rest stay empty.
type Block struct {
	Name                string `json:"name,omitempty"`
	Instance            string `json:"instance,omitempty"`
	FullText            string `json:"full_text"`
	ShortText           string `json:"short_text,omitempty"`
	Color               string `json:"color,omitempty"`
	Background          string `json:"background,omitempty"`
	Separator           bool   `json:"separator"`
	SeparatorBlockWidth int    `json:"separator_block_width,omitempty"`
	Urgent              bool   `json:"urgent,omitempty"`
	Markup              string `json:"markup,omitempty"`
}

const SeparatorWidth = 12

// Provider supplies an up-to-date Block. Providers are push driven: their
// state changes from scheduler ticks, clicks or settings, and Refresh folds
// those changes into the Block. Refresh returns true if the Block changed.
type Provider interface {
	Name() string
	Refresh() (changed bool)
	Current() Block
}

// Handler is implemented by providers that react to clicks.
type Handler interface {
	Handle(clicks.Action) error
}

// Reconfigurer is implemented by providers that follow config reloads.
type Reconfigurer interface {
	Reconfigure(config.AxisModule) error
}

// Find returns the provider whose blocks are named name.
func Find(providers []Provider, name string) (Provider, bool) {
	for _, p := range providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
