package blocks

import "tokenclock/theme"

// ErrorBlock creates a red block for failures.
func ErrorBlock(name, msg string) Block {
	b := Block{
		Name:                name,
		FullText:            msg,
		Separator:           false,
		SeparatorBlockWidth: SeparatorWidth,
	}
	if c, ok := theme.ColorFor(theme.SeverityDanger); ok {
		b.Color = c
	}
	return b
}

// errorProvider stands in for a module that failed to build.
type errorProvider struct {
	blk     Block
	pending bool
}

func newErrorProvider(name string, err error) *errorProvider {
	return &errorProvider{blk: ErrorBlock(name, name+": "+err.Error()), pending: true}
}

func (e *errorProvider) Name() string { return e.blk.Name }

func (e *errorProvider) Refresh() bool {
	changed := e.pending
	e.pending = false
	return changed
}

func (e *errorProvider) Current() Block { return e.blk }
