package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenclock/config"
	"tokenclock/theme"
)

func names(providers []Provider) []string {
	var out []string
	for _, p := range providers {
		out = append(out, p.Name())
	}
	return out
}

func TestBuildProvidersDefaultOrder(t *testing.T) {
	h := newHarness(t)
	providers := BuildProviders(config.Defaults(), h.deps)
	assert.Equal(t, []string{"date", "time"}, names(providers))
	assert.Equal(t, "2026-03-14", providers[0].Current().FullText)
	assert.Equal(t, "21:30:17", providers[1].Current().FullText)
}

func TestBuildProvidersFollowsConfigOrder(t *testing.T) {
	h := newHarness(t)
	cfg, err := config.Parse("[modules.time]\nprefix = \"T \"\n\n[modules.date]\nenabled = false\n")
	require.NoError(t, err)

	providers := BuildProviders(cfg, h.deps)
	assert.Equal(t, []string{"time"}, names(providers))
	assert.Equal(t, "T 21:30:17", providers[0].Current().FullText)

	p, ok := Find(providers, "time")
	require.True(t, ok)
	_, isHandler := p.(Handler)
	assert.True(t, isHandler)
	_, ok = Find(providers, "date")
	assert.False(t, ok)
}

func TestBuildFailureBecomesErrorBlock(t *testing.T) {
	providers := BuildProviders(config.Defaults(), Deps{})
	require.Len(t, providers, 2)
	for _, p := range providers {
		assert.True(t, p.Refresh(), "first refresh reports the error")
		assert.False(t, p.Refresh())
		assert.Equal(t, theme.Current.Danger, p.Current().Color)
		assert.Contains(t, p.Current().FullText, "needs a scheduler")
	}
}
