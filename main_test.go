package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tokenclock/blocks"
	"tokenclock/clicks"
	"tokenclock/config"
)

type stubProvider struct {
	name     string
	blk      blocks.Block
	changed  bool
	actions  []clicks.Action
	reloaded []config.AxisModule
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Refresh() bool {
	c := s.changed
	s.changed = false
	return c
}

func (s *stubProvider) Current() blocks.Block { return s.blk }

func (s *stubProvider) Handle(a clicks.Action) error {
	s.actions = append(s.actions, a)
	return nil
}

func (s *stubProvider) Reconfigure(m config.AxisModule) error {
	s.reloaded = append(s.reloaded, m)
	return nil
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "/tmp/c.toml", "-s", "/tmp/s.yaml", "--log-level=debug"})
	require.NoError(t, err)
	assert.Equal(t, options{configPath: "/tmp/c.toml", statePath: "/tmp/s.yaml", logLevel: "debug"}, opts)

	_, err = parseFlags([]string{"--bogus"})
	assert.Error(t, err)
}

func TestStatePath(t *testing.T) {
	assert.Equal(t, "/flag", statePath("/flag", "/cfg"))
	assert.Equal(t, "/cfg", statePath("", "/cfg"))

	t.Setenv("XDG_STATE_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "tokenclock", "state.yaml"), statePath("", ""))
}

func TestRenderOnceWritesChangedRows(t *testing.T) {
	date := &stubProvider{name: "date", blk: blocks.Block{Name: "date", FullText: "2026-03-14"}, changed: true}
	tm := &stubProvider{name: "time", blk: blocks.Block{Name: "time", FullText: "21:30:17"}}
	var out bytes.Buffer
	b := &bar{out: &out, log: zap.NewNop(), providers: []blocks.Provider{date, tm}}

	b.renderOnce()
	line := out.String()
	require.True(t, strings.HasPrefix(line, ","))
	require.True(t, strings.HasSuffix(line, "\n"))

	var row []blocks.Block
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(line[1:])), &row))
	assert.Equal(t, []string{"2026-03-14", "21:30:17"}, []string{row[0].FullText, row[1].FullText})

	out.Reset()
	b.renderOnce()
	assert.Empty(t, out.String(), "no change, no row")
}

func TestHandleClickRoutesByName(t *testing.T) {
	date := &stubProvider{name: "date"}
	tm := &stubProvider{name: "time"}
	b := &bar{log: zap.NewNop(), providers: []blocks.Provider{date, tm}}

	b.handleClick(clicks.Click{Name: "time", Button: clicks.ButtonRight})
	b.handleClick(clicks.Click{Name: "time", Button: 9})
	b.handleClick(clicks.Click{Name: "cpu", Button: clicks.ButtonLeft})

	assert.Equal(t, []clicks.Action{clicks.CycleDelimiter}, tm.actions)
	assert.Empty(t, date.actions)
}

func TestReconfigureSkipsDisabledModules(t *testing.T) {
	date := &stubProvider{name: "date"}
	tm := &stubProvider{name: "time"}
	b := &bar{log: zap.NewNop(), providers: []blocks.Provider{date, tm}}

	cfg := config.Defaults()
	cfg.Modules.Date.Enabled = false
	cfg.Modules.Time.Delimiter = "dot"
	b.reconfigure(cfg)

	assert.Empty(t, date.reloaded)
	require.Len(t, tm.reloaded, 1)
	assert.Equal(t, "dot", tm.reloaded[0].Delimiter)
}

func TestThrottle(t *testing.T) {
	thr := newThrottle(2)
	defer thr.stop()
	emits := 0
	emit := func() { emits++ }

	thr.request(emit)
	assert.Equal(t, 1, emits)

	// Inside the gap: deferred once.
	thr.request(emit)
	thr.request(emit)
	assert.Equal(t, 1, emits)
	assert.True(t, thr.pending)

	select {
	case <-thr.C():
		thr.fired()
		emit()
	case <-time.After(5 * time.Second):
		t.Fatal("deferred row never fired")
	}
	assert.Equal(t, 2, emits)
	assert.False(t, thr.pending)

	thr.setRate(0)
	assert.Equal(t, time.Second, thr.gap)
}
