package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"tokenclock/blocks"
	"tokenclock/clicks"
	"tokenclock/clock"
	"tokenclock/config"
	"tokenclock/logging"
	"tokenclock/settings"
	"tokenclock/timer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tokenclock:", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	statePath  string
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("tokenclock", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/tokenclock/config.toml)")
	fs.StringVarP(&opts.statePath, "state", "s", "", "state file, overrides state_file")
	fs.StringVarP(&opts.logLevel, "log-level", "l", "", "debug, info, warn or error; overrides log_level")
	err := fs.Parse(args)
	return opts, err
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, cfgErr := config.Load(opts.configPath)
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, atom, err := logging.New(&logging.Conf{Level: level, Path: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Sync()
	switch {
	case errors.Is(cfgErr, config.ErrNoConfig):
		logger.Info("no config file, using defaults")
	case cfgErr != nil:
		logger.Warn("config rejected, using defaults", zap.Error(cfgErr))
	}

	sched := timer.New(clock.Real(), logger)
	defer sched.Close()
	if err := timer.StartTiers(sched); err != nil {
		return err
	}

	store := openStore(statePath(opts.statePath, cfg.StateFile), logger)
	providers := blocks.BuildProviders(cfg, blocks.Deps{Scheduler: sched, Store: store, Logger: logger})
	defer func() {
		for _, p := range providers {
			if c, ok := p.(io.Closer); ok {
				c.Close()
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reloads <-chan *config.Config
	if path := cfg.Path(); path != "" {
		if reloads, err = config.Watch(ctx, path, logger); err != nil {
			logger.Warn("config changes will not be picked up", zap.Error(err))
		}
	}

	// i3bar protocol header and opening array.
	fmt.Println(`{"version":1,"click_events":true}`)
	fmt.Println("[")
	fmt.Println("[]")

	clickCh := make(chan clicks.Click, 16)
	go clicks.Read(os.Stdin, clickCh, logger)

	bar := &bar{out: os.Stdout, log: logger, providers: providers}
	thr := newThrottle(cfg.MaxRefreshHz)
	defer thr.stop()
	thr.request(bar.renderOnce)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case tick := <-sched.C():
			sched.Dispatch(tick)
		case c := <-clickCh:
			bar.handleClick(c)
		case next, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if opts.logLevel == "" {
				if err := logging.SetLevel(atom, next.LogLevel); err != nil {
					logger.Warn("log level not changed", zap.Error(err))
				}
			}
			bar.reconfigure(next)
			thr.setRate(next.MaxRefreshHz)
		case <-thr.C():
			thr.fired()
			bar.renderOnce()
			continue
		}
		thr.request(bar.renderOnce)
	}
}

// statePath picks the flag, then the config key, then the XDG state dir.
func statePath(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tokenclock", "state.yaml")
	}
	if home, _ := os.UserHomeDir(); home != "" {
		return filepath.Join(home, ".local", "state", "tokenclock", "state.yaml")
	}
	return ""
}

func openStore(path string, logger *zap.Logger) *settings.Store {
	if path == "" {
		return settings.New(logger)
	}
	store, err := settings.Open(path, logger)
	if err != nil {
		logger.Error("state file unusable, edits will not persist", zap.String("path", path), zap.Error(err))
		return settings.New(logger)
	}
	return store
}

type bar struct {
	out       io.Writer
	log       *zap.Logger
	providers []blocks.Provider
	buf       bytes.Buffer
}

// renderOnce refreshes providers and emits a JSON row if any block changed.
// After the initial empty array every row is comma-prefixed per i3bar
// protocol.
func (b *bar) renderOnce() {
	changed := false
	blocksOut := make([]blocks.Block, 0, len(b.providers))
	for _, p := range b.providers {
		if p.Refresh() {
			changed = true
		}
		blocksOut = append(blocksOut, p.Current())
	}
	if !changed {
		return
	}
	b.buf.Reset()
	enc := json.NewEncoder(&b.buf)
	if err := enc.Encode(blocksOut); err != nil {
		b.log.Error("encode blocks", zap.Error(err))
		return
	}
	outBytes := bytes.TrimRight(b.buf.Bytes(), "\n")
	fmt.Fprintf(b.out, ",%s\n", outBytes)
}

func (b *bar) handleClick(c clicks.Click) {
	action, ok := clicks.ActionFor(c)
	if !ok {
		b.log.Debug("unbound click", zap.String("name", c.Name), zap.Int("button", c.Button))
		return
	}
	p, ok := blocks.Find(b.providers, c.Name)
	if !ok {
		b.log.Debug("click on unknown block", zap.String("name", c.Name))
		return
	}
	h, ok := p.(blocks.Handler)
	if !ok {
		return
	}
	// Rejections are logged by the provider; the bar keeps its state.
	_ = h.Handle(action)
}

func (b *bar) reconfigure(cfg *config.Config) {
	for _, p := range b.providers {
		r, ok := p.(blocks.Reconfigurer)
		if !ok {
			continue
		}
		mod, ok := cfg.Module(p.Name())
		if !ok {
			continue
		}
		if !mod.Enabled {
			b.log.Info("disabling a module takes a restart", zap.String("module", p.Name()))
			continue
		}
		_ = r.Reconfigure(mod)
	}
}

// throttle caps how often rows are written. A request inside the gap since
// the last row is deferred to the end of the gap.
type throttle struct {
	gap     time.Duration
	last    time.Time
	timer   *time.Timer
	pending bool
}

func newThrottle(hz int) *throttle {
	t := &throttle{timer: time.NewTimer(time.Hour)}
	t.timer.Stop()
	t.setRate(hz)
	return t
}

func (t *throttle) setRate(hz int) {
	t.gap = time.Second / time.Duration(max(hz, 1))
}

func (t *throttle) C() <-chan time.Time { return t.timer.C }

// request runs emit now when allowed, otherwise arms the timer once.
func (t *throttle) request(emit func()) {
	if t.pending {
		return
	}
	if wait := t.gap - time.Since(t.last); wait > 0 {
		t.pending = true
		t.timer.Reset(wait)
		return
	}
	t.last = time.Now()
	emit()
}

func (t *throttle) fired() {
	t.pending = false
	t.last = time.Now()
}

func (t *throttle) stop() { t.timer.Stop() }
