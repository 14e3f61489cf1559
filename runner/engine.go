package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/offpeak/envplace/envfile"
)

type exiter interface {
	Exit(code int)
}

type defaultExiter struct{}

func (d defaultExiter) Exit(code int) {
	os.Exit(code)
}

// Result describes one evaluation.
type Result struct {
	// Values holds the extracted value of every configured key.
	Values map[string]string
	// Blank lists the configured keys that resolved to an empty value.
	Blank []string
	// Skipped holds line numbers of env file lines without a separator.
	Skipped      []int
	Placeholders Placeholders
}

// Engine evaluates the env file and injects placeholders, once or on every change.
type Engine struct {
	config *Config

	exiter    exiter
	logger    *logger
	out       io.Writer
	debugMode bool
	running   atomic.Bool

	// store backs the placeholders when no store file is configured.
	store Placeholders

	exitCh   chan bool
	stopOnce sync.Once

	mu sync.Mutex // guards store and the store file
	ll sync.Mutex // lock for logger
}

// NewEngineWithConfig returns an engine for an already resolved cfg.
func NewEngineWithConfig(cfg *Config, debugMode bool) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	e := Engine{
		config:    cfg,
		exiter:    defaultExiter{},
		logger:    newLogger(cfg, nil),
		out:       os.Stdout,
		debugMode: debugMode,
		store:     Placeholders{},
		exitCh:    make(chan bool),
	}
	return &e, nil
}

// NewEngine loads the config at cfgPath, applies args on top and returns an engine for it.
func NewEngine(cfgPath string, args map[string]TomlInfo, debugMode bool) (*Engine, error) {
	cfg, err := InitConfig(cfgPath, args)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(cfg, debugMode)
}

// Config returns the resolved configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Run evaluates once and, with watch enabled, again on every env file change
// until Stop is called.
func (e *Engine) Run() {
	e.mainDebug("root: %s", e.config.Root)

	if _, err := e.Evaluate(); err != nil {
		e.mainLog("evaluation failed: %s", err.Error())
		e.exiter.Exit(1)
		return
	}
	if !e.config.Watch.Enabled {
		return
	}
	if err := e.watch(); err != nil {
		e.mainLog("watch failed: %s", err.Error())
		e.exiter.Exit(1)
	}
}

// Stop ends a running watch loop. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.exitCh)
	})
}

// Evaluate reads the env file, warns about blank keys and injects the values
// into the placeholder store. Problems with the env file are never errors;
// only failing to update the store is.
func (e *Engine) Evaluate() (*Result, error) {
	env, stats, err := envfile.Read(e.config.envPath())
	if err != nil {
		e.warnLog("%s, continuing with %d entries", err.Error(), len(env))
	}
	e.loaderLog("loaded %d entries from %s", len(env), e.config.EnvFile)
	e.loaderDebug("%d lines, %d blank, %d comments, %d skipped", stats.Lines, stats.Blank, stats.Comments, len(stats.Skipped))
	if e.config.Strict {
		for _, n := range stats.Skipped {
			e.warnLog("%s:%d has no '=' separator, line skipped", e.config.EnvFile, n)
		}
	}

	res := &Result{
		Values:  make(map[string]string, len(e.config.Placeholder.Keys)),
		Skipped: stats.Skipped,
	}
	for _, key := range e.config.Placeholder.Keys {
		if _, seen := res.Values[key]; seen {
			continue
		}
		v := env.Lookup(key, "")
		if v == "" {
			e.warnLog("%s is blank. Check %s", key, e.config.EnvFile)
			res.Blank = append(res.Blank, key)
		}
		res.Values[key] = v
	}

	res.Placeholders, err = e.inject(res.Values)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) inject(values map[string]string) (Placeholders, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mode := e.config.Placeholder.Mode
	path := e.config.storePath()
	if path == "" {
		next, err := e.store.Apply(mode, values)
		if err != nil {
			return nil, err
		}
		e.store = next
		e.placeholderLog("%s %d placeholder(s), store has %d", mode, len(values), len(next))
		if err := printPlaceholders(e.out, next); err != nil {
			return nil, fmt.Errorf("failed to print placeholders: %w", err)
		}
		return next, nil
	}

	current := Placeholders{}
	if mode == ModeMerge {
		var err error
		if current, err = readPlaceholders(path); err != nil {
			return nil, err
		}
	}
	next, err := current.Apply(mode, values)
	if err != nil {
		return nil, err
	}
	if err := writePlaceholders(path, next); err != nil {
		return nil, err
	}
	e.placeholderLog("%s %d placeholder(s) into %s, store has %d", mode, len(values), e.config.Placeholder.File, len(next))
	return next, nil
}

func (e *Engine) watch() error {
	w, err := newWatcher(e.config)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	envPath := filepath.Clean(e.config.envPath())
	// The file itself may not exist yet, so watch its directory.
	dir := filepath.Dir(envPath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	e.watcherLog("watching %s", e.config.EnvFile)

	e.running.Store(true)
	defer e.running.Store(false)

	delay := e.config.watchDelay()
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-e.exitCh:
			e.mainDebug("exit in watch")
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != envPath || !validEvent(ev) {
				continue
			}
			e.watcherDebug("event: %s", ev.String())
			if removeEvent(ev) {
				e.watcherLog("%s removed", e.config.EnvFile)
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			e.watcherLog("error: %s", err.Error())
		case <-fire:
			fire = nil
			e.watcherLog("%s changed, re-evaluating", e.config.EnvFile)
			if _, err := e.Evaluate(); err != nil {
				e.mainLog("evaluation failed: %s", err.Error())
			}
		}
	}
}
