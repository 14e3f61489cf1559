package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml"
)

const (
	dftTOML    = ".envplace.toml"
	envplaceWd = "ENVPLACE_WD"

	// KakaoNativeAppKey is the placeholder the Android manifest expects.
	KakaoNativeAppKey = "KAKAO_NATIVE_APP_KEY"
)

// Mode selects how extracted values reach the placeholder store.
type Mode string

const (
	// ModeMerge sets the extracted keys and keeps every other placeholder.
	ModeMerge Mode = "merge"
	// ModeReplace drops the store and keeps only the extracted keys.
	ModeReplace Mode = "replace"
)

// Config is the main configuration structure for envplace.
type Config struct {
	Root        string         `toml:"root" usage:"Base directory, . or absolute path. env_file and placeholder.file are relative to it"`
	EnvFile     string         `toml:"env_file" usage:"KEY=VALUE file to read"`
	Strict      bool           `toml:"strict" usage:"Warn about every line without a '=' separator"`
	Placeholder cfgPlaceholder `toml:"placeholder"`
	Log         cfgLog         `toml:"log"`
	Color       cfgColor       `toml:"color"`
	Watch       cfgWatch       `toml:"watch"`
}

type cfgPlaceholder struct {
	Keys   []string `toml:"keys" usage:"Keys to extract from env_file and inject as placeholders"`
	Mode   Mode     `toml:"mode" usage:"merge keeps other placeholders, replace drops them"`
	File   string   `toml:"file" usage:"Placeholder store read by the packaging step"`
	Stdout bool     `toml:"stdout" usage:"Keep the store in memory and print it to stdout instead of writing file"`
}

type cfgLog struct {
	AddTime bool `toml:"time" usage:"Show log time"`
	Silent  bool `toml:"silent" usage:"Silence all logs except warnings"`
}

type cfgColor struct {
	Main        string `toml:"main" usage:"Customize main part's color. If no color found, use the raw log"`
	Loader      string `toml:"loader" usage:"Customize loader part's color"`
	Placeholder string `toml:"placeholder" usage:"Customize placeholder part's color"`
	Watcher     string `toml:"watcher" usage:"Customize watcher part's color"`
	Warn        string `toml:"warn" usage:"Customize warning color"`
}

type cfgWatch struct {
	Enabled bool `toml:"enabled" usage:"Re-evaluate whenever env_file changes"`
	Poll    bool `toml:"poll" usage:"Poll env_file for changes instead of using fsnotify"`
	Delay   int  `toml:"delay" usage:"Debounce delay in ms, also the poll interval (minimum 500ms)"`
}

type sliceTransformer struct{}

func (t sliceTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() == reflect.Slice {
		return func(dst, src reflect.Value) error {
			if !src.IsZero() {
				dst.Set(src)
			}
			return nil
		}
	}
	return nil
}

// InitConfig reads the config at path, or looks for .envplace.toml when path
// is empty, and merges it over the defaults. Flag values in args win over both.
func InitConfig(path string, args map[string]TomlInfo) (cfg *Config, err error) {
	if path == "" {
		cfg, err = defaultPathConfig()
	} else {
		cfg, err = readConfig(path)
	}
	if err != nil {
		return nil, err
	}
	config := defaultConfig()
	ret := &config
	err = mergo.Merge(ret, cfg, func(config *mergo.Config) {
		// Overwrite alone would merge slices element-wise into the defaults;
		// a user-provided slice replaces the default one.
		config.Transformers = sliceTransformer{}
		config.Overwrite = true
	})
	if err != nil {
		return nil, err
	}
	if args != nil {
		ret.WithArgs(args)
	}

	err = ret.preprocess()
	return ret, err
}

// WriteDefaultConfig writes the default configuration to .envplace.toml in the
// working directory. It refuses to overwrite an existing file.
func WriteDefaultConfig() (string, error) {
	fstat, err := os.Stat(dftTOML)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check for existing configuration: %w", err)
	}
	if err == nil && fstat != nil {
		return "", errors.New("configuration already exists")
	}

	file, err := os.Create(dftTOML)
	if err != nil {
		return "", fmt.Errorf("failed to create a new configuration: %w", err)
	}
	defer file.Close()

	config := defaultConfig()
	configFile, err := toml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the default configuration: %w", err)
	}

	_, err = file.Write(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to write to %s: %w", dftTOML, err)
	}

	return dftTOML, nil
}

func defaultPathConfig() (*Config, error) {
	// when path is blank, look for .envplace.toml in ENVPLACE_WD or the working directory
	cfg, err := readConfByName(dftTOML)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	dftCfg := defaultConfig()
	return &dftCfg, nil
}

func readConfByName(name string) (*Config, error) {
	var path string
	if wd := os.Getenv(envplaceWd); wd != "" {
		path = filepath.Join(wd, name)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(wd, name)
	}
	return readConfig(path)
}

func defaultConfig() Config {
	return Config{
		Root:    ".",
		EnvFile: "../.env",
		Placeholder: cfgPlaceholder{
			Keys: []string{KakaoNativeAppKey},
			Mode: ModeMerge,
			File: "build/manifest-placeholders.env",
		},
		Log: cfgLog{
			AddTime: false,
			Silent:  false,
		},
		Color: cfgColor{
			Main:        "magenta",
			Loader:      "cyan",
			Placeholder: "green",
			Watcher:     "blue",
			Warn:        "yellow",
		},
		Watch: cfgWatch{
			Enabled: false,
			Poll:    false,
			Delay:   500,
		},
	}
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)
	if err = toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) preprocess() error {
	var err error
	cwd := os.Getenv(envplaceWd)
	if cwd != "" {
		c.Root = cwd
	}
	c.Root, err = expandPath(c.Root)
	if err != nil {
		return err
	}
	if c.EnvFile == "" {
		c.EnvFile = defaultConfig().EnvFile
	}

	keys := make([]string, 0, len(c.Placeholder.Keys))
	for _, k := range c.Placeholder.Keys {
		if k = cleanKey(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		keys = defaultConfig().Placeholder.Keys
	}
	c.Placeholder.Keys = keys

	switch c.Placeholder.Mode {
	case "":
		c.Placeholder.Mode = ModeMerge
	case ModeMerge, ModeReplace:
	default:
		return fmt.Errorf("unknown placeholder mode %q, want %q or %q", c.Placeholder.Mode, ModeMerge, ModeReplace)
	}

	if c.Watch.Delay < 0 {
		c.Watch.Delay = 0
	}
	return nil
}

func (c *Config) colorInfo() map[string]string {
	return map[string]string{
		"main":        c.Color.Main,
		"loader":      c.Color.Loader,
		"placeholder": c.Color.Placeholder,
		"watcher":     c.Color.Watcher,
		"warn":        c.Color.Warn,
	}
}

func (c *Config) envPath() string {
	return joinPath(c.Root, c.EnvFile)
}

// storePath is empty when the store stays in memory.
func (c *Config) storePath() string {
	if c.Placeholder.Stdout || c.Placeholder.File == "" {
		return ""
	}
	return joinPath(c.Root, c.Placeholder.File)
}

func (c *Config) watchDelay() time.Duration {
	return time.Duration(c.Watch.Delay) * time.Millisecond
}

func (c *Config) pollInterval() time.Duration {
	// minimum poll interval of 500ms
	interval := c.Watch.Delay
	if interval < 500 {
		interval = 500
	}
	return time.Duration(interval) * time.Millisecond
}

// WithArgs applies flag values that differ from the defaults.
func (c *Config) WithArgs(args map[string]TomlInfo) {
	for _, value := range args {
		// Ignore values that match the default configuration.
		// This ensures user-specified configurations are not overwritten by default values.
		if value.Value != nil && *value.Value != "" && *value.Value != value.fieldValue {
			v := reflect.ValueOf(c)
			setValue2Struct(v, value.fieldPath, *value.Value)
		}
	}
}
