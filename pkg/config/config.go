package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .recall/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in the
// order they appear in config.toml.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	missed := make([]string, 0)
	for k := range configKeys {
		if !seen[k] {
			missed = append(missed, k)
		}
	}
	sort.Strings(missed)

	return append(result, missed...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// Dir returns the resolved .recall/ directory, or "" when none was resolved.
func (c *Configer) Dir() string {
	if c.targetPath == "" {
		return ""
	}
	return filepath.Dir(c.targetPath)
}

// LoadConfig loads the configuration from config.toml in the target .recall/ directory.
// If the file does not exist, returns DefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
// If overrideDir is non-empty, it is used instead of the default .recall/ location.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fillString(&cfg.Storage.Provider, d.Storage.Provider)

	fillString(&cfg.VectorStore.Provider, d.VectorStore.Provider)
	fillString(&cfg.VectorStore.Collection, d.VectorStore.Collection)

	fillString(&cfg.Embedding.Provider, d.Embedding.Provider)
	fillString(&cfg.Embedding.Target, d.Embedding.Target)
	fillString(&cfg.Embedding.Model, d.Embedding.Model)
	fillUint(&cfg.Embedding.Dimensions, d.Embedding.Dimensions)
	fillUint(&cfg.Embedding.CacheSize, d.Embedding.CacheSize)

	fillString(&cfg.LLM.Provider, d.LLM.Provider)
	fillString(&cfg.LLM.Target, d.LLM.Target)
	fillString(&cfg.LLM.Model, d.LLM.Model)

	fillString(&cfg.API.Listen, d.API.Listen)
	fillString(&cfg.Client.APITarget, d.Client.APITarget)

	fillUint(&cfg.Engine.ContextWindow, d.Engine.ContextWindow)
	fillUint(&cfg.Engine.SearchLimit, d.Engine.SearchLimit)
	fillString(&cfg.Engine.OwnerLock, d.Engine.OwnerLock)
	fillString(&cfg.Engine.RedisAddr, d.Engine.RedisAddr)
	fillUint(&cfg.Engine.ReconcileWorkers, d.Engine.ReconcileWorkers)

	fillString(&cfg.Events.Provider, d.Events.Provider)
	fillString(&cfg.Events.Brokers, d.Events.Brokers)
	fillString(&cfg.Events.Topic, d.Events.Topic)
	fillString(&cfg.Events.NATSURL, d.Events.NATSURL)
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillUint(dst *uint, def uint) {
	if *dst == 0 {
		*dst = def
	}
}

// SaveConfig persists the configuration to config.toml in the target .recall/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.LLM = LLMConfig{
			Provider: "openai",
			Target:   "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
		}
		cfg.Embedding = EmbeddingConfig{
			Provider:   "openai",
			Target:     "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			CacheSize:  defaultEmbeddingCacheSize,
		}

	case "anthropic":
		// Anthropic has no embeddings API; embeddings stay on local Ollama.
		cfg.LLM = LLMConfig{
			Provider: "anthropic",
			Target:   "https://api.anthropic.com",
			Model:    "claude-3-5-haiku-latest",
		}

	case "ollama":
		cfg.Embedding.Model = "nomic-embed-text"

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentConfigVersion.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
