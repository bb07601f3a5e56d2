// Package credentials stores API keys for hosted model providers in
// credentials.toml inside the .recall/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to the environment variable their SDK reads.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Manager reads and writes credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager creates a Manager rooted at override, or at the resolved
// .recall/ directory when override is empty.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given provider.
func (m *Manager) SetKey(provider, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderCredential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored credential for a provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of providers with stored credentials, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	return providers, nil
}

// ResolveKey picks the API key for provider. An explicitly configured key
// wins, then the provider's environment variable, then the stored key.
// Providers that take no key resolve to configured unchanged.
func (m *Manager) ResolveKey(provider, configured string) (string, error) {
	if configured != "" || !IsSupportedProvider(provider) {
		return configured, nil
	}

	if v := os.Getenv(EnvVarForProvider(provider)); v != "" {
		return v, nil
	}

	return m.GetKey(provider)
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable name for a provider,
// or "" for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the providers that require API keys.
func SupportedProviders() []string {
	return []string{"openai", "anthropic"}
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
