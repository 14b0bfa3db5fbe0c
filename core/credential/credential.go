// Package credential resolves API keys by provider id through an ordered
// chain of lookups. The first lookup that returns a non-empty key wins.
//
// The default chain is explicit overrides, then local dev files (.env.local,
// .env), then an OS secret store supplied by the caller. Whether dev files
// should be consulted at all is the caller's decision: build the chain
// without [DotEnv] to disable them.
package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/woodman33/llmbridge/providers/observability"
)

// Lookup resolves the key for one provider.
type Lookup interface {
	Get(ctx context.Context, providerID string) (string, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, providerID string) (string, bool)

func (f LookupFunc) Get(ctx context.Context, providerID string) (string, bool) {
	return f(ctx, providerID)
}

// Has reports whether lookup resolves a key for providerID.
func Has(ctx context.Context, lookup Lookup, providerID string) bool {
	_, ok := lookup.Get(ctx, providerID)
	return ok
}

// KeyName returns the variable name holding providerID's key,
// e.g. "openai" → "OPENAI_API_KEY".
func KeyName(providerID string) string {
	return envPrefix(providerID) + "_API_KEY"
}

// BaseURLName returns the variable name overriding providerID's base URL,
// e.g. "openai" → "OPENAI_API_BASE_URL".
func BaseURLName(providerID string) string {
	return envPrefix(providerID) + "_API_BASE_URL"
}

func envPrefix(providerID string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(providerID))
}

// Chain evaluates lookups in order.
type Chain []Lookup

func (c Chain) Get(ctx context.Context, providerID string) (string, bool) {
	for _, lookup := range c {
		if lookup == nil {
			continue
		}
		if key, ok := lookup.Get(ctx, providerID); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

// Static serves explicit per-provider keys.
type Static map[string]string

func (s Static) Get(_ context.Context, providerID string) (string, bool) {
	key, ok := s[providerID]
	return key, ok && key != ""
}

// Environment reads <ID>_API_KEY from the process environment.
type Environment struct{}

func (Environment) Get(_ context.Context, providerID string) (string, bool) {
	key := strings.TrimSpace(os.Getenv(KeyName(providerID)))
	return key, key != ""
}

// DefaultDotEnvDepth bounds how many parent directories DotEnv searches.
const DefaultDotEnvDepth = 5

// DotEnv reads <ID>_API_KEY from dev files. Starting at Dir it checks
// .env.local then .env in each directory walking up at most MaxDepth parents,
// then the well-known files under Home: .config/llmbridge/.env and
// .llmbridge.env. Files are parsed by godotenv on every lookup.
type DotEnv struct {
	// Dir is the starting directory. Empty means the working directory.
	Dir string

	// MaxDepth bounds the upward walk. Zero means DefaultDotEnvDepth.
	MaxDepth int

	// Home overrides the user's home directory.
	Home string
}

func (d DotEnv) Get(ctx context.Context, providerID string) (string, bool) {
	name := KeyName(providerID)
	for _, path := range d.Candidates() {
		values, err := godotenv.Read(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				if observer := observability.ObserverFromContext(ctx); observer != nil {
					observer.Debug(ctx, "skipping unreadable env file",
						observability.String("path", path), observability.Error(err))
				}
			}
			continue
		}
		if key := strings.TrimSpace(values[name]); key != "" {
			return key, true
		}
	}
	return "", false
}

// Candidates lists the files DotEnv consults, in order.
func (d DotEnv) Candidates() []string {
	dir := d.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	depth := d.MaxDepth
	if depth <= 0 {
		depth = DefaultDotEnvDepth
	}

	var paths []string
	if dir != "" {
		dir = filepath.Clean(dir)
		for range depth + 1 {
			paths = append(paths, filepath.Join(dir, ".env.local"), filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	home := d.Home
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = userHome
		}
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".config", "llmbridge", ".env"),
			filepath.Join(home, ".llmbridge.env"),
		)
	}
	return paths
}

// ErrSecretNotFound is returned by a SecretBackend with no entry.
var ErrSecretNotFound = errors.New("secret not found")

// SecretBackend is an OS credential store (keychain, secret service, ...).
// Storing secrets is out of scope; only reads are needed.
type SecretBackend interface {
	Secret(ctx context.Context, service, account string) (string, error)
}

// DefaultSecretService is the service name keys are filed under.
const DefaultSecretService = "llmbridge"

// SecretStore reads keys from a SecretBackend, using the provider id as account.
type SecretStore struct {
	Backend SecretBackend
	Service string
}

func (s SecretStore) Get(ctx context.Context, providerID string) (string, bool) {
	if s.Backend == nil {
		return "", false
	}
	service := s.Service
	if service == "" {
		service = DefaultSecretService
	}
	key, err := s.Backend.Secret(ctx, service, providerID)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			if observer := observability.ObserverFromContext(ctx); observer != nil {
				observer.Warn(ctx, "secret store lookup failed",
					observability.String(observability.AttrProvider, providerID), observability.Error(err))
			}
		}
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

// DefaultChain returns explicit overrides → dev files → backend. backend may be nil.
func DefaultChain(overrides map[string]string, backend SecretBackend) Chain {
	return Chain{
		Static(overrides),
		DotEnv{},
		SecretStore{Backend: backend},
	}
}
