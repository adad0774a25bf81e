package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves one kind of secret reference.
//
// Implementations must be safe for concurrent use and must never log
// resolved values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves "secretref:env:NAME" from the environment.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("secret: environment variable %s is not set", ref)
	}
	return value, nil
}

// FileProvider resolves "secretref:file:/path" by reading the file,
// trimming a trailing newline. Fits mounted secret files.
type FileProvider struct{}

func (FileProvider) Name() string { return "file" }

func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Resolver resolves configuration values through env expansion and
// registered providers.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// ResolveValue expands environment references in value and, when the
// result is a secret reference, resolves it through its provider.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	provider, ref, ok := ParseRef(expanded)
	if !ok {
		return expanded, nil
	}

	p, registered := r.providers[provider]
	if !registered {
		return "", fmt.Errorf("secret: provider %q is not registered", provider)
	}
	resolved, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", fmt.Errorf("secret: provider %q resolved an empty value", provider)
	}
	return resolved, nil
}

// ParseRef splits a "secretref:<provider>:<ref>" value.
func ParseRef(value string) (provider, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
