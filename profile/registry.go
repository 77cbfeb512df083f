package profile

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yml
var profilesFS embed.FS

// Registry resolves profiles by name. Built-in profiles are embedded in the
// binary; any other name is treated as the path of a YAML file.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	builtin  map[string]bool
}

func NewRegistry() (*Registry, error) {
	registry := &Registry{
		profiles: make(map[string]*Profile),
		builtin:  make(map[string]bool),
	}

	if err := registry.loadBuiltinProfiles(); err != nil {
		return nil, err
	}

	return registry, nil
}

func (r *Registry) loadBuiltinProfiles() error {
	entries, err := profilesFS.ReadDir("profiles")
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := profilesFS.ReadFile(path.Join("profiles", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read profile %s: %w", entry.Name(), err)
		}

		profile, err := parseProfile(data)
		if err != nil {
			return fmt.Errorf("failed to parse profile %s: %w", entry.Name(), err)
		}

		if err := profile.Validate(); err != nil {
			return fmt.Errorf("invalid profile %s: %w", entry.Name(), err)
		}

		r.profiles[profile.Name] = profile
		r.builtin[profile.Name] = true
	}

	return nil
}

// GetProfile returns a built-in or previously loaded profile, or loads name
// as a YAML file.
func (r *Registry) GetProfile(name string) (*Profile, error) {
	r.mu.RLock()
	profile, exists := r.profiles[name]
	r.mu.RUnlock()

	if exists {
		return profile, nil
	}

	if fileExists(name) {
		return r.LoadCustomProfile(name)
	}

	return nil, fmt.Errorf("profile not found: %s (not a built-in profile and file does not exist)", name)
}

// LoadCustomProfile loads and caches a profile from a YAML file.
func (r *Registry) LoadCustomProfile(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom profile %s: %w", file, err)
	}

	profile, err := parseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse custom profile %s: %w", file, err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid custom profile %s: %w", file, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.builtin[profile.Name] {
		return nil, fmt.Errorf("custom profile %s: name %q is reserved by a built-in profile", file, profile.Name)
	}

	r.profiles[profile.Name] = profile
	return profile, nil
}

// ListProfiles returns the names of the built-in profiles, sorted.
func (r *Registry) ListProfiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builtin))
	for name := range r.builtin {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func parseProfile(data []byte) (*Profile, error) {
	var profile Profile

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &profile, nil
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
