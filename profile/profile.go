// Package profile holds per application settings: where the executable lives,
// the name of its single instance mutex and how long a new copy needs before
// the mutex exists.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/safedep/unmutex/handles"
)

type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Executable  string   `yaml:"executable"`
	Arguments   []string `yaml:"arguments"`
	MutexName   string   `yaml:"mutex_name"`
	SettleDelay string   `yaml:"settle_delay"`
	TitleFormat string   `yaml:"title_format"`
	MatchPolicy string   `yaml:"match_policy"`
}

// Validate checks that the profile can be used to release a mutex.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}

	if p.MutexName == "" {
		return fmt.Errorf("profile %s: mutex_name is required", p.Name)
	}

	// Names reported by the object manager are always absolute.
	if !strings.HasPrefix(p.MutexName, `\`) {
		return fmt.Errorf("profile %s: mutex_name must be a full object path such as "+
			`\Sessions\1\BaseNamedObjects\Name, got %q`, p.Name, p.MutexName)
	}

	if _, err := p.Settle(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}

	if _, err := handles.ParseMatchPolicy(p.MatchPolicy); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}

	return nil
}

// Settle parses SettleDelay. An empty value is 0, meaning "use the default".
func (p *Profile) Settle() (time.Duration, error) {
	if p.SettleDelay == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(p.SettleDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid settle_delay %q: %w", p.SettleDelay, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("settle_delay must not be negative, got %s", d)
	}

	return d, nil
}

// Expand returns a copy of the profile with variables substituted in the
// executable path, arguments and mutex name.
func (p *Profile) Expand(vars Variables) *Profile {
	expanded := *p

	expanded.Executable = vars.Expand(p.Executable)
	expanded.MutexName = vars.Expand(p.MutexName)

	expanded.Arguments = make([]string, len(p.Arguments))
	for i, arg := range p.Arguments {
		expanded.Arguments[i] = vars.Expand(arg)
	}

	return &expanded
}
