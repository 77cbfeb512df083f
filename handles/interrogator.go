package handles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/ntapi"
)

// MatchPolicy decides what to close when more than one handle matches.
type MatchPolicy string

const (
	MatchFirst      MatchPolicy = "first"
	MatchAll        MatchPolicy = "all"
	MatchExactlyOne MatchPolicy = "exactly-one"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MatchFirst, nil
	case MatchFirst, MatchAll, MatchExactlyOne:
		return p, nil
	}

	return "", fmt.Errorf("unknown match policy %q (expected first, all or exactly-one)", s)
}

// Release is the outcome of looking for, and possibly closing, a named object
// in one process. Every match is listed even when the policy closes only one.
type Release struct {
	Target   MutexTarget
	Scanned  int
	Matches  []ResolvedHandleInfo
	Closed   []ResolvedHandleInfo
	Failures []error
}

// Released reports whether at least one matching handle was closed and none
// failed.
func (r *Release) Released() bool {
	return len(r.Closed) > 0 && len(r.Failures) == 0
}

// Inspection is every handle of one process that could be resolved.
type Inspection struct {
	PID      uint32
	Total    int
	Resolved []ResolvedHandleInfo
}

type InterrogatorConfig struct {
	Enumerator EnumeratorConfig
	Resolver   ResolverConfig
	Policy     MatchPolicy
}

func DefaultInterrogatorConfig() InterrogatorConfig {
	return InterrogatorConfig{
		Enumerator: DefaultEnumeratorConfig(),
		Resolver:   DefaultResolverConfig(),
		Policy:     MatchFirst,
	}
}

// Interrogator runs enumerate, resolve, find and close against one process.
type Interrogator struct {
	enumerator *Enumerator
	resolver   *Resolver
	closer     *Closer
	policy     MatchPolicy
}

func NewInterrogator(sys ntapi.System, config InterrogatorConfig) *Interrogator {
	enumerator := NewEnumerator(sys, config.Enumerator)

	policy := config.Policy
	if policy == "" {
		policy = MatchFirst
	}

	return &Interrogator{
		enumerator: enumerator,
		resolver:   NewResolver(sys, config.Resolver, enumerator.config.Layout),
		closer:     NewCloser(sys),
		policy:     policy,
	}
}

func (i *Interrogator) Policy() MatchPolicy {
	return i.policy
}

// Inspect resolves every handle owned by pid.
func (i *Interrogator) Inspect(ctx context.Context, pid uint32) (*Inspection, error) {
	resolved, total, err := i.resolveOwned(ctx, pid)
	if err != nil {
		return nil, err
	}

	return &Inspection{PID: pid, Total: total, Resolved: resolved}, nil
}

// Locate finds the handles matching target. It returns ErrMutexNotFound, along
// with the partial result, when nothing matched.
func (i *Interrogator) Locate(ctx context.Context, target MutexTarget) (*Release, error) {
	resolved, total, err := i.resolveOwned(ctx, target.OwnerPID)
	if err != nil {
		return nil, err
	}

	release := &Release{
		Target:  target,
		Scanned: total,
		Matches: Find(resolved, target.OwnerPID, target.Name),
	}

	log.Debugf("Found %d handles named %s in pid %d (%d handles scanned)",
		len(release.Matches), target.Name, target.OwnerPID, total)

	if len(release.Matches) == 0 {
		return release, fmt.Errorf("%w: %s in pid %d", ErrMutexNotFound, target.Name, target.OwnerPID)
	}

	return release, nil
}

// Close closes the matches of release according to the match policy.
func (i *Interrogator) Close(ctx context.Context, release *Release) error {
	if len(release.Matches) == 0 {
		return fmt.Errorf("%w: %s in pid %d", ErrMutexNotFound, release.Target.Name, release.Target.OwnerPID)
	}

	var selected []ResolvedHandleInfo

	switch i.policy {
	case MatchAll:
		selected = release.Matches
	case MatchExactlyOne:
		if len(release.Matches) != 1 {
			return fmt.Errorf("%w: %d handles named %s in pid %d",
				ErrAmbiguousMatch, len(release.Matches), release.Target.Name, release.Target.OwnerPID)
		}

		selected = release.Matches
	default:
		selected = release.Matches[:1]
	}

	for _, match := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := i.closer.Close(match.Record); err != nil {
			release.Failures = append(release.Failures, err)
			continue
		}

		release.Closed = append(release.Closed, match)
	}

	return errors.Join(release.Failures...)
}

// Release is Locate followed by Close.
func (i *Interrogator) Release(ctx context.Context, target MutexTarget) (*Release, error) {
	release, err := i.Locate(ctx, target)
	if err != nil {
		return release, err
	}

	return release, i.Close(ctx, release)
}

func (i *Interrogator) resolveOwned(ctx context.Context, pid uint32) ([]ResolvedHandleInfo, int, error) {
	records, err := i.enumerator.EnumerateAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to enumerate handles: %w", err)
	}

	var resolved []ResolvedHandleInfo
	total := 0

	for _, record := range records {
		if record.OwnerPID != pid {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		total++
		if info := i.resolver.Resolve(record, pid); info != nil {
			resolved = append(resolved, *info)
		}
	}

	return resolved, total, nil
}
