package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/internal/session"
	"github.com/safedep/unmutex/internal/window"
	"github.com/safedep/unmutex/launcher"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/ntapi"
	"github.com/safedep/unmutex/orchestrator"
	"github.com/safedep/unmutex/profile"
)

// TitleSetter renames the main window of a process.
type TitleSetter interface {
	SetTitle(ctx context.Context, pid uint32, title string) error
}

// Dependencies are the pieces every flow is built from. Tests replace the
// system and the launcher with fakes.
type Dependencies struct {
	Config   *config.RuntimeConfig
	System   ntapi.System
	Registry *profile.Registry
	Store    *session.Store
	Titles   TitleSetter

	NewLauncher func(launcher.Config) (orchestrator.Launcher, error)
}

// DefaultDependencies wires the native system, the built-in profiles and
// the instances file of cfg.
func DefaultDependencies(cfg *config.RuntimeConfig) (*Dependencies, error) {
	registry, err := profile.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	return &Dependencies{
		Config:   cfg,
		System:   ntapi.Native(),
		Registry: registry,
		Store:    session.NewStore(cfg.SessionFilePath()),
		Titles:   window.NewLabeler(),
		NewLauncher: func(c launcher.Config) (orchestrator.Launcher, error) {
			return launcher.New(c)
		},
	}, nil
}

// InitEventLog opens the event log unless cfg disables it.
func InitEventLog(cfg *config.RuntimeConfig) {
	if cfg.Config.SkipEventLogging {
		return
	}

	err := eventlog.Initialize(eventlog.Config{
		Dir:           cfg.EventLogDir(),
		RetentionDays: cfg.Config.EventLogRetentionDays,
	})
	if err != nil {
		log.Warnf("Event logging disabled: %v", err)
	}
}

// Target is what a flow acts on: a profile with the config overrides applied
// and its variables expanded.
type Target struct {
	Profile     string
	Executable  string
	Arguments   []string
	MutexName   string
	SettleDelay time.Duration
	MatchPolicy handles.MatchPolicy
	TitleFormat string
	Variables   profile.Variables
}

// ResolveTarget merges the selected profile with the config. Non-zero config
// values win over the profile.
func (d *Dependencies) ResolveTarget() (*Target, error) {
	cfg := d.Config.Config

	p, err := d.Registry.GetProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}

	sessionID, err := d.System.SessionID()
	if err != nil {
		if errors.Is(err, ntapi.ErrUnsupportedPlatform) {
			return nil, err
		}

		log.Warnf("Could not read the session id, ${SESSION_ID} expands to 0: %v", err)
		sessionID = 0
	}

	vars, err := profile.DefaultVariables(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile variables: %w", err)
	}

	expanded := p.Expand(vars)

	target := &Target{
		Profile:     p.Name,
		Executable:  expanded.Executable,
		Arguments:   expanded.Arguments,
		MutexName:   expanded.MutexName,
		TitleFormat: p.TitleFormat,
		Variables:   vars,
	}

	if cfg.ExecutablePath != "" {
		target.Executable = vars.Expand(cfg.ExecutablePath)
	}

	if len(cfg.Arguments) > 0 {
		target.Arguments = make([]string, len(cfg.Arguments))
		for i, arg := range cfg.Arguments {
			target.Arguments[i] = vars.Expand(arg)
		}
	}

	if cfg.MutexName != "" {
		target.MutexName = vars.Expand(cfg.MutexName)
	}

	if cfg.TitleFormat != "" {
		target.TitleFormat = cfg.TitleFormat
	}

	target.SettleDelay, err = p.Settle()
	if err != nil {
		return nil, err
	}

	if cfg.SettleDelay > 0 {
		target.SettleDelay = cfg.SettleDelay
	}

	if target.SettleDelay == 0 {
		target.SettleDelay = orchestrator.DefaultConfig().SettleDelay
	}

	policy := p.MatchPolicy
	if cfg.MatchPolicy != "" {
		policy = cfg.MatchPolicy
	}

	target.MatchPolicy, err = handles.ParseMatchPolicy(policy)
	if err != nil {
		return nil, err
	}

	return target, nil
}

// newOrchestrator builds an orchestrator for target over the stored
// instances. Instances left suspended by an interrupted run are resumed first,
// held ones stay suspended.
// The launcher is only built when launch is set.
func (d *Dependencies) newOrchestrator(target *Target, controller *lifecycle.Controller,
	stored []orchestrator.Instance, launch bool, onEvent func(orchestrator.Event)) (*orchestrator.Orchestrator, error) {
	interrogatorConfig := d.Config.Config.InterrogatorConfig()
	interrogatorConfig.Policy = target.MatchPolicy

	var exe orchestrator.Launcher = unavailableLauncher{}
	if launch {
		l, err := d.NewLauncher(launcher.Config{Path: target.Executable, Args: target.Arguments})
		if err != nil {
			return nil, err
		}

		exe = l
	}

	orch, err := orchestrator.New(orchestrator.Config{
		MutexName:   target.MutexName,
		SettleDelay: target.SettleDelay,
		OnEvent:     onEvent,
	}, exe, controller, handles.NewInterrogator(d.System, interrogatorConfig))
	if err != nil {
		return nil, err
	}

	for _, instance := range stored {
		if instance.Suspended && !instance.Held {
			if _, err := controller.Resume(instance.PID); err != nil {
				log.Warnf("Failed to resume pid %d left suspended by an earlier run: %v", instance.PID, err)
			} else {
				eventlog.LogProcessAction(eventlog.EventTypeResume, instance.PID,
					"resumed instance left suspended by an earlier run", nil)
			}

			instance.Suspended = false
		}

		if err := orch.Track(instance); err != nil {
			return nil, err
		}
	}

	return orch, nil
}

// checkpoint writes the tracked instances to the store each time a batch
// launches, suspends or resumes one. The caller holds the store lock.
type checkpoint struct {
	store *session.Store
	orch  *orchestrator.Orchestrator
}

func (c *checkpoint) OnEvent(event orchestrator.Event) {
	if c.orch == nil {
		return
	}

	switch event.Type {
	case orchestrator.EventLaunched, orchestrator.EventSuspended,
		orchestrator.EventResumed, orchestrator.EventExited:
	default:
		return
	}

	if err := c.store.Save(c.orch.Instances()); err != nil {
		log.Warnf("Failed to record tracked instances after %s of pid %d: %v", event.Type, event.PID, err)
	}
}

// loadTracked reads the instances file and drops processes that exited.
// The caller holds the store lock.
func (d *Dependencies) loadTracked(controller *lifecycle.Controller) ([]orchestrator.Instance, error) {
	stored, err := d.Store.Load()
	if err != nil {
		return nil, err
	}

	kept, dropped := session.Prune(stored, controller.Exited)
	for _, instance := range dropped {
		log.Debugf("Instance %d (pid %d) has exited, no longer tracked", instance.Index, instance.PID)
	}

	return kept, nil
}

// unavailableLauncher stands in when a flow never launches anything.
type unavailableLauncher struct{}

func (unavailableLauncher) Launch(context.Context) (*launcher.Process, error) {
	return nil, fmt.Errorf("%w: no executable configured", launcher.ErrInvalidPath)
}
