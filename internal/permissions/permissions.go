// Package permissions gates Bluetooth discovery and connection behind the
// OS permission model. The platform descriptor is resolved once at startup so
// the grant logic itself stays branch-free over a small enum.
package permissions

import (
	"context"

	"github.com/rs/zerolog"
)

// Model is the runtime permission model of the platform.
type Model int

const (
	// ModelNone has no runtime prompts; requests always succeed.
	ModelNone Model = iota
	// ModelLegacy gates Bluetooth behind a single coarse-location grant.
	ModelLegacy
	// ModelGranular requires discrete scan, connect and fine-location grants.
	ModelGranular
)

func (m Model) String() string {
	switch m {
	case ModelLegacy:
		return "legacy"
	case ModelGranular:
		return "granular"
	default:
		return "none"
	}
}

// ParseModel maps a config override to a Model; unknown values mean "no
// override".
func ParseModel(s string) (Model, bool) {
	switch s {
	case "none":
		return ModelNone, true
	case "legacy":
		return ModelLegacy, true
	case "granular":
		return ModelGranular, true
	default:
		return 0, false
	}
}

// Permission names one OS grant.
type Permission string

const (
	PermissionCoarseLocation Permission = "coarse-location"
	PermissionFineLocation   Permission = "fine-location"
	PermissionScan           Permission = "bluetooth-scan"
	PermissionConnect        Permission = "bluetooth-connect"
)

// Prompter surfaces a native permission prompt and reports the grant result.
// Implementations must not panic; an error is treated as denial.
type Prompter interface {
	Prompt(ctx context.Context, p Permission) (bool, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Permission) (bool, error)

func (f PrompterFunc) Prompt(ctx context.Context, p Permission) (bool, error) {
	return f(ctx, p)
}

// Platform is the capability descriptor injected at startup.
type Platform struct {
	Model    Model
	Prompter Prompter
}

// Resolve builds the descriptor for this process. Desktop and server runtimes
// have no prompt service, so the default model is ModelNone; a config
// override selects the prompting models for embedded targets that supply
// their own Prompter.
func Resolve(override string, prompter Prompter) Platform {
	model := ModelNone
	if m, ok := ParseModel(override); ok {
		model = m
	}
	if prompter == nil {
		prompter = PrompterFunc(func(context.Context, Permission) (bool, error) {
			// No prompt surface; only ModelNone can succeed.
			return false, nil
		})
	}
	return Platform{Model: model, Prompter: prompter}
}

// Gatekeeper answers permission requests for the configured platform.
type Gatekeeper struct {
	platform  Platform
	available func() bool
	log       zerolog.Logger
}

// NewGatekeeper builds a gatekeeper. available is the transport capability
// probe: when it reports false no prompt is ever issued.
func NewGatekeeper(platform Platform, available func() bool, log zerolog.Logger) *Gatekeeper {
	return &Gatekeeper{
		platform:  platform,
		available: available,
		log:       log.With().Str("component", "permissions").Logger(),
	}
}

// Request obtains the grants required for discovery and connection. It never
// returns an error: every failure mode reads as a denial.
func (g *Gatekeeper) Request(ctx context.Context) bool {
	if !g.available() {
		g.log.Info().Msg("no transport available, skipping permission prompt")
		return false
	}

	switch g.platform.Model {
	case ModelNone:
		return true
	case ModelLegacy:
		return g.prompt(ctx, PermissionCoarseLocation)
	case ModelGranular:
		return g.prompt(ctx, PermissionScan) &&
			g.prompt(ctx, PermissionConnect) &&
			g.prompt(ctx, PermissionFineLocation)
	default:
		return false
	}
}

func (g *Gatekeeper) prompt(ctx context.Context, p Permission) bool {
	granted, err := g.platform.Prompter.Prompt(ctx, p)
	if err != nil {
		g.log.Warn().Err(err).Str("permission", string(p)).Msg("permission prompt failed, treating as denied")
		return false
	}
	if !granted {
		g.log.Info().Str("permission", string(p)).Msg("permission denied")
	}
	return granted
}
