package toolkit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"profiletk/internal/analyzer"
	"profiletk/internal/callgraph"
	"profiletk/internal/config"
	"profiletk/internal/memprof"
	"profiletk/internal/report"
	"profiletk/internal/sampler"
)

// CollisionPolicy decides what happens when a run identifier is recorded
// twice.
type CollisionPolicy string

const (
	// CollisionOverwrite replaces the stored report and appends another
	// timing row under the same identifier.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionReject fails the second recording with ErrDuplicateRun.
	CollisionReject CollisionPolicy = "reject"
	// CollisionVersion stores the second recording as "id#2", the third as
	// "id#3" and so on.
	CollisionVersion CollisionPolicy = "version"
)

// ParseCollisionPolicy converts a configuration value into a policy.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case CollisionOverwrite, "":
		return CollisionOverwrite, nil
	case CollisionReject:
		return CollisionReject, nil
	case CollisionVersion:
		return CollisionVersion, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", s)
	}
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	// Sampler captures one report per Record. Defaults to a Pprof sampler
	// that keeps only the target's samples.
	Sampler sampler.Sampler
	// Parser reads stored reports. Defaults to report.FormatV1.
	Parser report.Parser
	Logger zerolog.Logger

	Collisions CollisionPolicy
	Hotspots   analyzer.RankOptions

	MemoryInterval time.Duration
	MemoryHotspots int
	// MemProfileRate is applied while memory engines run; 0 keeps the
	// process setting.
	MemProfileRate int

	DotBinary string
	Graph     callgraph.Options
}

func (o Options) withDefaults() Options {
	if o.Sampler == nil {
		o.Sampler = sampler.NewPprof(sampler.PprofOptions{
			FilterRunLabel: true,
			Logger:         o.Logger,
		})
	}
	if o.Parser == nil {
		o.Parser = report.FormatV1
	}
	if o.Collisions == "" {
		o.Collisions = CollisionOverwrite
	}
	if o.Hotspots.Order == "" {
		o.Hotspots.Order = analyzer.OrderByTime
	}
	if o.MemoryInterval <= 0 {
		o.MemoryInterval = memprof.DefaultInterval
	}
	if o.MemoryHotspots <= 0 {
		o.MemoryHotspots = 10
	}
	if o.DotBinary == "" {
		o.DotBinary = "dot"
	}
	return o
}

// OptionsFromConfig builds session options from a loaded configuration.
// The sampler is a Pprof sampler configured from cfg.Sampler.
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) (Options, error) {
	order, err := analyzer.ParseOrder(cfg.Hotspots.Order)
	if err != nil {
		return Options{}, err
	}
	policy, err := ParseCollisionPolicy(cfg.Session.Collisions)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Sampler: sampler.NewPprof(sampler.PprofOptions{
			Program:        cfg.Sampler.Program,
			FilterRunLabel: cfg.Sampler.FilterRunLabel,
			Logger:         logger,
		}),
		Logger:     logger,
		Collisions: policy,
		Hotspots: analyzer.RankOptions{
			Order:            order,
			ExcludeAggregate: cfg.Hotspots.ExcludeAggregate,
		},
		MemoryInterval: cfg.Memory.Interval,
		MemoryHotspots: cfg.Memory.Hotspots,
		MemProfileRate: cfg.Memory.ProfileRate,
		DotBinary:      cfg.CallGraph.DotBinary,
		Graph:          callgraph.Options{NodeFraction: cfg.CallGraph.NodeFraction},
	}, nil
}
