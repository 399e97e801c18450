package publish

import (
	"context"
	"log/slog"

	"stagehand/internal/logging"
	"stagehand/internal/pipeline"
	"stagehand/internal/rig"
	"stagehand/internal/services"
)

// Family tags the publish node instance moving through the pipeline.
const Family = "usd_publish"

// Publisher assembles the publish pipeline for one publish rig: collect
// the node, validate the context and stage references, then extract. The
// mode-specific aggregate extractors join based on the rig's selected
// template.
type Publisher struct {
	rig    *rig.PublishRig
	logger *slog.Logger

	results []*rig.PublishResult
}

// NewPublisher builds a publisher over the given rig.
func NewPublisher(p *rig.PublishRig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		rig:    p,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// Run assembles and executes the publish pipeline. The rig must be in
// asset or shot mode; anything else is a configuration problem, not a
// pipeline failure.
func (p *Publisher) Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error) {
	p.results = nil

	registry := pipeline.NewRegistry()
	registry.Register(
		collectPublishNode{publisher: p},
		validateContext{publisher: p},
		validateReferences{publisher: p},
		runPublish{publisher: p},
	)

	switch {
	case p.rig.InAssetMode():
		registry.Register(assetUSD{publisher: p})
	case p.rig.InShotMode():
		registry.Register(shotUSD{publisher: p}, departmentMainUSD{publisher: p})
	default:
		return nil, services.Wrap(services.ErrInvalidMode, "publish", "assemble",
			"node must be in asset or shot mode", nil)
	}

	return pipeline.NewRunner(registry, p.logger).Execute(ctx, opts)
}

// Results returns the publishes registered by the last run, in the order
// they happened.
func (p *Publisher) Results() []*rig.PublishResult {
	out := make([]*rig.PublishResult, len(p.results))
	copy(out, p.results)
	return out
}

func (p *Publisher) record(result *rig.PublishResult) {
	p.results = append(p.results, result)
}
