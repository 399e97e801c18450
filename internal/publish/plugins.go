package publish

import (
	"context"
	"errors"

	"stagehand/internal/logging"
	"stagehand/internal/pipeline"
	"stagehand/internal/usdref"
)

// collectPublishNode makes the rig's node available as the pipeline's
// single instance.
type collectPublishNode struct {
	publisher *Publisher
}

func (collectPublishNode) Label() string  { return "USD Publish - Collect" }
func (collectPublishNode) Order() float64 { return pipeline.CollectorOrder }

func (c collectPublishNode) ProcessContext(_ context.Context, run *pipeline.Run) error {
	run.CreateInstance(c.publisher.rig.Node().Path, Family)
	return nil
}

// validateContext rejects publishes driven by a manual task override. The
// publish context must come from the scene itself. A node whose mode
// disagrees with the scene file's own template draws a warning.
type validateContext struct {
	publisher *Publisher
}

func (validateContext) Label() string      { return "Validate Context" }
func (validateContext) Order() float64     { return pipeline.ValidatorOrder }
func (validateContext) Families() []string { return []string{Family} }

func (v validateContext) ProcessInstance(_ context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	r := v.publisher.rig
	if r.Context().CustomTaskID() != 0 || r.ContextOverridden() {
		return errors.New("custom task selected on node")
	}
	switch {
	case r.InAssetMode() && r.SceneInShotMode():
		v.publisher.logger.Warn("asset publish from a shot scene file")
	case r.InShotMode() && r.SceneInAssetMode():
		v.publisher.logger.Warn("shot publish from an asset scene file")
	}
	return nil
}

// validateReferences reports the stage references that would leave the
// publish pointing at unpublished or session-local data. Advisory only.
type validateReferences struct {
	publisher *Publisher
}

func (validateReferences) Label() string      { return "Validate References" }
func (validateReferences) Order() float64     { return pipeline.ValidatorOrder }
func (validateReferences) Families() []string { return []string{Family} }

func (v validateReferences) ProcessInstance(_ context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	p := v.publisher
	refs := usdref.Classify(p.rig.Node().SortedReferences())
	for _, ref := range refs.Implicit {
		p.logger.Info("unpublished implicit reference", logging.String("reference", ref))
	}
	for _, ref := range refs.File {
		p.logger.Info("unpublished file reference", logging.String("reference", ref))
	}
	for _, ref := range refs.Turret {
		p.logger.Info("turret reference", logging.String("reference", ref))
	}
	return nil
}

// runPublish writes and registers the node's USD output.
type runPublish struct {
	publisher *Publisher
}

func (runPublish) Label() string      { return "USD Publish" }
func (runPublish) Order() float64     { return pipeline.ExtractorOrder }
func (runPublish) Families() []string { return []string{Family} }

func (r runPublish) ProcessInstance(ctx context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	result, err := r.publisher.rig.USDPublish(ctx)
	if err != nil {
		return err
	}
	r.publisher.record(result)
	return nil
}

// assetUSD maintains the aggregate asset USD after an asset-mode publish.
type assetUSD struct {
	publisher *Publisher
}

func (assetUSD) Label() string      { return "Asset USD Publish" }
func (assetUSD) Order() float64     { return pipeline.ExtractorOrder + 0.1 }
func (assetUSD) Families() []string { return []string{Family} }

func (a assetUSD) ProcessInstance(ctx context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	result, err := a.publisher.rig.AutoGenerateAssetUSD(ctx)
	if err != nil {
		return err
	}
	a.publisher.record(result)
	return nil
}

// shotUSD maintains the aggregate shot USD after a shot-mode publish.
type shotUSD struct {
	publisher *Publisher
}

func (shotUSD) Label() string      { return "Shot USD Publish" }
func (shotUSD) Order() float64     { return pipeline.ExtractorOrder + 0.1 }
func (shotUSD) Families() []string { return []string{Family} }

func (s shotUSD) ProcessInstance(ctx context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	result, err := s.publisher.rig.AutoGenerateShotUSD(ctx)
	if err != nil {
		return err
	}
	s.publisher.record(result)
	return nil
}

// departmentMainUSD confirms the published task feeds its department main
// task, so the publish actually lands in the shot.
type departmentMainUSD struct {
	publisher *Publisher
}

func (departmentMainUSD) Label() string      { return "Department Main USD" }
func (departmentMainUSD) Order() float64     { return pipeline.ExtractorOrder + 0.1 }
func (departmentMainUSD) Families() []string { return []string{Family} }

func (d departmentMainUSD) ProcessInstance(ctx context.Context, _ *pipeline.Run, _ *pipeline.Instance) error {
	return d.publisher.rig.DepartmentMainUSD(ctx)
}
