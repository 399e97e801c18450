package validate

import (
	"context"
	"log/slog"
	"strings"

	"stagehand/internal/logging"
	"stagehand/internal/pipeline"
)

// collectNodes turns the validator's node selection into pipeline
// instances. Families: the node type when node-scoped plugins exist for
// it, simple when the type carries a validate hook, and always generic.
type collectNodes struct {
	validator *Validator
}

func (collectNodes) Label() string  { return "Node - Collect" }
func (collectNodes) Order() float64 { return pipeline.CollectorOrder }

func (c collectNodes) ProcessContext(_ context.Context, run *pipeline.Run) error {
	v := c.validator
	for _, path := range v.paths {
		node := v.scene.NodeAt(path)
		if node == nil {
			v.logger.Warn("skipping unknown node",
				logging.String(logging.FieldNode, path))
			continue
		}

		var families []string
		if len(v.plugins[node.Type]) > 0 {
			families = append(families, node.Type)
		}
		if hook, ok := v.hookFor(node); ok && hook.Validate != nil {
			families = append(families, SimpleFamily)
		}

		inst := run.CreateInstance(node.Path, families...)
		inst.Data[dataNode] = node
	}
	return nil
}

// nodeDetails logs each instance's node identity ahead of every other
// validator so the entries lead the report.
type nodeDetails struct {
	logger *slog.Logger
}

func (nodeDetails) Label() string      { return "Node - Details" }
func (nodeDetails) Order() float64     { return pipeline.ValidatorOrder - 0.1 }
func (nodeDetails) Families() []string { return []string{pipeline.GenericFamily} }

func (d nodeDetails) ProcessInstance(_ context.Context, _ *pipeline.Run, inst *pipeline.Instance) error {
	node := NodeFrom(inst)
	if node == nil {
		return nil
	}
	d.logger.Info("node details",
		logging.String(logging.FieldNode, node.Path),
		logging.String("type", node.Type))
	return nil
}

// isPublished reports node definitions loaded from outside the released
// location. Nodes without a recorded definition path are skipped.
type isPublished struct {
	validator *Validator
}

func (isPublished) Label() string      { return "Node - Published" }
func (isPublished) Order() float64     { return pipeline.ValidatorOrder }
func (isPublished) Families() []string { return []string{pipeline.GenericFamily} }

func (p isPublished) ProcessInstance(_ context.Context, _ *pipeline.Run, inst *pipeline.Instance) error {
	v := p.validator
	node := NodeFrom(inst)
	if node == nil {
		return nil
	}
	definition := node.GetUserData(UserDataDefinition)
	if definition == "" {
		v.logger.Info("skipping, no definition recorded",
			logging.String(logging.FieldNode, node.Path))
		return nil
	}
	if v.releasedRoot != "" && !strings.HasPrefix(definition, v.releasedRoot) {
		v.logger.Warn("using definition from non-standard location",
			logging.String(logging.FieldNode, node.Path),
			logging.String("definition", definition))
	}
	return nil
}

// simpleValidator runs the node type's validate hook, with the fix hook as
// the optional auto-fix capability.
type simpleValidator struct {
	validator *Validator
}

func (simpleValidator) Label() string      { return "Node - Simple Validator" }
func (simpleValidator) Order() float64     { return pipeline.ValidatorOrder + 0.1 }
func (simpleValidator) Families() []string { return []string{SimpleFamily} }

func (s simpleValidator) ProcessInstance(ctx context.Context, _ *pipeline.Run, inst *pipeline.Instance) error {
	v := s.validator
	node := NodeFrom(inst)
	hook, ok := v.hookFor(node)
	if !ok || hook.Validate == nil {
		v.logger.Info("skipping, no validate hook",
			logging.String(logging.FieldNode, node.Path))
		return nil
	}
	if err := hook.Validate(ctx, node); err != nil {
		return err
	}
	v.logger.Info("simple validation succeeded",
		logging.String(logging.FieldNode, node.Path))
	return nil
}

func (s simpleValidator) Fix(ctx context.Context, _ *pipeline.Run, inst *pipeline.Instance) error {
	v := s.validator
	node := NodeFrom(inst)
	hook, ok := v.hookFor(node)
	if !ok || hook.Fix == nil {
		v.logger.Info("skipping, no fix hook",
			logging.String(logging.FieldNode, node.Path))
		return nil
	}
	return hook.Fix(ctx, node)
}
