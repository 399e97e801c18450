package validate

import (
	"context"
	"log/slog"

	"stagehand/internal/logging"
	"stagehand/internal/pipeline"
	"stagehand/internal/scene"
)

// UserDataDefinition is the per-node storage key holding the path the
// node's type definition was loaded from.
const UserDataDefinition = "definition_path"

// SimpleFamily tags instances whose node type carries a simple validate
// hook.
const SimpleFamily = "simple"

// dataNode is the instance data key the collected node is stored under.
const dataNode = "node"

// Hook is the validation capability a node type can declare. Fix is
// optional; a hook without one degrades to an informational skip when an
// auto-fix is requested.
type Hook struct {
	Validate func(ctx context.Context, node *scene.Node) error
	Fix      func(ctx context.Context, node *scene.Node) error
}

// Validator assembles a node-validation pipeline for a set of scene nodes.
// Node types opt in by registering a simple hook, node-scoped plugins, or
// both; unhooked nodes still pass through the generic checks.
type Validator struct {
	scene        *scene.Scene
	paths        []string
	hooks        map[string]Hook
	plugins      map[string][]pipeline.Plugin
	releasedRoot string
	logger       *slog.Logger
}

// NewValidator builds a validator over the given node paths. releasedRoot
// is the location released node definitions live under; definitions found
// elsewhere are reported by the published check.
func NewValidator(sc *scene.Scene, paths []string, releasedRoot string, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{
		scene:        sc,
		paths:        paths,
		hooks:        make(map[string]Hook),
		plugins:      make(map[string][]pipeline.Plugin),
		releasedRoot: releasedRoot,
		logger:       logging.NewComponentLogger(logger, "validate"),
	}
}

// RegisterHook declares the simple validate hook for a node type.
func (v *Validator) RegisterHook(nodeType string, hook Hook) {
	v.hooks[nodeType] = hook
}

// RegisterPlugins declares node-scoped pipeline plugins for a node type.
// Instances of that type are tagged with the type name as a family, so
// plugins declaring it only see their own nodes.
func (v *Validator) RegisterPlugins(nodeType string, plugins ...pipeline.Plugin) {
	v.plugins[nodeType] = append(v.plugins[nodeType], plugins...)
}

func (v *Validator) hookFor(node *scene.Node) (Hook, bool) {
	if node == nil {
		return Hook{}, false
	}
	hook, ok := v.hooks[node.Type]
	return hook, ok
}

// CanValidate reports whether at least one of the validator's nodes has a
// validation capability registered for its type.
func (v *Validator) CanValidate() bool {
	for _, path := range v.paths {
		node := v.scene.NodeAt(path)
		if node == nil {
			continue
		}
		if len(v.plugins[node.Type]) > 0 {
			return true
		}
		if hook, ok := v.hookFor(node); ok && hook.Validate != nil {
			return true
		}
	}
	return false
}

// Run executes the node-validation pipeline and returns its report.
func (v *Validator) Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error) {
	registry := pipeline.NewRegistry()
	registry.Register(
		collectNodes{validator: v},
		nodeDetails{logger: v.logger},
		isPublished{validator: v},
		simpleValidator{validator: v},
	)

	// Node-scoped plugins, once per node type present in the selection.
	registered := make(map[string]bool)
	for _, path := range v.paths {
		node := v.scene.NodeAt(path)
		if node == nil || registered[node.Type] {
			continue
		}
		registered[node.Type] = true
		registry.Register(v.plugins[node.Type]...)
	}

	return pipeline.NewRunner(registry, v.logger).Execute(ctx, opts)
}

// NodeFrom returns the scene node a collected instance wraps, or nil.
func NodeFrom(inst *pipeline.Instance) *scene.Node {
	node, _ := inst.Data[dataNode].(*scene.Node)
	return node
}
