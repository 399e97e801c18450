package taskcontext

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"stagehand/internal/logging"
	"stagehand/internal/scene"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

// Parameter names involved in context resolution.
const (
	ParmCustomTaskID = "custom_taskid"
	ParmContext      = "context"
	ParmTask         = "task"
	ParmAsset        = "asset"
	ParmShot         = "shot"
)

// Context values declared on a scene globals node.
const (
	ContextAsset = "asset"
	ContextShot  = "shot"
)

// Resolver infers the working task from the scene. Three sources compete, in
// strict precedence order, first answer wins:
//
//  1. a manual override on the rig node (override toggle + custom task ID),
//  2. a scene globals node declaring context, entity, and task by name,
//  3. the scene file path matched against the configured scene templates.
//
// Each source that fails to produce a task falls through to the next; a
// globals node that exists but does not resolve no longer masks the file
// path source.
type Resolver struct {
	scene     *scene.Scene
	node      *scene.Node
	svc       tracking.Service
	templates *template.Resolver
	logger    *slog.Logger
}

// NewResolver builds a resolver for the rig node in the given scene.
func NewResolver(sc *scene.Scene, node *scene.Node, svc tracking.Service, templates *template.Resolver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		scene:     sc,
		node:      node,
		svc:       svc,
		templates: templates,
		logger:    logging.NewComponentLogger(logger, "taskcontext"),
	}
}

// TaskID resolves the current task, or 0 when no source yields one.
func (r *Resolver) TaskID(ctx context.Context) (int, error) {
	if id := r.taskIDFromCustom(); id != 0 {
		return id, nil
	}

	id, err := r.taskIDFromGlobals(ctx)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	return r.templates.TaskIDFromPath(ctx, r.scene.FilePath)
}

// CustomTaskID returns the manual task override on the node, or 0 when it
// is absent, disabled, or unparsable.
func (r *Resolver) CustomTaskID() int {
	return r.taskIDFromCustom()
}

// taskIDFromCustom reads the manual override pair on the rig node. A value
// that does not parse is swallowed so resolution can fall through.
func (r *Resolver) taskIDFromCustom() int {
	if r.node == nil || !r.node.ParmOverridden(ParmCustomTaskID) {
		return 0
	}
	raw := strings.TrimSpace(r.node.EvalParm(ParmCustomTaskID))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		r.logger.Debug("cannot parse custom task id",
			logging.String(logging.FieldParm, ParmCustomTaskID),
			logging.String("value", raw))
		return 0
	}
	return id
}

// taskIDFromGlobals resolves the declaration on the scene globals node.
func (r *Resolver) taskIDFromGlobals(ctx context.Context) (int, error) {
	globals := r.scene.GlobalsNode(r.logger)
	if globals == nil {
		return 0, nil
	}

	taskName := globals.EvalParm(ParmTask)
	if taskName == "" {
		return 0, nil
	}

	var assetID, shotID int
	var err error
	switch globals.EvalParm(ParmContext) {
	case ContextAsset:
		assetID, err = r.svc.AssetIDFromName(ctx, globals.EvalParm(ParmAsset))
	case ContextShot:
		shotID, err = r.svc.ShotIDFromName(ctx, globals.EvalParm(ParmShot))
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if assetID == 0 && shotID == 0 {
		return 0, nil
	}

	return r.svc.TaskIDFromName(ctx, taskName, assetID, shotID)
}

// Valid reports whether some source resolves to a real task.
func (r *Resolver) Valid(ctx context.Context) (bool, error) {
	id, err := r.TaskID(ctx)
	if err != nil || id == 0 {
		return false, err
	}
	return r.svc.ValidTaskID(ctx, id)
}

// IsAssetContext reports whether the resolved task belongs to an asset.
func (r *Resolver) IsAssetContext(ctx context.Context) (bool, error) {
	id, err := r.TaskID(ctx)
	if err != nil || id == 0 {
		return false, err
	}
	return r.svc.IsAssetTaskID(ctx, id)
}

// IsShotContext reports whether the resolved task belongs to a shot.
func (r *Resolver) IsShotContext(ctx context.Context) (bool, error) {
	id, err := r.TaskID(ctx)
	if err != nil || id == 0 {
		return false, err
	}
	return r.svc.IsShotTaskID(ctx, id)
}

// Task returns the resolved task ID in asset context, otherwise 0.
func (r *Resolver) Task(ctx context.Context) (int, error) {
	asset, err := r.IsAssetContext(ctx)
	if err != nil || !asset {
		return 0, err
	}
	return r.TaskID(ctx)
}

// Asset returns the asset ID the context task belongs to.
func (r *Resolver) Asset(ctx context.Context) (int, error) {
	taskID, err := r.Task(ctx)
	if err != nil || taskID == 0 {
		return 0, err
	}
	return r.svc.AssetIDFromTaskID(ctx, taskID)
}

// AssetType returns the asset type name for the context asset.
func (r *Resolver) AssetType(ctx context.Context) (string, error) {
	assetID, err := r.Asset(ctx)
	if err != nil || assetID == 0 {
		return "", err
	}
	name, err := r.svc.AssetNameFromID(ctx, assetID)
	if err != nil || name == "" {
		return "", err
	}
	return r.svc.AssetTypeFromName(ctx, name)
}

// Step returns the step ID for the context asset task.
func (r *Resolver) Step(ctx context.Context) (int, error) {
	taskID, err := r.Task(ctx)
	if err != nil || taskID == 0 {
		return 0, err
	}
	assetID, err := r.Asset(ctx)
	if err != nil || assetID == 0 {
		return 0, err
	}
	step, err := r.svc.StepFromTask(ctx, taskID)
	if err != nil || step == "" {
		return 0, err
	}
	return r.svc.StepIDFromName(ctx, step, assetID, 0)
}

// ShotTask returns the resolved task ID in shot context, otherwise 0.
func (r *Resolver) ShotTask(ctx context.Context) (int, error) {
	shot, err := r.IsShotContext(ctx)
	if err != nil || !shot {
		return 0, err
	}
	return r.TaskID(ctx)
}

// Shot returns the shot ID the context task belongs to.
func (r *Resolver) Shot(ctx context.Context) (int, error) {
	taskID, err := r.ShotTask(ctx)
	if err != nil || taskID == 0 {
		return 0, err
	}
	return r.svc.ShotIDFromTaskID(ctx, taskID)
}

// Sequence returns the sequence name for the context shot.
func (r *Resolver) Sequence(ctx context.Context) (string, error) {
	shotID, err := r.Shot(ctx)
	if err != nil || shotID == 0 {
		return "", err
	}
	return r.svc.SequenceNameFromShotID(ctx, shotID)
}

// ShotStep returns the step ID for the context shot task.
func (r *Resolver) ShotStep(ctx context.Context) (int, error) {
	taskID, err := r.ShotTask(ctx)
	if err != nil || taskID == 0 {
		return 0, err
	}
	shotID, err := r.Shot(ctx)
	if err != nil || shotID == 0 {
		return 0, err
	}
	step, err := r.svc.StepFromTask(ctx, taskID)
	if err != nil || step == "" {
		return 0, err
	}
	return r.svc.StepIDFromName(ctx, step, 0, shotID)
}

// ParmValueFromContext maps a rig parameter name to its context-derived
// value. Unknown names log a warning and resolve empty.
func (r *Resolver) ParmValueFromContext(ctx context.Context, name string) (string, error) {
	switch name {
	case "asset_type":
		return r.AssetType(ctx)
	case "asset":
		return r.intValue(r.Asset(ctx))
	case "step":
		return r.intValue(r.Step(ctx))
	case "task":
		return r.intValue(r.Task(ctx))
	case "sequence":
		return r.Sequence(ctx)
	case "shot":
		return r.intValue(r.Shot(ctx))
	case "shot_step":
		return r.intValue(r.ShotStep(ctx))
	case "shot_task":
		return r.intValue(r.ShotTask(ctx))
	default:
		r.logger.Warn("no context value for parameter",
			logging.String(logging.FieldParm, name))
		return "", nil
	}
}

func (r *Resolver) intValue(id int, err error) (string, error) {
	if err != nil || id == 0 {
		return "", err
	}
	return strconv.Itoa(id), nil
}

// Message describes the resolved context for the operator.
func (r *Resolver) Message(ctx context.Context) (string, error) {
	taskID, err := r.TaskID(ctx)
	if err != nil {
		return "", err
	}
	if taskID == 0 {
		return "Invalid context: set the scene globals, enter a custom task ID, or save the scene to a recognized location.", nil
	}

	name, err := r.svc.TaskNameFromID(ctx, taskID)
	if err != nil {
		return "", err
	}
	if asset, err := r.svc.IsAssetTaskID(ctx, taskID); err == nil && asset {
		return fmt.Sprintf("Asset context: task %s (%d)", name, taskID), nil
	}
	if shot, err := r.svc.IsShotTaskID(ctx, taskID); err == nil && shot {
		return fmt.Sprintf("Shot context: task %s (%d)", name, taskID), nil
	}
	return fmt.Sprintf("Unknown context for task %d", taskID), nil
}
