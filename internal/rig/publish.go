package rig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"stagehand/internal/logging"
	"stagehand/internal/scene"
	"stagehand/internal/services"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

// Parameters specific to publish nodes.
const (
	ParmSaveStyle     = "savestyle"
	ParmComment       = "comment"
	ParmOutput        = "lopoutput"
	ParmOutputRoot    = "output_root"
	ParmOutputVersion = "output_version"
)

// Save styles per mode. An asset publish flattens everything; a shot publish
// keeps explicit layering.
const (
	SaveStyleFlattenAll      = "flattenalllayers"
	SaveStyleFlattenImplicit = "flattenimplicitlayers"
)

// PublishRig extends the rig with output path maintenance and the publish
// action itself.
type PublishRig struct {
	*Rig

	outputVersion int
	outputRoot    string
	outputPath    string

	// missingTemplate is sticky: once the selected template fails to
	// resolve, output path evaluation short-circuits until cleared.
	missingTemplate bool

	// saveStyleFor is the template the save style was last set for.
	saveStyleFor string
}

// PublishResult describes a completed publish.
type PublishResult struct {
	ID      int
	TaskID  int
	Version int
	Path    string
	Comment string
}

// NewPublish builds a publish rig. Output paths refresh after every menu
// cascade.
func NewPublish(sc *scene.Scene, node *scene.Node, svc tracking.Service, templates *template.Resolver, logger *slog.Logger) (*PublishRig, error) {
	base, err := New(sc, node, svc, templates, logger)
	if err != nil {
		return nil, err
	}
	p := &PublishRig{Rig: base}
	base.menusUpdated = p.UpdateOutputPath
	return p, nil
}

// OutputVersion returns the version the next publish will produce.
func (p *PublishRig) OutputVersion() int { return p.outputVersion }

// OutputRoot returns the directory the next publish will write into.
func (p *PublishRig) OutputRoot() string { return p.outputRoot }

// OutputPath returns the file the next publish will write.
func (p *PublishRig) OutputPath() string { return p.outputPath }

// MissingTemplate reports whether output evaluation is short-circuited on an
// unresolvable template.
func (p *PublishRig) MissingTemplate() bool { return p.missingTemplate }

// ClearMissingTemplate re-enables output path evaluation after the template
// configuration has been fixed.
func (p *PublishRig) ClearMissingTemplate() { p.missingTemplate = false }

// UpdateOutputPath refreshes the output version, path, and root from the
// selected template and task. A template that fails to resolve is reported
// once and then skipped until cleared.
func (p *PublishRig) UpdateOutputPath(ctx context.Context) error {
	if p.missingTemplate {
		p.logger.Debug("skipping output evaluation for missing template")
		return nil
	}

	name := p.SelectedTemplate()
	if _, err := p.templates.Get(name); err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			p.logger.Error("selected template is not configured",
				logging.String(logging.FieldTemplate, name),
				logging.Error(err))
			p.missingTemplate = true
		}
		return err
	}

	if err := p.updateSaveStyle(name); err != nil {
		return err
	}

	taskID, err := p.SelectedTask(ctx)
	if err != nil {
		return err
	}
	if taskID == 0 {
		p.logger.Warn("no task selected")
		return nil
	}

	version, err := p.templates.NextVersion(ctx, name, taskID)
	if err != nil {
		return err
	}
	path, err := p.templates.OutputPath(ctx, name, taskID, version)
	if err != nil {
		return err
	}

	p.outputVersion = version
	p.outputPath = path
	p.outputRoot = filepath.Dir(path)

	p.node.SetParm(ParmOutput, p.outputPath)
	p.node.SetParm(ParmOutputRoot, p.outputRoot)
	p.node.SetParm(ParmOutputVersion, strconv.Itoa(p.outputVersion))
	return nil
}

// updateSaveStyle sets the save style whenever the selected template
// changes. Assets flatten all layers, shots keep implicit layers.
func (p *PublishRig) updateSaveStyle(selected string) error {
	if selected == p.saveStyleFor || !p.node.HasParm(ParmSaveStyle) {
		return nil
	}
	switch {
	case p.InAssetMode():
		p.node.SetParm(ParmSaveStyle, SaveStyleFlattenAll)
	case p.InShotMode():
		p.node.SetParm(ParmSaveStyle, SaveStyleFlattenImplicit)
	default:
		return services.Wrap(services.ErrInvalidMode, "rig", "save_style",
			"must be in either asset or shot mode", nil)
	}
	p.saveStyleFor = selected
	return nil
}

// SceneInAssetMode reports whether the scene file itself lives under one of
// the configured asset scene templates.
func (p *PublishRig) SceneInAssetMode() bool {
	_, fields, ok := p.templates.SceneTemplateFromPath(p.scene.FilePath)
	return ok && fields[template.FieldAsset] != ""
}

// SceneInShotMode reports whether the scene file itself lives under one of
// the configured shot scene templates.
func (p *PublishRig) SceneInShotMode() bool {
	_, fields, ok := p.templates.SceneTemplateFromPath(p.scene.FilePath)
	return ok && fields[template.FieldShot] != ""
}

// PublishComment returns the operator's comment, or a default naming the
// file and version.
func (p *PublishRig) PublishComment() string {
	if comment := p.node.EvalParm(ParmComment); comment != "" {
		return comment
	}
	return fmt.Sprintf("%s version %d.", filepath.Base(p.node.EvalParm(ParmOutput)), p.outputVersion)
}

// USDPublish writes the output file and registers the publish with the
// tracking service. The invalid-context guard blocks it outright.
func (p *PublishRig) USDPublish(ctx context.Context) (*PublishResult, error) {
	invalid, err := p.InvalidContext(ctx)
	if err != nil {
		return nil, err
	}
	if invalid {
		return nil, services.Wrap(services.ErrInvalidContext, "rig", "publish",
			"cannot publish without a resolved context", nil)
	}

	if err := p.UpdateOutputPath(ctx); err != nil {
		return nil, err
	}
	if p.outputPath == "" {
		return nil, services.Wrap(services.ErrValidation, "rig", "publish",
			"no output path resolved", nil)
	}

	taskID, err := p.SelectedTask(ctx)
	if err != nil {
		return nil, err
	}
	comment := p.PublishComment()

	if err := writeStage(p.outputPath, comment, p.node.SortedReferences()); err != nil {
		return nil, err
	}
	p.logger.Info("usd file written",
		logging.String("path", p.outputPath),
		logging.Int("version", p.outputVersion))

	id, err := p.svc.RegisterPublish(ctx, tracking.Publish{
		TaskID:      taskID,
		Version:     p.outputVersion,
		FileType:    p.fileType,
		Path:        p.outputPath,
		Description: comment,
	})
	if err != nil {
		return nil, err
	}

	result := &PublishResult{
		ID:      id,
		TaskID:  taskID,
		Version: p.outputVersion,
		Path:    p.outputPath,
		Comment: comment,
	}
	p.logger.Info("publish complete", logging.Int("publish_id", id))

	// Pick up the next free version.
	if err := p.UpdateOutputPath(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// AutoGenerateAssetUSD writes and registers the aggregate asset USD for the
// selected task's asset. Asset mode only.
func (p *PublishRig) AutoGenerateAssetUSD(ctx context.Context) (*PublishResult, error) {
	if !p.InAssetMode() {
		return nil, services.Wrap(services.ErrInvalidMode, "rig", "asset_usd",
			"can only be run in asset mode", nil)
	}
	return p.generateAggregateUSD(ctx, p.assetTemplates[0], func(taskID int) (string, error) {
		return p.svc.VariantNameFromTask(ctx, taskID)
	})
}

// AutoGenerateShotUSD writes and registers the aggregate shot USD for the
// selected task's shot. Shot mode only.
func (p *PublishRig) AutoGenerateShotUSD(ctx context.Context) (*PublishResult, error) {
	if !p.InShotMode() {
		return nil, services.Wrap(services.ErrInvalidMode, "rig", "shot_usd",
			"can only be run in shot mode", nil)
	}
	return p.generateAggregateUSD(ctx, p.shotTemplates[0], func(int) (string, error) {
		return "", nil
	})
}

func (p *PublishRig) generateAggregateUSD(ctx context.Context, templateName string, variant func(int) (string, error)) (*PublishResult, error) {
	taskID, err := p.SelectedTask(ctx)
	if err != nil {
		return nil, err
	}
	if taskID == 0 {
		return nil, services.Wrap(services.ErrValidation, "rig", "aggregate_usd",
			"no task selected", nil)
	}

	version, err := p.templates.NextVersion(ctx, templateName, taskID)
	if err != nil {
		return nil, err
	}
	path, err := p.templates.OutputPath(ctx, templateName, taskID, version)
	if err != nil {
		return nil, err
	}

	comment := fmt.Sprintf("%s version %d.", filepath.Base(path), version)
	if name, err := variant(taskID); err != nil {
		return nil, err
	} else if name != "" {
		comment = fmt.Sprintf("%s (variant %s)", comment, name)
	}

	if err := writeStage(path, comment, nil); err != nil {
		return nil, err
	}

	id, err := p.svc.RegisterPublish(ctx, tracking.Publish{
		TaskID:      taskID,
		Version:     version,
		FileType:    p.fileType,
		Path:        path,
		Description: comment,
	})
	if err != nil {
		return nil, err
	}
	return &PublishResult{ID: id, TaskID: taskID, Version: version, Path: path, Comment: comment}, nil
}

// DepartmentMainUSD confirms that publishes to the selected task feed the
// department main task for its shot.
func (p *PublishRig) DepartmentMainUSD(ctx context.Context) error {
	taskID, err := p.SelectedTask(ctx)
	if err != nil {
		return err
	}
	shotID, err := p.svc.ShotIDFromTaskID(ctx, taskID)
	if err != nil {
		return err
	}
	if shotID == 0 {
		return services.Wrap(services.ErrValidation, "rig", "department_main",
			"selected task has no shot", nil)
	}
	step, err := p.svc.StepFromTask(ctx, taskID)
	if err != nil {
		return err
	}

	mainTask := step + "_main"
	mainID, err := p.svc.TaskIDFromName(ctx, mainTask, 0, shotID)
	if err != nil {
		return err
	}
	if mainID == 0 {
		return services.Wrap(services.ErrValidation, "rig", "department_main",
			fmt.Sprintf("publishes to this task will not be included in %s until the shot declares it", mainTask), nil)
	}
	return nil
}

// writeStage writes a flattened stage file, declaring the publish comment
// and sublayering the node's external references.
func writeStage(path, comment string, layers []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o775); err != nil {
		return fmt.Errorf("create publish directories: %w", err)
	}

	var b []byte
	b = append(b, "#usda 1.0\n(\n"...)
	b = append(b, fmt.Sprintf("    doc = %q\n", comment)...)
	if len(layers) > 0 {
		b = append(b, "    subLayers = [\n"...)
		for _, layer := range layers {
			b = append(b, fmt.Sprintf("        @%s@,\n", layer)...)
		}
		b = append(b, "    ]\n"...)
	}
	b = append(b, ")\n"...)

	if err := os.WriteFile(path, b, 0o664); err != nil {
		return fmt.Errorf("write stage: %w", err)
	}
	return nil
}
