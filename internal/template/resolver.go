package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"stagehand/internal/config"
	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/tracking"
)

// Well-known placeholder names shared by the configured patterns.
const (
	FieldProject   = "project"
	FieldAssetType = "asset_type"
	FieldAsset     = "asset"
	FieldStep      = "step"
	FieldTask      = "task"
	FieldVersion   = "version"
	FieldSequence  = "sequence"
	FieldShot      = "shot"
)

// Resolver maps between templates, tracking identifiers, and concrete
// filesystem paths.
type Resolver struct {
	templates      map[string]*Template
	sceneTemplates []string
	svc            tracking.Service
	logger         *slog.Logger
}

// NewResolver parses the configured patterns. Every scene template must name
// a declared pattern; config.Validate enforces that before we get here.
func NewResolver(cfg *config.Config, svc tracking.Service, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "template")

	templates := make(map[string]*Template, len(cfg.Templates.Patterns))
	for name, raw := range cfg.Templates.Patterns {
		tmpl, err := Parse(name, raw)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "template", "parse", "", err)
		}
		templates[name] = tmpl
	}

	return &Resolver{
		templates:      templates,
		sceneTemplates: append([]string{}, cfg.Templates.SceneTemplates...),
		svc:            svc,
		logger:         logger,
	}, nil
}

// Get returns a declared template by name.
func (r *Resolver) Get(name string) (*Template, error) {
	tmpl, ok := r.templates[strings.TrimSpace(name)]
	if !ok {
		return nil, services.Wrap(services.ErrTemplateNotFound, "template", "resolve", name, nil)
	}
	return tmpl, nil
}

// Names returns the declared template names, sorted.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate confirms every listed template is declared.
func (r *Resolver) Validate(names []string) error {
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// TemplateFromPath matches a path against the listed templates in order and
// returns the first that fits.
func (r *Resolver) TemplateFromPath(path string, names []string) (*Template, map[string]string, bool) {
	for _, name := range names {
		tmpl, ok := r.templates[name]
		if !ok {
			continue
		}
		if fields, matched := tmpl.Match(path); matched {
			return tmpl, fields, true
		}
	}
	return nil, nil, false
}

// SceneTemplateFromPath matches a path against the configured scene
// templates.
func (r *Resolver) SceneTemplateFromPath(path string) (*Template, map[string]string, bool) {
	return r.TemplateFromPath(path, r.sceneTemplates)
}

// TaskIDFromPath resolves a scene file path to a task ID by matching the
// configured scene templates and looking up the captured names. A path that
// matches nothing, or whose names do not resolve, yields 0 with no error.
func (r *Resolver) TaskIDFromPath(ctx context.Context, path string) (int, error) {
	tmpl, fields, ok := r.SceneTemplateFromPath(path)
	if !ok {
		return 0, nil
	}

	taskName := fields[FieldTask]
	if taskName == "" {
		return 0, nil
	}

	var assetID, shotID int
	var err error
	switch {
	case fields[FieldShot] != "":
		shotID, err = r.svc.ShotIDFromName(ctx, fields[FieldShot])
	case fields[FieldAsset] != "":
		assetID, err = r.svc.AssetIDFromName(ctx, fields[FieldAsset])
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if assetID == 0 && shotID == 0 {
		r.logger.Debug("scene path entity not found",
			logging.String(logging.FieldTemplate, tmpl.Name),
			logging.String("path", path))
		return 0, nil
	}

	return r.svc.TaskIDFromName(ctx, taskName, assetID, shotID)
}

// FieldsForTask derives the placeholder values a template needs from a task
// ID. Only the fields the template declares are resolved; the version field
// is left to the caller.
func (r *Resolver) FieldsForTask(ctx context.Context, tmpl *Template, taskID int) (map[string]string, error) {
	fields := make(map[string]string)
	for _, field := range tmpl.Fields() {
		if field == FieldVersion {
			continue
		}
		value, err := r.fieldValue(ctx, field, taskID)
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, services.Wrap(services.ErrInvalidContext, "template", "fields",
				fmt.Sprintf("cannot derive %q for task %d", field, taskID), nil)
		}
		fields[field] = value
	}
	return fields, nil
}

func (r *Resolver) fieldValue(ctx context.Context, field string, taskID int) (string, error) {
	switch field {
	case FieldProject:
		return r.svc.ProjectName(), nil
	case FieldTask:
		return r.svc.TaskNameFromID(ctx, taskID)
	case FieldStep:
		return r.svc.StepFromTask(ctx, taskID)
	case FieldAsset:
		assetID, err := r.svc.AssetIDFromTaskID(ctx, taskID)
		if err != nil || assetID == 0 {
			return "", err
		}
		return r.svc.AssetNameFromID(ctx, assetID)
	case FieldAssetType:
		assetID, err := r.svc.AssetIDFromTaskID(ctx, taskID)
		if err != nil || assetID == 0 {
			return "", err
		}
		name, err := r.svc.AssetNameFromID(ctx, assetID)
		if err != nil || name == "" {
			return "", err
		}
		return r.svc.AssetTypeFromName(ctx, name)
	case FieldShot:
		shotID, err := r.svc.ShotIDFromTaskID(ctx, taskID)
		if err != nil || shotID == 0 {
			return "", err
		}
		return r.svc.ShotNameFromID(ctx, shotID)
	case FieldSequence:
		shotID, err := r.svc.ShotIDFromTaskID(ctx, taskID)
		if err != nil || shotID == 0 {
			return "", err
		}
		return r.svc.SequenceNameFromShotID(ctx, shotID)
	default:
		return "", fmt.Errorf("unknown template field %q", field)
	}
}

// OutputPath renders a publish path for a task at a specific version.
func (r *Resolver) OutputPath(ctx context.Context, name string, taskID, version int) (string, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return "", err
	}
	fields, err := r.FieldsForTask(ctx, tmpl, taskID)
	if err != nil {
		return "", err
	}
	fields[FieldVersion] = FormatVersion(version)
	return tmpl.Apply(fields)
}

// NextVersion scans the template's version directory on disk and returns one
// past the highest existing version, or 1 when nothing has been published.
func (r *Resolver) NextVersion(ctx context.Context, name string, taskID int) (int, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	fields, err := r.FieldsForTask(ctx, tmpl, taskID)
	if err != nil {
		return 0, err
	}

	dir, match, err := tmpl.VersionDir(fields, FieldVersion)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("scan version directory: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		if v, ok := match(entry.Name()); ok && v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}
