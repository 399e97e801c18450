package rig

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"stagehand/internal/logging"
	"stagehand/internal/menu"
	"stagehand/internal/scene"
	"stagehand/internal/services"
	"stagehand/internal/taskcontext"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

// Menu names. These double as the node parameter names the menus bind to.
const (
	MenuTemplate  = "template"
	MenuAssetType = "asset_type"
	MenuAsset     = "asset"
	MenuStep      = "step"
	MenuTask      = "task"
	MenuSequence  = "sequence"
	MenuShot      = "shot"
	MenuShotStep  = "shot_step"
	MenuShotTask  = "shot_task"
	MenuVersion   = "version"
)

// User-data keys a node uses to declare its rig configuration.
const (
	UserDataAssetTemplates = "asset_templates"
	UserDataShotTemplates  = "shot_templates"
	UserDataFileType       = "published_file_type"
)

// ParmLatest is the toggle that keeps the rig tracking the newest published
// version instead of a pinned one.
const ParmLatest = "latest"

// DefaultFileType is the published file type when a node declares none.
const DefaultFileType = "usd"

// The two menu chains. Updating one menu regenerates everything strictly
// after it in its chain; the chains are static, so the cascade always
// terminates.
var (
	assetChain = []string{MenuTemplate, MenuAssetType, MenuAsset, MenuStep, MenuTask, MenuVersion}
	shotChain  = []string{MenuTemplate, MenuSequence, MenuShot, MenuShotStep, MenuShotTask, MenuVersion}
)

// forcer is implemented by tracking decorators whose cache a forced refresh
// must bypass.
type forcer interface {
	SetForce(force bool)
}

// Rig attaches the cascading menu set to one scene node. It owns a menu per
// chain position, resolves the working context, and keeps the menus mutually
// consistent as selections change.
type Rig struct {
	node      *scene.Node
	scene     *scene.Scene
	svc       tracking.Service
	templates *template.Resolver
	resolver  *taskcontext.Resolver
	logger    *slog.Logger

	assetTemplates []string
	shotTemplates  []string
	fileType       string

	menus map[string]*menu.Menu

	// menusUpdated runs after every cascade; the publish rig hooks output
	// path maintenance here.
	menusUpdated func(ctx context.Context) error
}

// New builds a rig for the given node. The node must declare at least one
// template through its user data.
func New(sc *scene.Scene, node *scene.Node, svc tracking.Service, templates *template.Resolver, logger *slog.Logger) (*Rig, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "rig")

	r := &Rig{
		node:           node,
		scene:          sc,
		svc:            svc,
		templates:      templates,
		resolver:       taskcontext.NewResolver(sc, node, svc, templates, logger),
		logger:         logger,
		assetTemplates: splitList(node.GetUserData(UserDataAssetTemplates)),
		shotTemplates:  splitList(node.GetUserData(UserDataShotTemplates)),
		fileType:       node.GetUserData(UserDataFileType),
		menus:          make(map[string]*menu.Menu),
	}
	if r.fileType == "" {
		r.fileType = DefaultFileType
	}
	if len(r.assetTemplates) == 0 && len(r.shotTemplates) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "rig", "new",
			"node declares no templates: set asset_templates and/or shot_templates user data", nil)
	}

	for _, name := range []string{
		MenuTemplate, MenuAssetType, MenuAsset, MenuStep, MenuTask,
		MenuSequence, MenuShot, MenuShotStep, MenuShotTask,
	} {
		if node.HasParm(name) {
			r.menus[name] = menu.New(node, name, node.Editable, logger)
		}
	}
	if node.HasParm(MenuVersion) {
		r.menus[MenuVersion] = menu.New(node, MenuVersion, node.Editable, logger)
	}

	r.logger.Info("rig initialised", logging.String(logging.FieldNode, node.Path))
	return r, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Node returns the scene node the rig is attached to.
func (r *Rig) Node() *scene.Node { return r.node }

// Context returns the rig's context resolver.
func (r *Rig) Context() *taskcontext.Resolver { return r.resolver }

// FileType returns the published file type the rig works with.
func (r *Rig) FileType() string { return r.fileType }

// Menu returns the rig's menu for a parameter name, or nil.
func (r *Rig) Menu(name string) *menu.Menu { return r.menus[name] }

// hasAssetMenus reports whether the node carries any part of the asset
// chain. A partial chain still cascades; the missing positions are skipped.
func (r *Rig) hasAssetMenus() bool {
	for _, name := range assetChain[1 : len(assetChain)-1] {
		if r.menus[name] != nil {
			return true
		}
	}
	return false
}

func (r *Rig) hasShotMenus() bool {
	for _, name := range shotChain[1 : len(shotChain)-1] {
		if r.menus[name] != nil {
			return true
		}
	}
	return false
}

// contextParms are the menus whose effective selection can come from the
// resolved scene context.
var contextParms = map[string]bool{
	MenuAssetType: true,
	MenuAsset:     true,
	MenuStep:      true,
	MenuTask:      true,
	MenuSequence:  true,
	MenuShot:      true,
	MenuShotStep:  true,
	MenuShotTask:  true,
}

// menuOverridden reports whether a menu's value is user-controlled. Menus
// without an override toggle count as overridden so their stored value is
// honored.
func (r *Rig) menuOverridden(name string) bool {
	if !r.node.HasOverride(name) {
		return true
	}
	return r.node.ParmOverridden(name)
}

// MenuSelection returns the effective selection for a menu: the context
// value when the menu is not overridden (or the refresh is forced), the
// stored menu selection otherwise.
func (r *Rig) MenuSelection(ctx context.Context, name string) (string, error) {
	m := r.menus[name]
	if m == nil {
		return "", nil
	}
	if contextParms[name] {
		value, err := r.resolver.ParmValueFromContext(ctx, name)
		if err != nil {
			return "", err
		}
		if value != "" && !r.menuOverridden(name) {
			return value, nil
		}
	}
	return m.Selection(), nil
}

// SelectedTemplate returns the template menu's current selection.
func (r *Rig) SelectedTemplate() string {
	m := r.menus[MenuTemplate]
	if m == nil {
		return ""
	}
	return m.Selection()
}

// InAssetMode reports whether the selected template is an asset template.
func (r *Rig) InAssetMode() bool {
	return contains(r.assetTemplates, r.SelectedTemplate())
}

// InShotMode reports whether the selected template is a shot template.
func (r *Rig) InShotMode() bool {
	return contains(r.shotTemplates, r.SelectedTemplate())
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// SelectedTask returns the task selected in the active chain.
func (r *Rig) SelectedTask(ctx context.Context) (int, error) {
	var name string
	switch {
	case r.InAssetMode():
		name = MenuTask
	case r.InShotMode():
		name = MenuShotTask
	default:
		return 0, services.Wrap(services.ErrInvalidMode, "rig", "selected_task",
			"must be in either asset or shot mode", nil)
	}
	selection, err := r.MenuSelection(ctx, name)
	if err != nil || selection == "" {
		return 0, err
	}
	id, err := strconv.Atoi(selection)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// LatestVersion reports whether the rig should track the newest published
// version. Nodes without the latest toggle always track latest.
func (r *Rig) LatestVersion() bool {
	if !r.node.HasParm(ParmLatest) || !r.node.HasParm(MenuVersion) {
		return true
	}
	if r.node.EvalParm(ParmLatest) != "1" && r.node.EvalParm(MenuVersion) != "" {
		return false
	}
	return true
}

// ContextOverridden reports whether any menu's override toggle is set,
// meaning the operator has taken manual control of the context.
func (r *Rig) ContextOverridden() bool {
	for name := range r.menus {
		if r.node.HasOverride(name) && r.node.ParmOverridden(name) {
			return true
		}
	}
	return false
}

// ConfigureOverrides cascades the override toggle of the named menu to
// every menu after it in its chain(s), so a manually pinned menu pins its
// downstream dependents too. With an empty name the first menu's state is
// applied to all. Locked nodes are left alone.
func (r *Rig) ConfigureOverrides(name string) {
	if !r.node.Editable {
		return
	}

	var parms []string
	if name != "" {
		if contains(assetChain, name) {
			parms = append(parms, tailFrom(assetChain, name)...)
		}
		if contains(shotChain, name) {
			parms = append(parms, tailFrom(shotChain, name)...)
		}
		if len(parms) == 0 {
			r.logger.Warn("cannot configure overrides for unknown parameter",
				logging.String(logging.FieldParm, name))
			return
		}
	} else {
		parms = append(append([]string{}, assetChain...), shotChain...)
	}

	overridden := r.node.ParmOverridden(parms[0])
	for _, parm := range parms[1:] {
		if !r.node.HasOverride(parm) {
			r.logger.Warn("cannot configure override toggle",
				logging.String(logging.FieldParm, parm))
			continue
		}
		r.node.SetParmOverridden(parm, overridden)
	}
}

func tailFrom(chain []string, name string) []string {
	for i, item := range chain {
		if item == name {
			return chain[i:]
		}
	}
	return nil
}

// ContextMessage describes where the current context came from.
func (r *Rig) ContextMessage(ctx context.Context) (string, error) {
	return r.resolver.Message(ctx)
}

// InvalidContext reports whether no context source resolves; publish
// actions are blocked behind this guard.
func (r *Rig) InvalidContext(ctx context.Context) (bool, error) {
	valid, err := r.resolver.Valid(ctx)
	if err != nil {
		return true, err
	}
	return !valid, nil
}
