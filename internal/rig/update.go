package rig

import (
	"context"
	"strconv"

	"stagehand/internal/logging"
	"stagehand/internal/menu"
	"stagehand/internal/tracking"
)

// UpdateAll refreshes every menu on the node, cascading through whichever
// chains the node carries. A forced update bypasses the lookup cache.
func (r *Rig) UpdateAll(ctx context.Context, force bool) error {
	defer r.unforce(force)()

	if err := r.updateTemplates(ctx); err != nil {
		return err
	}
	if r.hasAssetMenus() {
		if err := r.updateAssetTypes(ctx); err != nil {
			return err
		}
	}
	if r.hasShotMenus() {
		if err := r.updateSequences(ctx); err != nil {
			return err
		}
	}
	return r.notifyMenusUpdated(ctx)
}

// UpdateFrom regenerates the named menu and everything strictly after it in
// its chain, each downstream menu consuming its predecessor's fresh
// selection. The active chain is re-evaluated from the selected template on
// every cascade.
func (r *Rig) UpdateFrom(ctx context.Context, name string, force bool) error {
	defer r.unforce(force)()

	var err error
	switch name {
	case MenuTemplate:
		return r.UpdateAll(ctx, false)
	case MenuAssetType:
		err = r.updateAssetTypes(ctx)
	case MenuAsset:
		err = r.updateAssets(ctx)
	case MenuStep:
		err = r.updateSteps(ctx)
	case MenuTask:
		err = r.updateTasks(ctx)
	case MenuSequence:
		err = r.updateSequences(ctx)
	case MenuShot:
		err = r.updateShots(ctx)
	case MenuShotStep:
		err = r.updateShotSteps(ctx)
	case MenuShotTask:
		err = r.updateShotTasks(ctx)
	case MenuVersion:
		err = r.updateVersions(ctx, false)
	default:
		r.logger.Warn("no menu to update",
			logging.String(logging.FieldParm, name))
		return nil
	}
	if err != nil {
		return err
	}
	return r.notifyMenusUpdated(ctx)
}

// RefreshVersions repopulates the version menu even while the latest toggle
// is on, so turning the toggle off lands on a current list.
func (r *Rig) RefreshVersions(ctx context.Context) error {
	if err := r.updateVersions(ctx, true); err != nil {
		return err
	}
	return r.notifyMenusUpdated(ctx)
}

// unforce flips the lookup cache into bypass mode for the duration of a
// forced cascade.
func (r *Rig) unforce(force bool) func() {
	if !force {
		return func() {}
	}
	f, ok := r.svc.(forcer)
	if !ok {
		return func() {}
	}
	f.SetForce(true)
	return func() { f.SetForce(false) }
}

// missingMenu reports a chain position the node does not carry. The cascade
// logs and moves on rather than failing.
func (r *Rig) missingMenu(name string) bool {
	if r.menus[name] != nil {
		return false
	}
	r.logger.Warn("node has no menu parameter, skipping",
		logging.String(logging.FieldParm, name))
	return true
}

func (r *Rig) notifyMenusUpdated(ctx context.Context) error {
	if r.menusUpdated == nil {
		return nil
	}
	return r.menusUpdated(ctx)
}

// templateRecords presents the node's declared templates as menu source
// records.
func (r *Rig) templateRecords() []tracking.Record {
	var records []tracking.Record
	for _, name := range r.assetTemplates {
		records = append(records, tracking.Record{
			"template": name,
			"label":    "Asset (" + name + ")",
		})
	}
	for _, name := range r.shotTemplates {
		records = append(records, tracking.Record{
			"template": name,
			"label":    "Shot (" + name + ")",
		})
	}
	return records
}

func (r *Rig) updateTemplates(ctx context.Context) error {
	m := r.menus[MenuTemplate]
	if m == nil {
		return nil
	}
	m.Generate(r.templateRecords(), "template", "label", menu.Options{})
	return nil
}

func (r *Rig) updateAssetTypes(ctx context.Context) error {
	if r.missingMenu(MenuAssetType) {
		return r.updateAssets(ctx)
	}
	types, err := r.svc.AssetTypes(ctx)
	if err != nil {
		return err
	}
	r.menus[MenuAssetType].Generate(types, tracking.FieldName, tracking.FieldName,
		menu.Options{TitleLabels: true})
	return r.updateAssets(ctx)
}

func (r *Rig) updateAssets(ctx context.Context) error {
	if r.missingMenu(MenuAsset) {
		return r.updateSteps(ctx)
	}
	assetType, err := r.MenuSelection(ctx, MenuAssetType)
	if err != nil {
		return err
	}

	var assets []tracking.Record
	if assetType != "" {
		if assets, err = r.svc.Assets(ctx, assetType); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no asset type selected, skipping asset load")
	}

	r.menus[MenuAsset].Generate(assets, tracking.FieldID, tracking.FieldCode, menu.Options{})
	return r.updateSteps(ctx)
}

func (r *Rig) updateSteps(ctx context.Context) error {
	if r.missingMenu(MenuStep) {
		return r.updateTasks(ctx)
	}
	assetID, err := r.selectionInt(ctx, MenuAsset)
	if err != nil {
		return err
	}

	var steps []tracking.Record
	if assetID != 0 {
		if steps, err = r.svc.AssetSteps(ctx, assetID); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no asset selected, skipping step load")
	}

	r.menus[MenuStep].Generate(steps, tracking.FieldStepID, tracking.FieldStepCode,
		menu.Options{TitleLabels: true})
	return r.updateTasks(ctx)
}

func (r *Rig) updateTasks(ctx context.Context) error {
	if r.missingMenu(MenuTask) {
		return r.updateVersions(ctx, false)
	}
	assetID, err := r.selectionInt(ctx, MenuAsset)
	if err != nil {
		return err
	}
	stepID, err := r.selectionInt(ctx, MenuStep)
	if err != nil {
		return err
	}

	var tasks []tracking.Record
	if assetID != 0 && stepID != 0 {
		if tasks, err = r.svc.AssetTasks(ctx, assetID, stepID); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no asset/step selected, skipping task load")
	}

	r.menus[MenuTask].Generate(tasks, tracking.FieldID, tracking.FieldContent, menu.Options{})
	return r.updateVersions(ctx, false)
}

func (r *Rig) updateSequences(ctx context.Context) error {
	if r.missingMenu(MenuSequence) {
		return r.updateShots(ctx)
	}
	sequences, err := r.svc.Sequences(ctx)
	if err != nil {
		return err
	}
	r.menus[MenuSequence].Generate(sequences, tracking.FieldName, tracking.FieldName, menu.Options{})
	return r.updateShots(ctx)
}

func (r *Rig) updateShots(ctx context.Context) error {
	if r.missingMenu(MenuShot) {
		return r.updateShotSteps(ctx)
	}
	sequence, err := r.MenuSelection(ctx, MenuSequence)
	if err != nil {
		return err
	}

	var shots []tracking.Record
	if sequence != "" {
		if shots, err = r.svc.Shots(ctx, sequence); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no sequence selected, skipping shot load")
	}

	r.menus[MenuShot].Generate(shots, tracking.FieldID, tracking.FieldCode, menu.Options{})
	return r.updateShotSteps(ctx)
}

func (r *Rig) updateShotSteps(ctx context.Context) error {
	if r.missingMenu(MenuShotStep) {
		return r.updateShotTasks(ctx)
	}
	shotID, err := r.selectionInt(ctx, MenuShot)
	if err != nil {
		return err
	}

	var steps []tracking.Record
	if shotID != 0 {
		if steps, err = r.svc.ShotSteps(ctx, shotID); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no shot selected, skipping step load")
	}

	r.menus[MenuShotStep].Generate(steps, tracking.FieldStepID, tracking.FieldStepCode,
		menu.Options{TitleLabels: true})
	return r.updateShotTasks(ctx)
}

func (r *Rig) updateShotTasks(ctx context.Context) error {
	if r.missingMenu(MenuShotTask) {
		return r.updateVersions(ctx, false)
	}
	shotID, err := r.selectionInt(ctx, MenuShot)
	if err != nil {
		return err
	}
	stepID, err := r.selectionInt(ctx, MenuShotStep)
	if err != nil {
		return err
	}

	var tasks []tracking.Record
	if shotID != 0 && stepID != 0 {
		if tasks, err = r.svc.ShotTasks(ctx, shotID, stepID); err != nil {
			return err
		}
	} else {
		r.logger.Warn("no shot/step selected, skipping task load")
	}

	r.menus[MenuShotTask].Generate(tasks, tracking.FieldID, tracking.FieldContent, menu.Options{})
	return r.updateVersions(ctx, false)
}

// updateVersions refreshes the version menu for the active chain's selected
// task. Nothing happens while the latest toggle is on, unless forced.
func (r *Rig) updateVersions(ctx context.Context, force bool) error {
	m := r.menus[MenuVersion]
	if m == nil || !r.node.HasParm(ParmLatest) {
		return nil
	}
	if !force && r.node.EvalParm(ParmLatest) == "1" {
		return nil
	}

	taskID, err := r.SelectedTask(ctx)
	if err != nil {
		return err
	}

	var versions []tracking.Record
	if taskID != 0 {
		if versions, err = r.svc.Versions(ctx, taskID, r.fileType); err != nil {
			return err
		}
	}

	m.Generate(versions, tracking.FieldVersionNumber, tracking.FieldVersionNumber,
		menu.Options{Reverse: true})
	return nil
}

func (r *Rig) selectionInt(ctx context.Context, name string) (int, error) {
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
