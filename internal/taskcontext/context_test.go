package taskcontext

import (
	"context"
	"strings"
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/scene"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

func testService() *tracking.Memory {
	return tracking.NewMemory(tracking.Project{
		Name:   "demo",
		Assets: []tracking.Asset{{ID: 11, Code: "hero", Type: "character"}},
		Shots:  []tracking.Shot{{ID: 21, Code: "sh010", Sequence: "seq01"}},
		Steps:  []tracking.Step{{ID: 31, Code: "model"}, {ID: 32, Code: "anim"}},
		Tasks: []tracking.Task{
			{ID: 41, Content: "modeling", AssetID: 11, StepID: 31},
			{ID: 42, Content: "blocking", ShotID: 21, StepID: 32},
		},
	})
}

func rigNode(parms map[string]string) *scene.Node {
	if parms == nil {
		parms = map[string]string{}
	}
	return &scene.Node{Path: "/stage/usd_publish1", Type: "usd_publish", Parms: parms}
}

func globalsNode(parms map[string]string) *scene.Node {
	return &scene.Node{Path: "/obj/global1", Type: scene.GlobalsType, Parms: parms}
}

func newResolver(t *testing.T, sc *scene.Scene, node *scene.Node) *Resolver {
	t.Helper()
	cfg := config.Default()
	svc := testService()
	templates, err := template.NewResolver(&cfg, svc, nil)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	return NewResolver(sc, node, svc, templates, nil)
}

func TestCustomOverrideWinsOverEverything(t *testing.T) {
	node := rigNode(map[string]string{
		"custom_taskid":          "42",
		"override_custom_taskid": "1",
	})
	sc := scene.New(
		"/jobs/demo/assets/character/hero/model/work/houdini/modeling/hero_v001.hip",
		node,
		globalsNode(map[string]string{"context": "asset", "asset": "hero", "task": "modeling"}),
	)

	id, err := newResolver(t, sc, node).TaskID(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 42 {
		t.Fatalf("override should win: got %d", id)
	}
}

func TestOverrideToggleOffIgnoresCustomValue(t *testing.T) {
	node := rigNode(map[string]string{
		"custom_taskid":          "42",
		"override_custom_taskid": "0",
	})
	sc := scene.New(
		"/jobs/demo/assets/character/hero/model/work/houdini/modeling/hero_v001.hip",
		node,
	)

	id, err := newResolver(t, sc, node).TaskID(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 41 {
		t.Fatalf("expected file path resolution, got %d", id)
	}
}

func TestUnparsableCustomValueFallsThrough(t *testing.T) {
	node := rigNode(map[string]string{
		"custom_taskid":          "not-a-number",
		"override_custom_taskid": "1",
	})
	sc := scene.New("/tmp/scratch.hip", node,
		globalsNode(map[string]string{"context": "shot", "shot": "sh010", "task": "blocking"}))

	id, err := newResolver(t, sc, node).TaskID(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected globals resolution, got %d", id)
	}
}

func TestGlobalsBeatFilePath(t *testing.T) {
	node := rigNode(nil)
	sc := scene.New(
		"/jobs/demo/assets/character/hero/model/work/houdini/modeling/hero_v001.hip",
		node,
		globalsNode(map[string]string{"context": "shot", "shot": "sh010", "task": "blocking"}),
	)

	id, err := newResolver(t, sc, node).TaskID(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 42 {
		t.Fatalf("globals should beat file path: got %d", id)
	}
}

func TestUnresolvedGlobalsFallThroughToFilePath(t *testing.T) {
	node := rigNode(nil)
	// Globals node present but points at an unknown asset.
	sc := scene.New(
		"/jobs/demo/assets/character/hero/model/work/houdini/modeling/hero_v001.hip",
		node,
		globalsNode(map[string]string{"context": "asset", "asset": "ghost", "task": "modeling"}),
	)

	id, err := newResolver(t, sc, node).TaskID(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 41 {
		t.Fatalf("expected fallthrough to file path, got %d", id)
	}
}

func TestNoSourceResolvesToInvalidContext(t *testing.T) {
	node := rigNode(nil)
	sc := scene.New("/tmp/scratch.hip", node)
	resolver := newResolver(t, sc, node)
	ctx := context.Background()

	id, err := resolver.TaskID(ctx)
	if err != nil || id != 0 {
		t.Fatalf("expected no task, got %d err %v", id, err)
	}
	valid, err := resolver.Valid(ctx)
	if err != nil || valid {
		t.Fatalf("context should be invalid")
	}
	msg, err := resolver.Message(ctx)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if !strings.Contains(msg, "Invalid context") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestDerivedFieldsAssetContext(t *testing.T) {
	node := rigNode(map[string]string{
		"custom_taskid":          "41",
		"override_custom_taskid": "1",
	})
	sc := scene.New("/tmp/scratch.hip", node)
	resolver := newResolver(t, sc, node)
	ctx := context.Background()

	if asset, err := resolver.IsAssetContext(ctx); err != nil || !asset {
		t.Fatalf("expected asset context, err %v", err)
	}
	if shot, err := resolver.IsShotContext(ctx); err != nil || shot {
		t.Fatalf("did not expect shot context")
	}

	assetType, err := resolver.AssetType(ctx)
	if err != nil || assetType != "character" {
		t.Fatalf("asset type: got %q err %v", assetType, err)
	}
	stepID, err := resolver.Step(ctx)
	if err != nil || stepID != 31 {
		t.Fatalf("step: got %d err %v", stepID, err)
	}
	// Shot-side fields are empty in asset context.
	if shotTask, err := resolver.ShotTask(ctx); err != nil || shotTask != 0 {
		t.Fatalf("shot task should be empty, got %d err %v", shotTask, err)
	}

	value, err := resolver.ParmValueFromContext(ctx, "asset")
	if err != nil || value != "11" {
		t.Fatalf("parm value: got %q err %v", value, err)
	}
	if value, err := resolver.ParmValueFromContext(ctx, "unknown"); err != nil || value != "" {
		t.Fatalf("unknown parm should be empty, got %q err %v", value, err)
	}
}

func TestDerivedFieldsShotContext(t *testing.T) {
	node := rigNode(map[string]string{
		"custom_taskid":          "42",
		"override_custom_taskid": "1",
	})
	sc := scene.New("/tmp/scratch.hip", node)
	resolver := newResolver(t, sc, node)
	ctx := context.Background()

	sequence, err := resolver.Sequence(ctx)
	if err != nil || sequence != "seq01" {
		t.Fatalf("sequence: got %q err %v", sequence, err)
	}
	shotStep, err := resolver.ShotStep(ctx)
	if err != nil || shotStep != 32 {
		t.Fatalf("shot step: got %d err %v", shotStep, err)
	}
	msg, err := resolver.Message(ctx)
	if err != nil || !strings.Contains(msg, "Shot context") {
		t.Fatalf("message: got %q err %v", msg, err)
	}
}
