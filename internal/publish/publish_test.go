package publish

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/pipeline"
	"stagehand/internal/rig"
	"stagehand/internal/scene"
	"stagehand/internal/services"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

func testService() *tracking.Memory {
	return tracking.NewMemory(tracking.Project{
		Name: "demo",
		Assets: []tracking.Asset{
			{ID: 11, Code: "hero", Type: "character"},
		},
		Shots: []tracking.Shot{
			{ID: 21, Code: "sh010", Sequence: "seq01"},
		},
		Steps: []tracking.Step{
			{ID: 31, Code: "model"},
			{ID: 32, Code: "anim"},
		},
		Tasks: []tracking.Task{
			{ID: 41, Content: "modeling", AssetID: 11, StepID: 31},
			{ID: 42, Content: "blocking", ShotID: 21, StepID: 32},
			{ID: 44, Content: "anim_main", ShotID: 21, StepID: 32},
		},
	})
}

func publishNode() *scene.Node {
	parms := map[string]string{
		"latest":         "1",
		"savestyle":      "",
		"comment":        "",
		"lopoutput":      "",
		"output_root":    "",
		"output_version": "",
	}
	for _, name := range []string{
		"template", "asset_type", "asset", "step", "task", "version",
		"sequence", "shot", "shot_step", "shot_task", "custom_taskid",
	} {
		parms[name] = ""
		parms[scene.OverrideName(name)] = "0"
	}
	return &scene.Node{
		Path:     "/stage/usd_publish1",
		Type:     "usd_publish",
		Editable: true,
		Parms:    parms,
		UserData: map[string]string{
			rig.UserDataAssetTemplates: "usd_asset_publish",
			rig.UserDataShotTemplates:  "usd_shot_publish",
		},
	}
}

func assetGlobals() *scene.Node {
	return &scene.Node{
		Path: "/obj/globals",
		Type: scene.GlobalsType,
		Parms: map[string]string{
			"context": "asset",
			"asset":   "hero",
			"task":    "modeling",
		},
	}
}

func shotGlobals() *scene.Node {
	return &scene.Node{
		Path: "/obj/globals",
		Type: scene.GlobalsType,
		Parms: map[string]string{
			"context": "shot",
			"shot":    "sh010",
			"task":    "blocking",
		},
	}
}

func newTestPublisher(t *testing.T, node, globals *scene.Node, svc tracking.Service) (*Publisher, *rig.PublishRig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	for name, raw := range cfg.Templates.Patterns {
		cfg.Templates.Patterns[name] = root + strings.TrimPrefix(raw, "/jobs")
	}
	templates, err := template.NewResolver(&cfg, svc, nil)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	sc := scene.New("/tmp/scratch.hip", node, globals)
	p, err := rig.NewPublish(sc, node, svc, templates, nil)
	if err != nil {
		t.Fatalf("new publish rig: %v", err)
	}
	if err := p.UpdateAll(context.Background(), false); err != nil {
		t.Fatalf("update all: %v", err)
	}
	return NewPublisher(p, nil), p
}

func TestRunPublishesAssetMode(t *testing.T) {
	node := publishNode()
	node.References = []string{"op:/stage/geo1", "turret:tank://asset?hero", "/jobs/demo/element.usd"}
	pub, prig := newTestPublisher(t, node, assetGlobals(), testService())
	ctx := context.Background()

	if !prig.InAssetMode() {
		t.Fatal("default template selection should put the rig in asset mode")
	}

	report, err := pub.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failures: %+v", report.Failures())
	}

	results := pub.Results()
	if len(results) != 2 {
		t.Fatalf("expected main + aggregate publish, got %d", len(results))
	}
	if results[0].TaskID != 41 || results[0].Version != 1 {
		t.Fatalf("main publish: %+v", results[0])
	}
	if results[1].Version != 2 {
		t.Fatalf("aggregate publish should take the next version: %+v", results[1])
	}
	for _, result := range results {
		if _, err := os.Stat(result.Path); err != nil {
			t.Fatalf("published file missing: %v", err)
		}
	}
}

func TestRunBlockedByCustomTask(t *testing.T) {
	node := publishNode()
	pub, _ := newTestPublisher(t, node, assetGlobals(), testService())
	ctx := context.Background()

	node.SetParm("custom_taskid", "41")
	node.SetParm(scene.OverrideName("custom_taskid"), "1")

	report, err := pub.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("custom task should fail validation")
	}
	if len(pub.Results()) != 0 {
		t.Fatalf("nothing should be published: %+v", pub.Results())
	}

	var blocked bool
	for _, result := range report.Results {
		if result.Plugin == "USD Publish" && result.Skipped {
			blocked = true
		}
	}
	if !blocked {
		t.Fatal("extraction should be skipped after the context failure")
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	node := publishNode()
	pub, _ := newTestPublisher(t, node, assetGlobals(), testService())

	node.SetParm("template", "bogus")
	_, err := pub.Run(context.Background(), pipeline.Options{})
	if !errors.Is(err, services.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestRunPublishesShotMode(t *testing.T) {
	node := publishNode()
	pub, prig := newTestPublisher(t, node, shotGlobals(), testService())
	ctx := context.Background()

	node.SetParm("template", "usd_shot_publish")
	if err := prig.UpdateFrom(ctx, rig.MenuTemplate, false); err != nil {
		t.Fatalf("switch to shot template: %v", err)
	}
	if !prig.InShotMode() {
		t.Fatal("rig should be in shot mode")
	}

	report, err := pub.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failures: %+v", report.Failures())
	}

	results := pub.Results()
	if len(results) != 2 {
		t.Fatalf("expected main + shot aggregate publish, got %d", len(results))
	}
	if results[0].TaskID != 42 {
		t.Fatalf("main publish should target the shot task: %+v", results[0])
	}
	if !strings.HasSuffix(results[0].Path, "/sh010.usd") {
		t.Fatalf("unexpected shot publish path: %s", results[0].Path)
	}
}
