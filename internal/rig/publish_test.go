package rig

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/scene"
	"stagehand/internal/services"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

func newTestPublishRig(t *testing.T, node *scene.Node, svc tracking.Service) *PublishRig {
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

	// Pin the context so publishing is allowed.
	node.SetParm("custom_taskid", "41")
	node.SetParm(scene.OverrideName("custom_taskid"), "1")

	sc := scene.New("/tmp/scratch.hip", node)
	p, err := NewPublish(sc, node, svc, templates, nil)
	if err != nil {
		t.Fatalf("new publish rig: %v", err)
	}
	return p
}

func TestUpdateOutputPathResolvesVersionAndPath(t *testing.T) {
	node := publishNode()
	p := newTestPublishRig(t, node, testService())
	ctx := context.Background()

	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	if p.OutputVersion() != 1 {
		t.Fatalf("output version: got %d want 1", p.OutputVersion())
	}
	if !strings.HasSuffix(p.OutputPath(), "/model/publish/usd/modeling/v001/hero.usd") {
		t.Fatalf("unexpected output path: %s", p.OutputPath())
	}
	if node.EvalParm(ParmOutput) != p.OutputPath() {
		t.Fatal("output path not written to node")
	}
	if node.EvalParm(ParmOutputVersion) != "1" {
		t.Fatalf("output version parm: %q", node.EvalParm(ParmOutputVersion))
	}
	if node.EvalParm(ParmSaveStyle) != SaveStyleFlattenAll {
		t.Fatalf("save style: %q", node.EvalParm(ParmSaveStyle))
	}
}

func TestMissingTemplateIsSticky(t *testing.T) {
	node := publishNode()
	node.UserData[UserDataAssetTemplates] = "not_declared"
	p := newTestPublishRig(t, node, testService())
	ctx := context.Background()

	// First evaluation surfaces the failure.
	err := p.UpdateAll(ctx, false)
	if !errors.Is(err, services.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if !p.MissingTemplate() {
		t.Fatal("missing template should be sticky")
	}

	// Subsequent evaluations short-circuit quietly.
	if err := p.UpdateOutputPath(ctx); err != nil {
		t.Fatalf("sticky state should swallow repeat evaluation: %v", err)
	}

	p.ClearMissingTemplate()
	if p.MissingTemplate() {
		t.Fatal("clear should reset the sticky state")
	}
}

func TestUSDPublishWritesAndRegisters(t *testing.T) {
	node := publishNode()
	node.References = []string{"/jobs/demo/published/b.usd", "/jobs/demo/published/a.usd"}
	svc := testService()
	p := newTestPublishRig(t, node, svc)
	ctx := context.Background()

	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	result, err := p.USDPublish(ctx)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.TaskID != 41 || result.Version != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ID == 0 {
		t.Fatal("expected a tracking publish id")
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "#usda 1.0") {
		t.Fatalf("unexpected file header: %q", content)
	}
	if !strings.Contains(content, "@/jobs/demo/published/a.usd@") {
		t.Fatalf("references missing from stage: %s", content)
	}

	// The rig moved on to the next free version.
	if p.OutputVersion() != 2 {
		t.Fatalf("expected next version 2, got %d", p.OutputVersion())
	}
}

func TestUSDPublishBlockedOnInvalidContext(t *testing.T) {
	node := publishNode()
	p := newTestPublishRig(t, node, testService())
	ctx := context.Background()
	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	// Break the pinned context.
	node.SetParm("custom_taskid", "999")

	_, err := p.USDPublish(ctx)
	if !errors.Is(err, services.ErrInvalidContext) {
		t.Fatalf("expected ErrInvalidContext, got %v", err)
	}
}

func TestPublishCommentDefault(t *testing.T) {
	node := publishNode()
	p := newTestPublishRig(t, node, testService())
	ctx := context.Background()
	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	comment := p.PublishComment()
	if comment != "hero.usd version 1." {
		t.Fatalf("default comment: %q", comment)
	}

	node.SetParm(ParmComment, "reworked silhouette")
	if got := p.PublishComment(); got != "reworked silhouette" {
		t.Fatalf("explicit comment: %q", got)
	}
}

func TestAutoGenerateAssetUSDRequiresAssetMode(t *testing.T) {
	node := publishNode()
	svc := testService()
	p := newTestPublishRig(t, node, svc)
	ctx := context.Background()
	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	result, err := p.AutoGenerateAssetUSD(ctx)
	if err != nil {
		t.Fatalf("asset usd: %v", err)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("asset usd not written: %v", err)
	}

	// Flip to shot mode: asset generation refuses, shot generation runs.
	node.SetParm("template", "usd_shot_publish")
	node.SetParm("custom_taskid", "42")
	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}
	if _, err := p.AutoGenerateAssetUSD(ctx); !errors.Is(err, services.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	shotResult, err := p.AutoGenerateShotUSD(ctx)
	if err != nil {
		t.Fatalf("shot usd: %v", err)
	}
	if !strings.Contains(shotResult.Path, "/sh010/") {
		t.Fatalf("unexpected shot usd path: %s", shotResult.Path)
	}
}

func TestDepartmentMainUSD(t *testing.T) {
	node := publishNode()
	node.SetParm("template", "usd_shot_publish")
	svc := testService()
	p := newTestPublishRig(t, node, svc)
	node.SetParm("custom_taskid", "42")
	ctx := context.Background()
	if err := p.UpdateAll(ctx, false); err != nil {
		t.Fatalf("update all: %v", err)
	}

	// No anim_main task declared for the shot yet.
	err := p.DepartmentMainUSD(ctx)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "anim_main") {
		t.Fatalf("error should name the main task: %v", err)
	}
}

func TestSceneModeFollowsSceneTemplate(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	for name, raw := range cfg.Templates.Patterns {
		cfg.Templates.Patterns[name] = root + strings.TrimPrefix(raw, "/jobs")
	}
	svc := testService()
	templates, err := template.NewResolver(&cfg, svc, nil)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	node := publishNode()
	assetScene := root + "/demo/assets/character/hero/model/work/houdini/modeling/hero_v003.hip"
	sc := scene.New(assetScene, node)
	p, err := NewPublish(sc, node, svc, templates, nil)
	if err != nil {
		t.Fatalf("new publish rig: %v", err)
	}

	if !p.SceneInAssetMode() {
		t.Fatal("scene under an asset work template should be in asset mode")
	}
	if p.SceneInShotMode() {
		t.Fatal("asset scene must not report shot mode")
	}

	p.scene.FilePath = root + "/demo/shots/seq01/sh010/anim/work/houdini/blocking/sh010_v001.hip"
	if !p.SceneInShotMode() {
		t.Fatal("scene under a shot work template should be in shot mode")
	}
	if p.SceneInAssetMode() {
		t.Fatal("shot scene must not report asset mode")
	}

	p.scene.FilePath = "/tmp/scratch.hip"
	if p.SceneInAssetMode() || p.SceneInShotMode() {
		t.Fatal("a scene outside the configured templates has no mode")
	}
}
