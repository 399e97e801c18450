package validate

import (
	"context"
	"errors"
	"testing"

	"stagehand/internal/pipeline"
	"stagehand/internal/scene"
)

func testScene() *scene.Scene {
	return scene.New("/jobs/demo/scene.hip",
		&scene.Node{Path: "/stage/publish1", Type: "usd_publish", Parms: map[string]string{"mode": "bad"}},
		&scene.Node{Path: "/stage/publish2", Type: "usd_publish", Parms: map[string]string{"mode": "good"}},
		&scene.Node{Path: "/stage/cam1", Type: "camera"},
	)
}

func modeHook() Hook {
	return Hook{
		Validate: func(_ context.Context, node *scene.Node) error {
			if node.EvalParm("mode") != "good" {
				return errors.New("mode is not good")
			}
			return nil
		},
		Fix: func(_ context.Context, node *scene.Node) error {
			node.SetParm("mode", "good")
			return nil
		},
	}
}

func TestCanValidate(t *testing.T) {
	sc := testScene()

	v := NewValidator(sc, []string{"/stage/cam1"}, "", nil)
	if v.CanValidate() {
		t.Fatal("no capability registered, CanValidate should be false")
	}

	v = NewValidator(sc, []string{"/stage/publish1", "/stage/cam1"}, "", nil)
	v.RegisterHook("usd_publish", modeHook())
	if !v.CanValidate() {
		t.Fatal("hooked node present, CanValidate should be true")
	}

	v = NewValidator(sc, []string{"/stage/cam1"}, "", nil)
	v.RegisterHook("usd_publish", modeHook())
	if v.CanValidate() {
		t.Fatal("hook registered for an absent type, CanValidate should be false")
	}
}

func TestRunCollectsFamilies(t *testing.T) {
	sc := testScene()
	v := NewValidator(sc, []string{"/stage/publish2", "/stage/cam1", "/stage/missing"}, "", nil)
	v.RegisterHook("usd_publish", modeHook())

	run := &pipeline.Run{Data: make(map[string]any)}
	err := collectNodes{validator: v}.ProcessContext(context.Background(), run)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	instances := run.Instances()
	if len(instances) != 2 {
		t.Fatalf("missing node should be skipped, got %d instances", len(instances))
	}
	hooked := instances[0]
	if !hooked.HasFamily(SimpleFamily) || !hooked.HasFamily(pipeline.GenericFamily) {
		t.Fatalf("hooked node families: %v", hooked.Families())
	}
	plain := instances[1]
	if plain.HasFamily(SimpleFamily) {
		t.Fatalf("unhooked node should not carry the simple family: %v", plain.Families())
	}
	if NodeFrom(hooked) == nil || NodeFrom(hooked).Path != "/stage/publish2" {
		t.Fatal("collected instance should wrap its scene node")
	}
}

func TestRunFailsBadNode(t *testing.T) {
	sc := testScene()
	v := NewValidator(sc, []string{"/stage/publish1", "/stage/publish2"}, "", nil)
	v.RegisterHook("usd_publish", Hook{Validate: modeHook().Validate})

	report, err := v.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("bad node should fail the run")
	}

	failures := report.Failures()
	if len(failures) != 1 || failures[0].Instance != "/stage/publish1" {
		t.Fatalf("failures: %+v", failures)
	}
}

func TestRunWithFixRepairsNode(t *testing.T) {
	sc := testScene()
	v := NewValidator(sc, []string{"/stage/publish1"}, "", nil)
	v.RegisterHook("usd_publish", modeHook())

	report, err := v.Run(context.Background(), pipeline.Options{Fix: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("fix should repair the node: %+v", report.Failures())
	}
	if got := sc.NodeAt("/stage/publish1").EvalParm("mode"); got != "good" {
		t.Fatalf("fix should have rewritten the parm, got %q", got)
	}
}

func TestRunWithoutFixHookKeepsFailure(t *testing.T) {
	sc := testScene()
	v := NewValidator(sc, []string{"/stage/publish1"}, "", nil)
	v.RegisterHook("usd_publish", Hook{Validate: modeHook().Validate})

	report, err := v.Run(context.Background(), pipeline.Options{Fix: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("without a fix hook the failure should stand")
	}
}

func TestNodeScopedPlugins(t *testing.T) {
	sc := testScene()
	v := NewValidator(sc, []string{"/stage/publish1", "/stage/cam1"}, "", nil)

	var seen []string
	v.RegisterPlugins("usd_publish", typedCheck{seen: &seen})

	report, err := v.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Failures())
	}
	if len(seen) != 1 || seen[0] != "/stage/publish1" {
		t.Fatalf("node-scoped plugin should only see its own type: %v", seen)
	}
}

type typedCheck struct {
	seen *[]string
}

func (typedCheck) Label() string      { return "USD Publish - Typed Check" }
func (typedCheck) Order() float64     { return pipeline.ValidatorOrder + 0.2 }
func (typedCheck) Families() []string { return []string{"usd_publish"} }

func (c typedCheck) ProcessInstance(_ context.Context, _ *pipeline.Run, inst *pipeline.Instance) error {
	*c.seen = append(*c.seen, inst.Name)
	return nil
}
