package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recorder struct {
	calls *[]string
}

func (r recorder) record(entry string) {
	*r.calls = append(*r.calls, entry)
}

type collector struct {
	recorder
	label    string
	order    float64
	families []string
}

func (c collector) Label() string  { return c.label }
func (c collector) Order() float64 { return c.order }

func (c collector) ProcessContext(_ context.Context, run *Run) error {
	c.record(c.label)
	run.CreateInstance("node1", c.families...)
	return nil
}

type validator struct {
	recorder
	label    string
	order    float64
	families []string
	fail     bool
	fixable  *bool
}

func (v validator) Label() string      { return v.label }
func (v validator) Order() float64     { return v.order }
func (v validator) Families() []string { return v.families }

func (v validator) ProcessInstance(_ context.Context, _ *Run, inst *Instance) error {
	v.record(v.label + "/" + inst.Name)
	if v.fail && (v.fixable == nil || !*v.fixable) {
		return errors.New("check failed")
	}
	return nil
}

type fixingValidator struct {
	validator
}

func (v fixingValidator) Fix(_ context.Context, _ *Run, inst *Instance) error {
	v.record("fix/" + inst.Name)
	*v.fixable = true
	return nil
}

type extractor struct {
	recorder
	label    string
	order    float64
	families []string
}

func (e extractor) Label() string      { return e.label }
func (e extractor) Order() float64     { return e.order }
func (e extractor) Families() []string { return e.families }

func (e extractor) ProcessInstance(_ context.Context, _ *Run, inst *Instance) error {
	e.record(e.label + "/" + inst.Name)
	return nil
}

func TestExecuteRunsAscendingStableOrder(t *testing.T) {
	var calls []string
	rec := recorder{calls: &calls}
	reg := NewRegistry()

	// Registered out of order; equal orders keep declaration order.
	reg.Register(
		validator{recorder: rec, label: "validate_b", order: ValidatorOrder},
		extractor{recorder: rec, label: "extract", order: ExtractorOrder + 0.1},
		validator{recorder: rec, label: "details", order: ValidatorOrder - 0.1},
		validator{recorder: rec, label: "validate_c", order: ValidatorOrder},
		collector{recorder: rec, label: "collect", order: CollectorOrder},
		validator{recorder: rec, label: "node_check", order: ValidatorOrder + 0.2},
	)

	report, err := NewRunner(reg, nil).Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Failures())
	}

	want := []string{
		"collect",
		"details/node1",
		"validate_b/node1",
		"validate_c/node1",
		"node_check/node1",
		"extract/node1",
	}
	if len(calls) != len(want) {
		t.Fatalf("calls: %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("order mismatch at %d: %v", i, calls)
		}
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestValidatorFailureBlocksOnlyThatInstance(t *testing.T) {
	var calls []string
	rec := recorder{calls: &calls}
	reg := NewRegistry()

	reg.Register(
		multiCollector{recorder: rec},
		validator{recorder: rec, label: "check", order: ValidatorOrder, families: []string{"bad"}, fail: true},
		extractor{recorder: rec, label: "extract", order: ExtractorOrder},
	)

	report, err := NewRunner(reg, nil).Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !report.Failed() {
		t.Fatal("expected a reported failure")
	}

	var extracted []string
	for _, call := range calls {
		if strings.HasPrefix(call, "extract/") {
			extracted = append(extracted, call)
		}
	}
	if len(extracted) != 1 || extracted[0] != "extract/good1" {
		t.Fatalf("only the passing sibling should extract: %v", extracted)
	}

	// The skip is visible in the report.
	var skipped bool
	for _, result := range report.Results {
		if result.Skipped && result.Instance == "bad1" {
			skipped = true
		}
	}
	if !skipped {
		t.Fatal("blocked extraction should be reported as skipped")
	}
}

type multiCollector struct {
	recorder
}

func (multiCollector) Label() string  { return "multi_collect" }
func (multiCollector) Order() float64 { return CollectorOrder }

func (c multiCollector) ProcessContext(_ context.Context, run *Run) error {
	run.CreateInstance("good1", "good")
	run.CreateInstance("bad1", "bad")
	return nil
}

func TestExtractRunsWithoutValidators(t *testing.T) {
	var calls []string
	rec := recorder{calls: &calls}
	reg := NewRegistry()

	reg.Register(
		collector{recorder: rec, label: "collect", order: CollectorOrder},
		extractor{recorder: rec, label: "extract", order: ExtractorOrder},
	)

	report, err := NewRunner(reg, nil).Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Failures())
	}
	if len(calls) != 2 || calls[1] != "extract/node1" {
		t.Fatalf("calls: %v", calls)
	}
}

func TestInstanceAlwaysCarriesGenericFamily(t *testing.T) {
	run := &Run{}
	inst := run.CreateInstance("node1", "usd_publish")
	if !inst.HasFamily(GenericFamily) {
		t.Fatal("generic family missing")
	}
	families := inst.Families()
	if len(families) != 2 || families[0] != GenericFamily {
		t.Fatalf("families: %v", families)
	}

	bare := run.CreateInstance("node2")
	if got := bare.Families(); len(got) != 1 || got[0] != GenericFamily {
		t.Fatalf("bare instance families: %v", got)
	}
}

func TestFixRerunsValidator(t *testing.T) {
	var calls []string
	rec := recorder{calls: &calls}
	fixed := false
	reg := NewRegistry()
	reg.Register(
		collector{recorder: rec, label: "collect", order: CollectorOrder},
		fixingValidator{validator{recorder: rec, label: "check", order: ValidatorOrder, fail: true, fixable: &fixed}},
		extractor{recorder: rec, label: "extract", order: ExtractorOrder},
	)

	report, err := NewRunner(reg, nil).Execute(context.Background(), Options{Fix: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if report.Failed() {
		t.Fatalf("fix should have recovered the run: %+v", report.Failures())
	}

	joined := strings.Join(calls, ",")
	if !strings.Contains(joined, "fix/node1") {
		t.Fatalf("fix not attempted: %v", calls)
	}
	if !strings.HasSuffix(joined, "extract/node1") {
		t.Fatalf("extraction should follow a successful fix: %v", calls)
	}
}

func TestFixWithoutCapabilityKeepsFailure(t *testing.T) {
	var calls []string
	rec := recorder{calls: &calls}
	reg := NewRegistry()
	reg.Register(
		collector{recorder: rec, label: "collect", order: CollectorOrder},
		validator{recorder: rec, label: "check", order: ValidatorOrder, fail: true},
		extractor{recorder: rec, label: "extract", order: ExtractorOrder},
	)

	report, err := NewRunner(reg, nil).Execute(context.Background(), Options{Fix: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !report.Failed() {
		t.Fatal("failure should stand without a fix capability")
	}
	for _, call := range calls {
		if strings.HasPrefix(call, "extract/") {
			t.Fatalf("extraction must not run: %v", calls)
		}
	}
}

func TestDeregisterAll(t *testing.T) {
	reg := NewRegistry()
	reg.Register(collector{recorder: recorder{calls: &[]string{}}, label: "collect", order: CollectorOrder})
	reg.DeregisterAll()
	if got := reg.Plugins(); len(got) != 0 {
		t.Fatalf("registry should be empty, got %d", len(got))
	}
}
