package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"stagehand/internal/logging"
)

// Runner executes a registry's plugins against a fresh run: collectors,
// then validators, then extractors, ascending by order.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
}

// Options controls one execution.
type Options struct {
	// Fix attempts a validator's auto-fix after a failure and re-runs the
	// check. Validators without the capability are skipped with an
	// informational log.
	Fix bool
}

// NewRunner builds a runner over the given registry.
func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Execute runs every registered plugin in ascending order and returns the
// report. A validator failure blocks that instance's extraction without
// touching its siblings; a run-wide validator failure blocks every
// instance. Execute itself only errors on a broken plugin registration —
// plugin failures live in the report.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Report, error) {
	run := &Run{ID: uuid.NewString(), Data: make(map[string]any)}
	report := &Report{RunID: run.ID}

	r.logger.Info("pipeline run started", logging.String(logging.FieldRunID, run.ID))

	for _, plugin := range r.registry.sorted() {
		switch p := plugin.(type) {
		case ContextPlugin:
			r.runContextPlugin(ctx, run, p, report)
		case InstancePlugin:
			r.runInstancePlugin(ctx, run, p, opts, report)
		default:
			r.logger.Warn("plugin implements no process hook, skipping",
				logging.String(logging.FieldPlugin, plugin.Label()))
			report.add(Result{Plugin: plugin.Label(), Order: plugin.Order(),
				Skipped: true, Reason: "no process hook"})
		}
	}

	r.logger.Info("pipeline run finished",
		logging.String(logging.FieldRunID, run.ID),
		logging.Bool("failed", report.Failed()))
	return report, nil
}

func (r *Runner) runContextPlugin(ctx context.Context, run *Run, p ContextPlugin, report *Report) {
	err := p.ProcessContext(ctx, run)
	report.add(Result{Plugin: p.Label(), Order: p.Order(), Err: err})
	if err == nil {
		return
	}
	r.logger.Error("plugin failed",
		logging.String(logging.FieldPlugin, p.Label()),
		logging.Error(err))
	if isValidator(p.Order()) {
		run.failed = true
	}
}

func (r *Runner) runInstancePlugin(ctx context.Context, run *Run, p InstancePlugin, opts Options, report *Report) {
	for _, inst := range run.Instances() {
		if !familiesMatch(p.Families(), inst) {
			continue
		}

		if p.Order() >= ExtractorOrder && (inst.Failed() || run.Failed()) {
			r.logger.Info("skipping extraction for failed instance",
				logging.String(logging.FieldPlugin, p.Label()),
				logging.String("instance", inst.Name))
			report.add(Result{Plugin: p.Label(), Order: p.Order(), Instance: inst.Name,
				Skipped: true, Reason: "validation failed"})
			continue
		}

		err := p.ProcessInstance(ctx, run, inst)
		if err != nil && isValidator(p.Order()) && opts.Fix {
			err = r.tryFix(ctx, run, p, inst, err)
		}

		report.add(Result{Plugin: p.Label(), Order: p.Order(), Instance: inst.Name, Err: err})
		if err != nil {
			r.logger.Error("plugin failed",
				logging.String(logging.FieldPlugin, p.Label()),
				logging.String("instance", inst.Name),
				logging.Error(err))
			if isValidator(p.Order()) {
				inst.failed = true
			}
		}
	}
}

// tryFix runs a validator's auto-fix and re-checks. Without the capability
// the original failure stands.
func (r *Runner) tryFix(ctx context.Context, run *Run, p InstancePlugin, inst *Instance, original error) error {
	fixer, ok := p.(Fixer)
	if !ok {
		r.logger.Info("no fix implemented, skipping",
			logging.String(logging.FieldPlugin, p.Label()),
			logging.String("instance", inst.Name))
		return original
	}
	if err := fixer.Fix(ctx, run, inst); err != nil {
		r.logger.Error("fix failed",
			logging.String(logging.FieldPlugin, p.Label()),
			logging.Error(err))
		return original
	}
	return p.ProcessInstance(ctx, run, inst)
}

// isValidator places an order in the validate stage.
func isValidator(order float64) bool {
	return order >= ValidatorOrder-0.5 && order < ExtractorOrder-0.5
}

func familiesMatch(families []string, inst *Instance) bool {
	if len(families) == 0 {
		return true
	}
	for _, family := range families {
		if inst.HasFamily(family) {
			return true
		}
	}
	return false
}
