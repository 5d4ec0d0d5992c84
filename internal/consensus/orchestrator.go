package consensus

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
)

// Analyzer is the external single-shot vision analysis call. It may fail;
// the orchestrator decides what a failure means depending on which run it is.
type Analyzer interface {
	Analyze(ctx context.Context, images []model.Image, askingPrice float64) (*model.AnalysisRecord, error)
}

// ProgressEvent is a fire-and-forget status update emitted during a
// consensus batch. Delivery is best-effort and never required for
// correctness.
type ProgressEvent struct {
	Type     string  `json:"type"`
	Stage    string  `json:"stage"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
}

// ProgressFunc receives progress events. It must not block.
type ProgressFunc func(ProgressEvent)

// Options controls a single consensus invocation.
type Options struct {
	// Config overrides the default consensus policy when non-nil.
	Config *config.ConsensusConfig
	// ForceMultiRun runs a consensus batch even when no trigger fires.
	ForceMultiRun bool
	// Parallel runs the additional analyses concurrently. The merge is
	// order-independent, so this only changes latency.
	Parallel bool
	// Progress receives status events when non-nil.
	Progress ProgressFunc
}

// Orchestrator is the top-level consensus control loop: analyze once, decide
// whether one opinion is enough, gather more opinions if not, and reconcile
// them into a single record.
type Orchestrator struct {
	analyzer Analyzer
	synth    *Synthesizer
}

// NewOrchestrator creates an Orchestrator. synth may be nil, in which case
// reasoning adjudication is skipped and every batch resolves through the
// deterministic merger.
func NewOrchestrator(analyzer Analyzer, synth *Synthesizer) *Orchestrator {
	return &Orchestrator{analyzer: analyzer, synth: synth}
}

// Run executes the consensus loop for one item.
func (o *Orchestrator) Run(ctx context.Context, images []model.Image, askingPrice float64, opts Options) (model.ConsensusOutcome, error) {
	cfg := config.DefaultConsensusConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if cfg.MaxRuns < 1 {
		return model.ConsensusOutcome{}, eris.Errorf("consensus: max_runs must be >= 1, got %d", cfg.MaxRuns)
	}
	if len(images) == 0 {
		return model.ConsensusOutcome{}, eris.New("consensus: at least one image is required")
	}

	emit := func(stage, message string, progress float64) {
		if opts.Progress != nil {
			opts.Progress(ProgressEvent{Type: "progress", Stage: stage, Message: message, Progress: progress})
		}
	}

	emit("initial_analysis", "Analyzing your item...", 0.1)

	first, err := o.analyzer.Analyze(ctx, images, askingPrice)
	if err != nil {
		return model.ConsensusOutcome{}, eris.Wrap(err, "consensus: initial analysis")
	}

	eval := EvaluateTriggers(*first, cfg)
	if opts.ForceMultiRun && eval.SuggestedRuns < 2 {
		eval.SuggestedRuns = 2
		eval.ShouldRerun = true
		eval.Reasons = append(eval.Reasons, "multi-run consensus forced by caller")
	}

	if !eval.ShouldRerun {
		emit("complete", "Analysis complete.", 1)
		return MergeResults([]model.AnalysisRecord{*first}), nil
	}

	zap.L().Info("consensus: running additional analyses",
		zap.Int("suggested_runs", eval.SuggestedRuns),
		zap.Bool("use_reasoning", eval.UseReasoning),
		zap.Strings("reasons", eval.Reasons),
	)
	emit("consensus_runs",
		fmt.Sprintf("Running %d additional analyses to verify...", eval.SuggestedRuns-1), 0.3)

	runs := append([]model.AnalysisRecord{*first}, o.extraRuns(ctx, images, askingPrice, eval.SuggestedRuns-1, opts)...)

	emit("merging", "Reconciling results...", 0.8)

	var outcome model.ConsensusOutcome
	if eval.UseReasoning && cfg.UseReasoningModel && o.synth != nil {
		res := o.synth.Synthesize(ctx, runs, images)
		outcome = res.Outcome
	} else {
		outcome = MergeResults(runs)
	}

	emit("complete", "Analysis complete.", 1)
	return outcome, nil
}

// extraRuns performs up to count additional analyses. A failed run is
// logged and excluded — never retried, and never fatal to the batch.
func (o *Orchestrator) extraRuns(ctx context.Context, images []model.Image, askingPrice float64, count int, opts Options) []model.AnalysisRecord {
	if count <= 0 {
		return nil
	}

	if !opts.Parallel {
		var runs []model.AnalysisRecord
		for i := 0; i < count; i++ {
			rec, err := o.analyzer.Analyze(ctx, images, askingPrice)
			if err != nil {
				zap.L().Warn("consensus: additional run failed, continuing with remaining runs",
					zap.Int("run", i+2),
					zap.Error(err),
				)
				continue
			}
			runs = append(runs, *rec)
			if opts.Progress != nil {
				opts.Progress(ProgressEvent{
					Type:     "progress",
					Stage:    "consensus_runs",
					Message:  fmt.Sprintf("Verification run %d complete.", i+2),
					Progress: 0.3 + 0.5*float64(i+1)/float64(count),
				})
			}
		}
		return runs
	}

	results := make([]*model.AnalysisRecord, count)
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			rec, err := o.analyzer.Analyze(gCtx, images, askingPrice)
			if err != nil {
				zap.L().Warn("consensus: additional run failed, continuing with remaining runs",
					zap.Int("run", i+2),
					zap.Error(err),
				)
				return nil // Don't fail the group on individual errors.
			}
			mu.Lock()
			results[i] = rec
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var runs []model.AnalysisRecord
	for _, r := range results {
		if r != nil {
			runs = append(runs, *r)
		}
	}
	return runs
}
