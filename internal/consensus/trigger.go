package consensus

import (
	"fmt"
	"strings"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
)

// TriggerEvaluation is the rerun recommendation for one analysis record.
type TriggerEvaluation struct {
	ShouldRerun   bool     `json:"should_rerun"`
	Reasons       []string `json:"reasons"`
	SuggestedRuns int      `json:"suggested_runs"`
	UseReasoning  bool     `json:"use_reasoning"`
}

// genericFirstTokens are leading name words that signal the model could not
// actually identify the item.
var genericFirstTokens = map[string]bool{
	"decorative":  true,
	"vintage":     true,
	"antique":     true,
	"collectible": true,
	"unknown":     true,
}

// lowConfidenceFloor is the confidence below which identification is shaky
// enough to warrant a third run and reasoning adjudication.
const lowConfidenceFloor = 0.6

// wideRangeRatio flags value ranges whose max exceeds min by more than this
// factor as an uncertainty band too wide to trust from one run.
const wideRangeRatio = 5.0

// EvaluateTriggers decides whether an analysis should be re-run and how
// aggressively. Rules are independent; each raises the suggested run count
// via max, never additively, so stacked triggers cannot run away past the
// configured ceiling.
func EvaluateTriggers(rec model.AnalysisRecord, cfg config.ConsensusConfig) TriggerEvaluation {
	eval := TriggerEvaluation{SuggestedRuns: 1}

	raise := func(runs int, reason string) {
		if runs > eval.SuggestedRuns {
			eval.SuggestedRuns = runs
		}
		eval.Reasons = append(eval.Reasons, reason)
	}

	if rec.Confidence < cfg.ConfidenceThreshold {
		raise(2, fmt.Sprintf("confidence %.2f below threshold %.2f", rec.Confidence, cfg.ConfidenceThreshold))
	}

	if rec.Confidence < lowConfidenceFloor {
		raise(3, fmt.Sprintf("confidence %.2f is low, requesting reasoning adjudication", rec.Confidence))
		eval.UseReasoning = true
	}

	midpoint := rec.ValueMidpoint()
	switch {
	case midpoint >= cfg.VeryHighValueThreshold:
		raise(cfg.MaxRuns, fmt.Sprintf("estimated value $%.0f is in the very high tier", midpoint))
		eval.UseReasoning = true
	case midpoint >= cfg.HighValueThreshold:
		raise(2, fmt.Sprintf("estimated value $%.0f is in the high tier", midpoint))
	}

	if cfg.IsHighRisk(rec.DomainCategory) {
		raise(2, fmt.Sprintf("category %q is frequently faked or misattributed", rec.DomainCategory))
	}

	if rec.AuthenticityRisk.Elevated() {
		raise(2, fmt.Sprintf("authenticity risk is %s", rec.AuthenticityRisk))
		eval.UseReasoning = true
	}

	if tok := firstToken(rec.Name); genericFirstTokens[tok] {
		raise(2, fmt.Sprintf("identification %q is generic", rec.Name))
	}

	denom := rec.ValueMin
	if denom < 1 {
		denom = 1
	}
	if rec.ValueMax/denom > wideRangeRatio {
		raise(2, fmt.Sprintf("value range $%.0f-$%.0f is too wide to trust", rec.ValueMin, rec.ValueMax))
	}

	// Any multi-run consensus gets reasoning adjudication when the config
	// allows it.
	if cfg.UseReasoningModel && eval.SuggestedRuns > 1 {
		eval.UseReasoning = true
	}

	if eval.SuggestedRuns > cfg.MaxRuns {
		eval.SuggestedRuns = cfg.MaxRuns
	}
	if eval.SuggestedRuns < 1 {
		eval.SuggestedRuns = 1
	}
	eval.ShouldRerun = eval.SuggestedRuns > 1

	return eval
}

func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
