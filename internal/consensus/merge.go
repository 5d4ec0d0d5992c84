package consensus

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/model"
)

// Strategy selection thresholds. These are policy constants relied on by
// downstream consumers; do not re-derive them.
const (
	weightedNameFloor  = 0.7
	weightedValueFloor = 0.8
	lowConsensusCeil   = 0.3
)

// MergeResults reconciles one or more independent analysis runs into a
// single consensus record with an auditable agreement report. The input
// slice is never mutated; the returned record is a new value. All agreement
// statistics are symmetric over the run list, so the result is independent
// of run order.
func MergeResults(runs []model.AnalysisRecord) model.ConsensusOutcome {
	if len(runs) == 0 {
		return model.ConsensusOutcome{}
	}

	if len(runs) == 1 {
		return model.ConsensusOutcome{
			FinalResult: runs[0],
			AllRuns:     runs,
			Agreement: model.AgreementReport{
				NameAgreement:     1,
				ValueAgreement:    1,
				CategoryAgreement: 1,
				MergeStrategy:     model.StrategySingleRun,
			},
		}
	}

	agreement := model.AgreementReport{
		NameAgreement:     nameAgreement(runs),
		ValueAgreement:    valueAgreement(runs),
		CategoryAgreement: categoryAgreement(runs),
	}

	var final model.AnalysisRecord
	switch {
	case agreement.NameAgreement > weightedNameFloor && agreement.ValueAgreement > weightedValueFloor:
		agreement.MergeStrategy = model.StrategyWeightedAverage
		final = mergeWeighted(runs)

	case agreement.NameAgreement < lowConsensusCeil:
		agreement.MergeStrategy = model.StrategyHighestConfidence
		final = mergeHighestConfidence(runs, agreement.NameAgreement)

	default:
		agreement.MergeStrategy = model.StrategyMedianConsensus
		final = mergeMedian(runs)
	}

	zap.L().Debug("consensus: merged runs",
		zap.Int("runs", len(runs)),
		zap.String("strategy", string(agreement.MergeStrategy)),
		zap.Float64("name_agreement", agreement.NameAgreement),
		zap.Float64("value_agreement", agreement.ValueAgreement),
		zap.Float64("category_agreement", agreement.CategoryAgreement),
	)

	return model.ConsensusOutcome{
		FinalResult: final,
		AllRuns:     runs,
		Agreement:   agreement,
	}
}

// nameAgreement averages pairwise Jaccard similarity of name tokens over all
// C(n,2) pairs. Tokens shorter than 3 characters are ignored; a pair where
// either side has no usable tokens contributes 0.
func nameAgreement(runs []model.AnalysisRecord) float64 {
	tokenSets := make([]map[string]bool, len(runs))
	for i, r := range runs {
		tokenSets[i] = nameTokens(r.Name)
	}

	var total float64
	var pairs int
	for i := 0; i < len(tokenSets); i++ {
		for j := i + 1; j < len(tokenSets); j++ {
			total += jaccard(tokenSets[i], tokenSets[j])
			pairs++
		}
	}
	return total / float64(pairs)
}

func nameTokens(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if len(tok) > 2 {
			tokens[tok] = true
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	union := len(b)
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// valueAgreement is 1 minus the coefficient of variation of the run value
// midpoints, floored at 0. A zero mean counts as perfect agreement.
func valueAgreement(runs []model.AnalysisRecord) float64 {
	var mean float64
	for _, r := range runs {
		mean += r.ValueMidpoint()
	}
	mean /= float64(len(runs))
	if mean == 0 {
		return 1
	}

	var variance float64
	for _, r := range runs {
		d := r.ValueMidpoint() - mean
		variance += d * d
	}
	variance /= float64(len(runs))

	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		return 0
	}
	return 1 - cv
}

// categoryAgreement is the fraction of runs sharing the modal product
// category. Counts accumulate in run order and a later category must
// strictly exceed the current max to displace it.
func categoryAgreement(runs []model.AnalysisRecord) float64 {
	counts := make(map[string]int, len(runs))
	modal := 0
	for _, r := range runs {
		counts[r.ProductCategory]++
		if counts[r.ProductCategory] > modal {
			modal = counts[r.ProductCategory]
		}
	}
	return float64(modal) / float64(len(runs))
}

// highestConfidenceRun returns the run with the highest confidence,
// preferring the earliest on ties.
func highestConfidenceRun(runs []model.AnalysisRecord) model.AnalysisRecord {
	best := runs[0]
	for _, r := range runs[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}

// mergeWeighted averages value bounds and confidence across runs weighted by
// each run's confidence, on top of the highest-confidence run's identity.
func mergeWeighted(runs []model.AnalysisRecord) model.AnalysisRecord {
	var totalConf float64
	for _, r := range runs {
		totalConf += r.Confidence
	}

	var valueMin, valueMax, confidence float64
	for _, r := range runs {
		w := 1 / float64(len(runs))
		if totalConf > 0 {
			w = r.Confidence / totalConf
		}
		valueMin += w * r.ValueMin
		valueMax += w * r.ValueMax
		confidence += w * r.Confidence
	}

	out := highestConfidenceRun(runs)
	out.ValueMin = valueMin
	out.ValueMax = valueMax
	out.Confidence = confidence

	return out.WithAnnotation(model.AnnotationConsensus,
		fmt.Sprintf("Consensus of %d analysis runs (weighted confidence %.0f%%).", len(runs), confidence*100))
}

// mergeHighestConfidence keeps the highest-confidence run unchanged except
// for a low-consensus warning.
func mergeHighestConfidence(runs []model.AnalysisRecord, nameAgreement float64) model.AnalysisRecord {
	out := highestConfidenceRun(runs)
	return out.WithAnnotation(model.AnnotationLowConsensus,
		fmt.Sprintf("Low agreement between %d analysis runs (name agreement %.0f%%); showing the most confident identification.",
			len(runs), nameAgreement*100))
}

// mergeMedian takes the confidence-median run's identity fields and replaces
// each value bound with its independent median across runs.
func mergeMedian(runs []model.AnalysisRecord) model.AnalysisRecord {
	byConf := append([]model.AnalysisRecord(nil), runs...)
	sort.SliceStable(byConf, func(i, j int) bool {
		return byConf[i].Confidence < byConf[j].Confidence
	})
	out := byConf[len(byConf)/2]

	mins := make([]float64, len(runs))
	maxs := make([]float64, len(runs))
	for i, r := range runs {
		mins[i] = r.ValueMin
		maxs[i] = r.ValueMax
	}
	sort.Float64s(mins)
	sort.Float64s(maxs)
	out.ValueMin = mins[len(mins)/2]
	out.ValueMax = maxs[len(maxs)/2]

	return out.WithAnnotation(model.AnnotationMedian,
		fmt.Sprintf("Median consensus of %d analysis runs.", len(runs)))
}
