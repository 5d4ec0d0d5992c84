package consensus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
)

func confidentRecord() model.AnalysisRecord {
	return model.AnalysisRecord{
		Name:             "Victorian Brass Candlestick",
		DomainCategory:   model.DomainGeneral,
		ProductCategory:  "candlestick",
		Confidence:       0.85,
		ValueMin:         40,
		ValueMax:         80,
		AuthenticityRisk: model.RiskLow,
	}
}

func TestEvaluateTriggers_NoTriggers(t *testing.T) {
	eval := EvaluateTriggers(confidentRecord(), config.DefaultConsensusConfig())

	assert.False(t, eval.ShouldRerun)
	assert.Equal(t, 1, eval.SuggestedRuns)
	assert.False(t, eval.UseReasoning)
	assert.Empty(t, eval.Reasons)
}

func TestEvaluateTriggers_ModeratelyLowConfidence(t *testing.T) {
	rec := confidentRecord()
	rec.Confidence = 0.65

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.True(t, eval.ShouldRerun)
	assert.Equal(t, 2, eval.SuggestedRuns)
	assert.Len(t, eval.Reasons, 1)
}

func TestEvaluateTriggers_VeryLowConfidence(t *testing.T) {
	rec := confidentRecord()
	rec.Confidence = 0.5

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	// Both the threshold rule (2 runs) and the low-confidence rule (3 runs)
	// fire; max wins, not the sum.
	assert.Equal(t, 3, eval.SuggestedRuns)
	assert.True(t, eval.UseReasoning)
	assert.Len(t, eval.Reasons, 2)
}

func TestEvaluateTriggers_HighValueTier(t *testing.T) {
	rec := confidentRecord()
	rec.ValueMin = 1500
	rec.ValueMax = 2500

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.Equal(t, 2, eval.SuggestedRuns)
	// Any multi-run batch gets reasoning adjudication under the default
	// config.
	assert.True(t, eval.UseReasoning)
}

func TestEvaluateTriggers_VeryHighValueTier(t *testing.T) {
	rec := confidentRecord()
	rec.ValueMin = 12000
	rec.ValueMax = 18000
	cfg := config.DefaultConsensusConfig()

	eval := EvaluateTriggers(rec, cfg)

	assert.Equal(t, cfg.MaxRuns, eval.SuggestedRuns)
	assert.True(t, eval.UseReasoning)
}

func TestEvaluateTriggers_HighRiskCategory(t *testing.T) {
	rec := confidentRecord()
	rec.Name = "Cartier Tank Wristwatch"
	rec.DomainCategory = model.DomainWatches

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.Equal(t, 2, eval.SuggestedRuns)
	assert.True(t, eval.ShouldRerun)
}

func TestEvaluateTriggers_ElevatedAuthenticityRisk(t *testing.T) {
	rec := confidentRecord()
	rec.AuthenticityRisk = model.RiskHigh

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.Equal(t, 2, eval.SuggestedRuns)
	assert.True(t, eval.UseReasoning)
}

func TestEvaluateTriggers_GenericIdentification(t *testing.T) {
	rec := confidentRecord()
	rec.Name = "Decorative Ceramic Vase"

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.Equal(t, 2, eval.SuggestedRuns)
}

func TestEvaluateTriggers_WideValueRange(t *testing.T) {
	rec := confidentRecord()
	rec.ValueMin = 100
	rec.ValueMax = 900

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	assert.Equal(t, 2, eval.SuggestedRuns)
}

func TestEvaluateTriggers_ZeroMinWideRange(t *testing.T) {
	rec := confidentRecord()
	rec.ValueMin = 0
	rec.ValueMax = 10

	eval := EvaluateTriggers(rec, config.DefaultConsensusConfig())

	// A zero minimum uses a $1 denominator rather than dividing by zero.
	assert.Equal(t, 2, eval.SuggestedRuns)
}

func TestEvaluateTriggers_StackedTriggersRespectCeiling(t *testing.T) {
	rec := model.AnalysisRecord{
		Name:             "Unknown Gold Pocket Watch",
		DomainCategory:   model.DomainWatches,
		Confidence:       0.3,
		ValueMin:         500,
		ValueMax:         50000,
		AuthenticityRisk: model.RiskVeryHigh,
	}
	cfg := config.DefaultConsensusConfig()

	eval := EvaluateTriggers(rec, cfg)

	assert.Equal(t, cfg.MaxRuns, eval.SuggestedRuns)
	assert.GreaterOrEqual(t, len(eval.Reasons), 5)
}

func TestEvaluateTriggers_MaxRunsOneDisablesReruns(t *testing.T) {
	rec := confidentRecord()
	rec.Confidence = 0.4
	cfg := config.DefaultConsensusConfig()
	cfg.MaxRuns = 1

	eval := EvaluateTriggers(rec, cfg)

	assert.False(t, eval.ShouldRerun)
	assert.Equal(t, 1, eval.SuggestedRuns)
	// The reasons still record what would have triggered.
	assert.NotEmpty(t, eval.Reasons)
}

func TestEvaluateTriggers_ReasoningDisabledByConfig(t *testing.T) {
	rec := confidentRecord()
	rec.ValueMin = 1500
	rec.ValueMax = 2500
	cfg := config.DefaultConsensusConfig()
	cfg.UseReasoningModel = false

	eval := EvaluateTriggers(rec, cfg)

	assert.Equal(t, 2, eval.SuggestedRuns)
	assert.False(t, eval.UseReasoning)
}

func TestEvaluateTriggers_Bounds(t *testing.T) {
	cfg := config.DefaultConsensusConfig()
	confidences := []float64{0, 0.3, 0.6, 0.7, 0.9, 1}
	values := [][2]float64{{0, 0}, {10, 20}, {100, 5000}, {8000, 60000}}
	risks := []model.AuthenticityRisk{model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskVeryHigh}

	for _, conf := range confidences {
		for _, v := range values {
			for _, risk := range risks {
				rec := model.AnalysisRecord{
					Name:             "Test Item",
					DomainCategory:   model.DomainArt,
					Confidence:       conf,
					ValueMin:         v[0],
					ValueMax:         v[1],
					AuthenticityRisk: risk,
				}
				eval := EvaluateTriggers(rec, cfg)

				label := fmt.Sprintf("conf=%.1f value=%v risk=%s", conf, v, risk)
				assert.GreaterOrEqual(t, eval.SuggestedRuns, 1, label)
				assert.LessOrEqual(t, eval.SuggestedRuns, cfg.MaxRuns, label)
				assert.Equal(t, eval.SuggestedRuns > 1, eval.ShouldRerun, label)
			}
		}
	}
}

func TestFirstToken(t *testing.T) {
	assert.Equal(t, "decorative", firstToken("Decorative Vase"))
	assert.Equal(t, "", firstToken("   "))
	assert.Equal(t, "rookwood", firstToken("Rookwood"))
}
