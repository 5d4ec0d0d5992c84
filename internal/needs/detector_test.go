package needs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
)

func uncertainCeramics() model.AnalysisRecord {
	return model.AnalysisRecord{
		Name:             "Rookwood Pottery Vase",
		DomainCategory:   model.DomainCeramics,
		ProductCategory:  "art pottery vase",
		Confidence:       0.65,
		ValueMin:         1000,
		ValueMax:         2000,
		AuthenticityRisk: model.RiskLow,
	}
}

func TestDetect_UncertainCeramics(t *testing.T) {
	needs := Detect(uncertainCeramics(), nil, config.DefaultNeedsConfig())

	byID := make(map[string]model.InformationNeed, len(needs))
	for _, n := range needs {
		byID[n.ID] = n
	}

	// Confidence 0.65 makes the marks request critical.
	marks, ok := byID[NeedIDMarks]
	require.True(t, ok)
	assert.Equal(t, model.PriorityCritical, marks.Priority)
	assert.Contains(t, marks.Question, "base")
	assert.NotEmpty(t, marks.PhotoGuidance)

	// Ceramics get the underside request below 0.85.
	underside, ok := byID[NeedIDUnderside]
	require.True(t, ok)
	assert.Equal(t, model.PriorityHigh, underside.Priority)

	// Midpoint $1,500 crosses the provenance cutoff.
	provenance, ok := byID[NeedIDProvenance]
	require.True(t, ok)
	assert.NotEmpty(t, provenance.Examples)
	assert.Contains(t, provenance.Explanation, "$1,500")

	// Ceramics below 0.8 get the measurement request.
	_, ok = byID[NeedIDMeasurements]
	assert.True(t, ok)

	// Low risk, modest value: no comparison or documentation needs.
	assert.NotContains(t, byID, NeedIDComparison)
	assert.NotContains(t, byID, NeedIDDocumentation)
}

func TestDetect_NoDuplicateIDs(t *testing.T) {
	rec := uncertainCeramics()
	rec.AuthenticityRisk = model.RiskVeryHigh
	rec.ValueMin = 8000
	rec.ValueMax = 12000
	rec.Description = "Visible repair to the rim."

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	seen := make(map[string]bool)
	for _, n := range needs {
		assert.False(t, seen[n.ID], "duplicate need %s", n.ID)
		seen[n.ID] = true
	}
}

func TestDetect_AnsweredNeedsAreExcluded(t *testing.T) {
	collected := []model.UserResponse{
		{NeedID: NeedIDMarks, Type: model.ResponsePhoto, Content: "photo"},
		{NeedID: NeedIDProvenance, Type: model.ResponseText, Content: "estate sale"},
	}

	needs := Detect(uncertainCeramics(), collected, config.DefaultNeedsConfig())

	for _, n := range needs {
		assert.NotEqual(t, NeedIDMarks, n.ID)
		assert.NotEqual(t, NeedIDProvenance, n.ID)
	}
	assert.NotEmpty(t, needs)
}

func TestDetect_ComparisonIsCriticalOnElevatedRisk(t *testing.T) {
	rec := uncertainCeramics()
	rec.AuthenticityRisk = model.RiskHigh

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	require.GreaterOrEqual(t, len(needs), 2)
	// Marks and comparison share the top gain; both sort ahead of everything
	// else, with the marks request keeping its detection-order slot.
	assert.Equal(t, NeedIDMarks, needs[0].ID)
	assert.Equal(t, NeedIDComparison, needs[1].ID)
	assert.Equal(t, model.PriorityCritical, needs[0].Priority)
	assert.Equal(t, model.PriorityCritical, needs[1].Priority)
}

func TestDetect_DocumentationOnExpertReferral(t *testing.T) {
	rec := uncertainCeramics()
	rec.ValueMin = 100
	rec.ValueMax = 200
	rec.ExpertReviewRecommended = true

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	ids := make([]string, 0, len(needs))
	for _, n := range needs {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, NeedIDDocumentation)
}

func TestDetect_ConditionKeywordInAnnotations(t *testing.T) {
	rec := uncertainCeramics()
	// The keyword scan covers the rendered description, annotations included.
	rec = rec.WithAnnotation(model.AnnotationConsensus, "Runs disagreed on whether the glaze shows restoration.")

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	ids := make([]string, 0, len(needs))
	for _, n := range needs {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, NeedIDCondition)
}

func TestDetect_ConfidentItemGetsScaleFiller(t *testing.T) {
	rec := model.AnalysisRecord{
		Name:             "Modern Reproduction Paperweight",
		DomainCategory:   model.DomainGlass,
		Confidence:       0.95,
		ValueMin:         50,
		ValueMax:         100,
		AuthenticityRisk: model.RiskLow,
	}

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	require.Len(t, needs, 1)
	assert.Equal(t, NeedIDScale, needs[0].ID)
	assert.Equal(t, model.PriorityLow, needs[0].Priority)
}

func TestDetect_SortedByPriorityThenGain(t *testing.T) {
	rec := uncertainCeramics()
	rec.AuthenticityRisk = model.RiskHigh
	rec.Description = "Old repair on the handle."

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	for i := 1; i < len(needs); i++ {
		prev, cur := needs[i-1], needs[i]
		if prev.Priority.Rank() == cur.Priority.Rank() {
			assert.GreaterOrEqual(t, prev.ExpectedConfidenceGain, cur.ExpectedConfidenceGain)
		} else {
			assert.Less(t, prev.Priority.Rank(), cur.Priority.Rank())
		}
	}
}

func TestDetect_GainOverrides(t *testing.T) {
	cfg := config.DefaultNeedsConfig()
	cfg.Gains = map[string]float64{NeedIDMarks: 0.4}

	needs := Detect(uncertainCeramics(), nil, cfg)

	for _, n := range needs {
		if n.ID == NeedIDMarks {
			assert.Equal(t, 0.4, n.ExpectedConfidenceGain)
			return
		}
	}
	t.Fatal("marks need not detected")
}

func TestDetect_UnknownDomainFallsBackToGeneralPhrasing(t *testing.T) {
	rec := uncertainCeramics()
	rec.DomainCategory = "spacecraft"

	needs := Detect(rec, nil, config.DefaultNeedsConfig())

	require.NotEmpty(t, needs)
	found := false
	for _, n := range needs {
		if n.ID == NeedIDMarks {
			assert.Equal(t, marksPhrasing[model.DomainGeneral], n.Question)
			found = true
		}
	}
	assert.True(t, found)
}

func TestMarksPhrasing_TotalOverTaxonomy(t *testing.T) {
	for _, domain := range model.AllDomainCategories {
		assert.NotEmpty(t, marksPhrasing[domain], "missing phrasing for %s", domain)
	}
	assert.Len(t, marksPhrasing, len(model.AllDomainCategories))
}

func TestDefaultGains_CoverEveryNeedID(t *testing.T) {
	ids := []string{
		NeedIDMarks, NeedIDUnderside, NeedIDBack, NeedIDProvenance,
		NeedIDMeasurements, NeedIDComparison, NeedIDDocumentation,
		NeedIDCondition, NeedIDScale,
	}
	for _, id := range ids {
		assert.Greater(t, defaultGains[id], 0.0, "missing gain for %s", id)
	}
}
