package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCategory_Normalize(t *testing.T) {
	assert.Equal(t, DomainCeramics, DomainCategory("ceramics").Normalize())
	assert.Equal(t, DomainGeneral, DomainCategory("spacecraft").Normalize())
	assert.Equal(t, DomainGeneral, DomainCategory("").Normalize())
}

func TestAuthenticityRisk_Elevated(t *testing.T) {
	assert.False(t, RiskLow.Elevated())
	assert.False(t, RiskMedium.Elevated())
	assert.True(t, RiskHigh.Elevated())
	assert.True(t, RiskVeryHigh.Elevated())
}

func TestValueMidpoint(t *testing.T) {
	rec := AnalysisRecord{ValueMin: 800, ValueMax: 1200}
	assert.Equal(t, 1000.0, rec.ValueMidpoint())
	assert.Equal(t, 0.0, AnalysisRecord{}.ValueMidpoint())
}

func TestWithAnnotation_DoesNotMutateReceiver(t *testing.T) {
	base := AnalysisRecord{Name: "Vase"}

	first := base.WithAnnotation(AnnotationConsensus, "merged")
	second := first.WithAnnotation(AnnotationMedian, "median")

	assert.Empty(t, base.Annotations)
	require.Len(t, first.Annotations, 1)
	require.Len(t, second.Annotations, 2)
	assert.Equal(t, AnnotationConsensus, second.Annotations[0].Kind)
	assert.Equal(t, AnnotationMedian, second.Annotations[1].Kind)
}

func TestWithAnnotation_SharedBaseDoesNotAlias(t *testing.T) {
	base := AnalysisRecord{}.WithAnnotation(AnnotationConsensus, "merged")

	a := base.WithAnnotation(AnnotationMedian, "a")
	b := base.WithAnnotation(AnnotationReasoning, "b")

	assert.Equal(t, AnnotationMedian, a.Annotations[1].Kind)
	assert.Equal(t, AnnotationReasoning, b.Annotations[1].Kind)
}

func TestRenderDescription(t *testing.T) {
	rec := AnalysisRecord{Description: "A glazed earthenware vase."}
	rec = rec.WithAnnotation(AnnotationConsensus, "Consensus of 3 analysis runs.")

	assert.Equal(t, "A glazed earthenware vase.\n\nConsensus of 3 analysis runs.", rec.RenderDescription())

	// No description: annotations stand alone without a leading separator.
	bare := AnalysisRecord{}.WithAnnotation(AnnotationMedian, "Median consensus.")
	assert.Equal(t, "Median consensus.", bare.RenderDescription())
}
