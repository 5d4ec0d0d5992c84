package model

// DomainCategory is the fixed taxonomy of item types used to select
// domain-specific logic and phrasing.
type DomainCategory string

const (
	DomainFurniture   DomainCategory = "furniture"
	DomainCeramics    DomainCategory = "ceramics"
	DomainGlass       DomainCategory = "glass"
	DomainSilver      DomainCategory = "silver"
	DomainJewelry     DomainCategory = "jewelry"
	DomainWatches     DomainCategory = "watches"
	DomainArt         DomainCategory = "art"
	DomainTextiles    DomainCategory = "textiles"
	DomainToys        DomainCategory = "toys"
	DomainBooks       DomainCategory = "books"
	DomainTools       DomainCategory = "tools"
	DomainLighting    DomainCategory = "lighting"
	DomainElectronics DomainCategory = "electronics"
	DomainVehicles    DomainCategory = "vehicles"
	DomainGeneral     DomainCategory = "general"
)

// AllDomainCategories lists every member of the taxonomy. Lookup tables keyed
// by DomainCategory are validated against this list in tests so a missing
// domain is impossible at runtime.
var AllDomainCategories = []DomainCategory{
	DomainFurniture, DomainCeramics, DomainGlass, DomainSilver,
	DomainJewelry, DomainWatches, DomainArt, DomainTextiles,
	DomainToys, DomainBooks, DomainTools, DomainLighting,
	DomainElectronics, DomainVehicles, DomainGeneral,
}

// Normalize returns the category itself when it is a known member of the
// taxonomy, or DomainGeneral otherwise.
func (d DomainCategory) Normalize() DomainCategory {
	for _, c := range AllDomainCategories {
		if d == c {
			return c
		}
	}
	return DomainGeneral
}

// AuthenticityRisk grades how likely the item is to be misattributed,
// reproduced, or faked.
type AuthenticityRisk string

const (
	RiskLow      AuthenticityRisk = "low"
	RiskMedium   AuthenticityRisk = "medium"
	RiskHigh     AuthenticityRisk = "high"
	RiskVeryHigh AuthenticityRisk = "very_high"
)

// Elevated reports whether the risk warrants extra scrutiny (high or above).
func (r AuthenticityRisk) Elevated() bool {
	return r == RiskHigh || r == RiskVeryHigh
}

// AnnotationKind labels a structured merge annotation.
type AnnotationKind string

const (
	AnnotationConsensus      AnnotationKind = "consensus"
	AnnotationLowConsensus   AnnotationKind = "low_consensus"
	AnnotationMedian         AnnotationKind = "median"
	AnnotationReasoning      AnnotationKind = "reasoning"
	AnnotationExpertReferral AnnotationKind = "expert_referral"
)

// Annotation is one audit-trail note attached to a record by a merge or
// synthesis step. Annotations are structured so tests and callers can assert
// on them directly; they are rendered into the description text only at the
// presentation boundary.
type Annotation struct {
	Kind AnnotationKind `json:"kind"`
	Text string         `json:"text"`
}

// AnalysisRecord is the unit of evidence: the shape produced by one external
// vision analysis call. Records are immutable after creation; merge
// operations produce a new record and never mutate their inputs.
type AnalysisRecord struct {
	Name             string           `json:"name"`
	Maker            string           `json:"maker,omitempty"` // empty = unknown
	Era              string           `json:"era,omitempty"`
	Style            string           `json:"style,omitempty"`
	DomainCategory   DomainCategory   `json:"domain_category"`
	ProductCategory  string           `json:"product_category"`
	Confidence       float64          `json:"confidence"`
	ValueMin         float64          `json:"value_min"`
	ValueMax         float64          `json:"value_max"`
	AuthenticityRisk AuthenticityRisk `json:"authenticity_risk"`
	EvidenceFor      []string         `json:"evidence_for,omitempty"`
	EvidenceAgainst  []string         `json:"evidence_against,omitempty"`
	Description      string           `json:"description,omitempty"`
	Annotations      []Annotation     `json:"annotations,omitempty"`

	// Optional secondary confidences reported by some analysis runs.
	// Zero means unset; readers fall back to Confidence.
	DatingConfidence    float64 `json:"dating_confidence,omitempty"`
	ValuationConfidence float64 `json:"valuation_confidence,omitempty"`

	// ExpertReviewRecommended is set by reasoning synthesis when the
	// adjudicating model flags the item for an in-person expert.
	ExpertReviewRecommended bool `json:"expert_review_recommended,omitempty"`
}

// ValueMidpoint returns the midpoint of the estimated value range.
func (r AnalysisRecord) ValueMidpoint() float64 {
	return (r.ValueMin + r.ValueMax) / 2
}

// WithAnnotation returns a copy of the record with one more annotation
// appended. The receiver is not modified.
func (r AnalysisRecord) WithAnnotation(kind AnnotationKind, text string) AnalysisRecord {
	out := r
	out.Annotations = append(append([]Annotation(nil), r.Annotations...), Annotation{Kind: kind, Text: text})
	return out
}

// RenderDescription flattens the original description plus all annotations
// into the single free-text field presented to users.
func (r AnalysisRecord) RenderDescription() string {
	text := r.Description
	for _, a := range r.Annotations {
		if text != "" {
			text += "\n\n"
		}
		text += a.Text
	}
	return text
}

// Image is one photograph of the item, as supplied to the external model
// calls. The first image in a set is the primary view.
type Image struct {
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

// MergeStrategy identifies which reconciliation path produced a consensus.
type MergeStrategy string

const (
	StrategySingleRun         MergeStrategy = "single_run"
	StrategyWeightedAverage   MergeStrategy = "weighted_average"
	StrategyHighestConfidence MergeStrategy = "highest_confidence"
	StrategyMedianConsensus   MergeStrategy = "median_consensus"
	StrategyReasoning         MergeStrategy = "reasoning_synthesis"
)

// AgreementReport measures how similar the analysis runs are along each
// dimension. All scores are in [0,1].
type AgreementReport struct {
	NameAgreement     float64       `json:"name_agreement"`
	ValueAgreement    float64       `json:"value_agreement"`
	CategoryAgreement float64       `json:"category_agreement"`
	MergeStrategy     MergeStrategy `json:"merge_strategy"`
}

// ConsensusOutcome is the orchestrator's return value: the reconciled record,
// every successful run that contributed to it, and the agreement report.
type ConsensusOutcome struct {
	FinalResult AnalysisRecord   `json:"final_result"`
	AllRuns     []AnalysisRecord `json:"all_runs"`
	Agreement   AgreementReport  `json:"agreement"`
}
