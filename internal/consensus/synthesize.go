package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/pkg/anthropic"
)

// synthesisMaxTokens bounds the adjudication response.
const synthesisMaxTokens = 2048

const synthesisSystemText = "You are a senior appraiser adjudicating between multiple independent analyses of the same collectible item. Weigh the evidence in each run against the photograph and return a single, defensible identification. Return a valid JSON object only."

const synthesisPromptFmt = `Multiple independent analyses of the same item disagree. Reconcile them.

%s

Return a valid JSON object:
{
  "name": "<best identification>",
  "maker": "<maker or empty string if unknown>",
  "era": "<era or empty string>",
  "value_min": <number>,
  "value_max": <number>,
  "confidence": <0.0-1.0>,
  "reasoning": "<why this reconciliation is right, citing the runs>",
  "agreement_level": "<high|moderate|low>",
  "expert_referral": {"recommended": <bool>, "reason": "<why, if recommended>"}
}`

// SynthesisResult reports how a consensus was reached. When the reasoning
// call fails for any reason, Outcome holds the plain merge result,
// Synthesized is false, and FallbackErr records why — synthesis never fails
// past this boundary.
type SynthesisResult struct {
	Outcome     model.ConsensusOutcome
	Synthesized bool
	FallbackErr error
}

// Synthesizer adjudicates disagreement between runs with a
// higher-capability reasoning model.
type Synthesizer struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewSynthesizer creates a Synthesizer calling the given reasoning model.
func NewSynthesizer(client anthropic.Client, consensusCfg config.ConsensusConfig, aiCfg config.AnthropicConfig) *Synthesizer {
	timeout := time.Duration(aiCfg.RequestTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Synthesizer{
		client:  client,
		model:   consensusCfg.ReasoningModel,
		timeout: timeout,
	}
}

// synthesisResponse is the strict JSON shape requested from the reasoning
// model. Pointer fields distinguish "absent" from zero so only values the
// model actually produced overwrite the base record.
type synthesisResponse struct {
	Name           string   `json:"name"`
	Maker          string   `json:"maker"`
	Era            string   `json:"era"`
	ValueMin       *float64 `json:"value_min"`
	ValueMax       *float64 `json:"value_max"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	AgreementLevel string   `json:"agreement_level"`
	ExpertReferral struct {
		Recommended bool   `json:"recommended"`
		Reason      string `json:"reason"`
	} `json:"expert_referral"`
}

// Synthesize asks the reasoning model to reconcile the runs, grounded on the
// primary image. Any failure — transport, timeout, malformed output —
// degrades to the deterministic merge of the same runs.
func (s *Synthesizer) Synthesize(ctx context.Context, runs []model.AnalysisRecord, images []model.Image) SynthesisResult {
	fallback := MergeResults(runs)
	if len(runs) == 0 {
		return SynthesisResult{Outcome: fallback}
	}

	degrade := func(err error) SynthesisResult {
		zap.L().Warn("synthesize: falling back to merge",
			zap.Int("runs", len(runs)),
			zap.Error(err),
		)
		return SynthesisResult{Outcome: fallback, FallbackErr: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(synthesisPromptFmt, summarizeRuns(runs))
	parts := []anthropic.ContentPart{{Type: anthropic.PartText, Text: prompt}}
	if len(images) > 0 {
		parts = append(parts, anthropic.ContentPart{
			Type:      anthropic.PartImage,
			MediaType: images[0].MediaType,
			Data:      images[0].Data,
		})
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: synthesisMaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(synthesisSystemText),
		Messages:  []anthropic.Message{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return degrade(err)
	}
	resp.Usage.LogCost(s.model, "synthesis")

	var parsed synthesisResponse
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &parsed); err != nil {
		return degrade(err)
	}

	final := applySynthesis(highestConfidenceRun(runs), parsed)

	outcome := model.ConsensusOutcome{
		FinalResult: final,
		AllRuns:     runs,
		Agreement:   fallback.Agreement,
	}
	outcome.Agreement.MergeStrategy = model.StrategyReasoning

	return SynthesisResult{Outcome: outcome, Synthesized: true}
}

// applySynthesis overlays the synthesized fields on the base record,
// touching only fields the model actually supplied.
func applySynthesis(base model.AnalysisRecord, parsed synthesisResponse) model.AnalysisRecord {
	out := base

	if parsed.Name != "" {
		out.Name = parsed.Name
	}
	if parsed.Maker != "" {
		out.Maker = parsed.Maker
	}
	if parsed.Era != "" {
		out.Era = parsed.Era
	}
	if parsed.ValueMin != nil && parsed.ValueMax != nil &&
		*parsed.ValueMin >= 0 && *parsed.ValueMax >= *parsed.ValueMin {
		out.ValueMin = *parsed.ValueMin
		out.ValueMax = *parsed.ValueMax
	}
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		out.Confidence = *parsed.Confidence
	}

	if parsed.Reasoning != "" {
		out = out.WithAnnotation(model.AnnotationReasoning, "Expert reconciliation: "+parsed.Reasoning)
	}
	if parsed.ExpertReferral.Recommended {
		out.ExpertReviewRecommended = true
		note := "An in-person expert appraisal is recommended."
		if parsed.ExpertReferral.Reason != "" {
			note = "An in-person expert appraisal is recommended: " + parsed.ExpertReferral.Reason
		}
		out = out.WithAnnotation(model.AnnotationExpertReferral, note)
	}

	return out
}

// summarizeRuns builds the compact per-run briefing sent to the reasoning
// model: identity, value range, confidence, and the top supporting evidence.
func summarizeRuns(runs []model.AnalysisRecord) string {
	var b strings.Builder
	for i, r := range runs {
		fmt.Fprintf(&b, "--- Run %d ---\n", i+1)
		fmt.Fprintf(&b, "Name: %s\n", r.Name)
		if r.Maker != "" {
			fmt.Fprintf(&b, "Maker: %s\n", r.Maker)
		}
		if r.Era != "" {
			fmt.Fprintf(&b, "Era: %s\n", r.Era)
		}
		fmt.Fprintf(&b, "Category: %s\n", r.ProductCategory)
		fmt.Fprintf(&b, "Value: $%.0f-$%.0f\n", r.ValueMin, r.ValueMax)
		fmt.Fprintf(&b, "Confidence: %.2f\n", r.Confidence)
		for j, ev := range r.EvidenceFor {
			if j >= 3 {
				break
			}
			fmt.Fprintf(&b, "Evidence: %s\n", ev)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
