// Package appraise implements the single-shot vision analysis call: one
// photograph set in, one AnalysisRecord out. The consensus orchestrator
// treats it as an opaque, fallible collaborator.
package appraise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/pkg/anthropic"
)

// analysisMaxTokens bounds the analysis response.
const analysisMaxTokens = 2048

const analysisSystemText = "You are an expert appraiser of antiques and collectibles. Identify the item in the photographs and estimate its market value honestly, including the uncertainty. Return a valid JSON object only."

const analysisPromptFmt = `Identify and appraise the collectible item in the attached photograph(s).%s

Return a valid JSON object:
{
  "name": "<specific identification, e.g. 'Rookwood Standard Glaze Vase'>",
  "maker": "<maker or empty string if unknown>",
  "era": "<era or period, e.g. 'circa 1900'>",
  "style": "<style, e.g. 'Art Nouveau'>",
  "domain_category": "<one of: %s>",
  "product_category": "<specific product type, e.g. 'art pottery vase'>",
  "confidence": <0.0-1.0 overall confidence in this identification>,
  "value_min": <low estimate in USD>,
  "value_max": <high estimate in USD>,
  "authenticity_risk": "<low|medium|high|very_high>",
  "evidence_for": ["<visible details supporting this identification>"],
  "evidence_against": ["<details that cut against it, if any>"],
  "description": "<two or three sentences describing the item and its condition>",
  "dating_confidence": <0.0-1.0 confidence in the era, or omit>,
  "valuation_confidence": <0.0-1.0 confidence in the value range, or omit>
}`

// Analyzer performs vision analysis through the Anthropic API, throttled to
// respect the rate- and cost-constrained nature of the call.
type Analyzer struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates an Analyzer from the API configuration.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Analyzer {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Analyzer{
		client:  client,
		model:   cfg.VisionModel,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm),
		timeout: timeout,
	}
}

// wireRecord is the JSON shape requested from the model, decoded before
// validation into a model.AnalysisRecord.
type wireRecord struct {
	Name                string   `json:"name"`
	Maker               string   `json:"maker"`
	Era                 string   `json:"era"`
	Style               string   `json:"style"`
	DomainCategory      string   `json:"domain_category"`
	ProductCategory     string   `json:"product_category"`
	Confidence          float64  `json:"confidence"`
	ValueMin            float64  `json:"value_min"`
	ValueMax            float64  `json:"value_max"`
	AuthenticityRisk    string   `json:"authenticity_risk"`
	EvidenceFor         []string `json:"evidence_for"`
	EvidenceAgainst     []string `json:"evidence_against"`
	Description         string   `json:"description"`
	DatingConfidence    float64  `json:"dating_confidence"`
	ValuationConfidence float64  `json:"valuation_confidence"`
}

// Analyze runs one independent analysis of the item.
func (a *Analyzer) Analyze(ctx context.Context, images []model.Image, askingPrice float64) (*model.AnalysisRecord, error) {
	if len(images) == 0 {
		return nil, eris.New("analyze: at least one image is required")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "analyze: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	priceContext := ""
	if askingPrice > 0 {
		priceContext = fmt.Sprintf(" The seller is asking $%.0f; judge the value independently of that.", askingPrice)
	}
	prompt := fmt.Sprintf(analysisPromptFmt, priceContext, domainList())

	parts := []anthropic.ContentPart{{Type: anthropic.PartText, Text: prompt}}
	for _, img := range images {
		parts = append(parts, anthropic.ContentPart{
			Type:      anthropic.PartImage,
			MediaType: img.MediaType,
			Data:      img.Data,
		})
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: analysisMaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(analysisSystemText),
		Messages:  []anthropic.Message{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyze: create message")
	}
	resp.Usage.LogCost(a.model, "analysis")

	rec, err := parseRecord(extractText(resp))
	if err != nil {
		return nil, eris.Wrap(err, "analyze: parse response")
	}
	return rec, nil
}

// parseRecord decodes and validates the model's JSON answer. Out-of-range
// numbers are clamped rather than rejected; a missing identification is an
// error because nothing downstream can work without one.
func parseRecord(text string) (*model.AnalysisRecord, error) {
	var wire wireRecord
	if err := json.Unmarshal([]byte(cleanJSON(text)), &wire); err != nil {
		return nil, eris.Wrap(err, "unmarshal analysis")
	}

	if strings.TrimSpace(wire.Name) == "" {
		return nil, eris.New("analysis returned no identification")
	}

	rec := &model.AnalysisRecord{
		Name:                strings.TrimSpace(wire.Name),
		Maker:               strings.TrimSpace(wire.Maker),
		Era:                 strings.TrimSpace(wire.Era),
		Style:               strings.TrimSpace(wire.Style),
		DomainCategory:      model.DomainCategory(wire.DomainCategory).Normalize(),
		ProductCategory:     wire.ProductCategory,
		Confidence:          clamp01(wire.Confidence),
		ValueMin:            wire.ValueMin,
		ValueMax:            wire.ValueMax,
		AuthenticityRisk:    normalizeRisk(wire.AuthenticityRisk),
		EvidenceFor:         wire.EvidenceFor,
		EvidenceAgainst:     wire.EvidenceAgainst,
		Description:         wire.Description,
		DatingConfidence:    clamp01(wire.DatingConfidence),
		ValuationConfidence: clamp01(wire.ValuationConfidence),
	}

	if rec.ValueMin < 0 {
		rec.ValueMin = 0
	}
	if rec.ValueMax < rec.ValueMin {
		rec.ValueMax = rec.ValueMin
	}

	return rec, nil
}

func domainList() string {
	parts := make([]string, len(model.AllDomainCategories))
	for i, d := range model.AllDomainCategories {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeRisk(s string) model.AuthenticityRisk {
	switch model.AuthenticityRisk(strings.ToLower(strings.TrimSpace(s))) {
	case model.RiskLow:
		return model.RiskLow
	case model.RiskMedium:
		return model.RiskMedium
	case model.RiskHigh:
		return model.RiskHigh
	case model.RiskVeryHigh:
		return model.RiskVeryHigh
	default:
		zap.L().Warn("analyze: unrecognized authenticity risk, defaulting to medium",
			zap.String("raw", s),
		)
		return model.RiskMedium
	}
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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
