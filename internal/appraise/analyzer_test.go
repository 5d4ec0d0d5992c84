package appraise

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/pkg/anthropic"
)

type fakeClient struct {
	resp    *anthropic.MessageResponse
	err     error
	lastReq anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		VisionModel:        "claude-sonnet-4-5-20250929",
		RequestTimeoutSecs: 5,
		RequestsPerMinute:  600,
	}
}

const validAnalysisJSON = `{
	"name": "Rookwood Standard Glaze Vase",
	"maker": "Rookwood Pottery",
	"era": "circa 1900",
	"style": "Arts and Crafts",
	"domain_category": "ceramics",
	"product_category": "art pottery vase",
	"confidence": 0.72,
	"value_min": 800,
	"value_max": 1200,
	"authenticity_risk": "low",
	"evidence_for": ["flame mark on base"],
	"evidence_against": [],
	"description": "A glazed earthenware vase with floral decoration.",
	"dating_confidence": 0.6,
	"valuation_confidence": 0.65
}`

func TestAnalyze(t *testing.T) {
	client := &fakeClient{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "```json\n" + validAnalysisJSON + "\n```"}},
	}}
	a := New(client, testConfig())

	images := []model.Image{
		{MediaType: "image/jpeg", Data: []byte("front")},
		{MediaType: "image/png", Data: []byte("base")},
	}
	rec, err := a.Analyze(context.Background(), images, 950)
	require.NoError(t, err)

	assert.Equal(t, "Rookwood Standard Glaze Vase", rec.Name)
	assert.Equal(t, model.DomainCeramics, rec.DomainCategory)
	assert.Equal(t, 0.72, rec.Confidence)
	assert.Equal(t, 800.0, rec.ValueMin)
	assert.Equal(t, model.RiskLow, rec.AuthenticityRisk)
	assert.Equal(t, 0.6, rec.DatingConfidence)

	// The request carries the prompt plus every image, and the asking price
	// appears in the prompt.
	assert.Equal(t, "claude-sonnet-4-5-20250929", client.lastReq.Model)
	require.Len(t, client.lastReq.Messages, 1)
	parts := client.lastReq.Messages[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, anthropic.PartText, parts[0].Type)
	assert.Contains(t, parts[0].Text, "$950")
	assert.Equal(t, anthropic.PartImage, parts[1].Type)
	assert.Equal(t, "image/png", parts[2].MediaType)
}

func TestAnalyze_NoImages(t *testing.T) {
	a := New(&fakeClient{}, testConfig())
	_, err := a.Analyze(context.Background(), nil, 0)
	require.Error(t, err)
}

func TestAnalyze_TransportError(t *testing.T) {
	a := New(&fakeClient{err: errors.New("api down")}, testConfig())
	_, err := a.Analyze(context.Background(), []model.Image{{MediaType: "image/jpeg"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create message")
}

func TestAnalyze_NoAskingPriceOmitsPriceContext(t *testing.T) {
	client := &fakeClient{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: validAnalysisJSON}},
	}}
	a := New(client, testConfig())

	_, err := a.Analyze(context.Background(), []model.Image{{MediaType: "image/jpeg"}}, 0)
	require.NoError(t, err)
	assert.NotContains(t, client.lastReq.Messages[0].Parts[0].Text, "asking")
}

func TestParseRecord_EmptyName(t *testing.T) {
	_, err := parseRecord(`{"name": "  ", "confidence": 0.9}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identification")
}

func TestParseRecord_Malformed(t *testing.T) {
	_, err := parseRecord("this is not json")
	require.Error(t, err)
}

func TestParseRecord_UnknownDomainNormalizes(t *testing.T) {
	rec, err := parseRecord(`{"name": "Mystery Object", "domain_category": "spacecraft"}`)
	require.NoError(t, err)
	assert.Equal(t, model.DomainGeneral, rec.DomainCategory)
}

func TestParseRecord_ClampsAndRepairsRanges(t *testing.T) {
	rec, err := parseRecord(`{
		"name": "Test Item",
		"confidence": 1.4,
		"value_min": -50,
		"value_max": -100,
		"authenticity_risk": "catastrophic"
	}`)
	require.NoError(t, err)

	assert.Equal(t, 1.0, rec.Confidence)
	assert.Equal(t, 0.0, rec.ValueMin)
	assert.Equal(t, 0.0, rec.ValueMax)
	// Unrecognized risk defaults to medium rather than failing the run.
	assert.Equal(t, model.RiskMedium, rec.AuthenticityRisk)
}

func TestParseRecord_TrimsIdentityFields(t *testing.T) {
	rec, err := parseRecord(`{"name": " Tiffany Lamp ", "maker": " Tiffany Studios "}`)
	require.NoError(t, err)
	assert.Equal(t, "Tiffany Lamp", rec.Name)
	assert.Equal(t, "Tiffany Studios", rec.Maker)
}

func TestCleanJSON(t *testing.T) {
	wrapped := "Here is the analysis:\n```json\n{\"name\": \"x\"}\n```\nDone."
	assert.Equal(t, `{"name": "x"}`, cleanJSON(wrapped))

	bare := `{"name": "x"}`
	assert.Equal(t, bare, cleanJSON(bare))

	prose := "Sure! {\"name\": \"x\"} hope that helps"
	assert.Equal(t, `{"name": "x"}`, cleanJSON(prose))
}
