package needs

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
)

// Stable need IDs. Responses reference these for deduplication, so they are
// part of the contract with callers.
const (
	NeedIDMarks         = "marks_photo"
	NeedIDUnderside     = "underside_photo"
	NeedIDBack          = "back_photo"
	NeedIDProvenance    = "provenance_info"
	NeedIDMeasurements  = "measurements"
	NeedIDComparison    = "comparison_check"
	NeedIDDocumentation = "documentation"
	NeedIDCondition     = "condition_photos"
	NeedIDScale         = "scale_photo"
)

// defaultGains are the heuristic expected-confidence-gain weights per need.
// They order needs within a priority band and nothing more; they are not
// calibrated probabilities and must not be summed.
var defaultGains = map[string]float64{
	NeedIDMarks:         0.15,
	NeedIDComparison:    0.15,
	NeedIDProvenance:    0.12,
	NeedIDUnderside:     0.10,
	NeedIDBack:          0.10,
	NeedIDDocumentation: 0.10,
	NeedIDMeasurements:  0.08,
	NeedIDCondition:     0.05,
	NeedIDScale:         0.03,
}

// conditionKeywords in the item description trigger a condition-detail
// photo request.
var conditionKeywords = []string{"damage", "repair", "restoration"}

// minNeedsBeforeFiller is the need count below which the low-priority
// scale-reference request is appended.
const minNeedsBeforeFiller = 3

var currency = message.NewPrinter(language.AmericanEnglish)

// Detect maps an analysis record and the evidence already collected to a
// prioritized list of information needs. Pure: no side effects, safe for
// concurrent use. Needs whose IDs appear among the collected responses are
// never re-emitted, and no ID appears twice in one result.
func Detect(rec model.AnalysisRecord, collected []model.UserResponse, cfg config.NeedsConfig) []model.InformationNeed {
	answered := make(map[string]bool, len(collected))
	for _, r := range collected {
		answered[r.NeedID] = true
	}

	gain := func(id string) float64 {
		if g, ok := cfg.Gains[id]; ok && g > 0 {
			return g
		}
		return defaultGains[id]
	}

	var result []model.InformationNeed
	add := func(n model.InformationNeed) {
		if answered[n.ID] {
			return
		}
		n.ExpectedConfidenceGain = gain(n.ID)
		result = append(result, n)
	}

	domain := rec.DomainCategory.Normalize()
	midpoint := rec.ValueMidpoint()

	if rec.Confidence < 0.9 {
		priority := model.PriorityHigh
		if rec.Confidence < 0.7 {
			priority = model.PriorityCritical
		}
		add(model.InformationNeed{
			ID:            NeedIDMarks,
			Type:          model.NeedPhotoMarks,
			Priority:      priority,
			Question:      marksFor(domain),
			Explanation:   "Maker's marks are the single strongest identifier and usually settle attribution questions.",
			PhotoGuidance: "Fill the frame with the mark, use even lighting, and avoid flash glare.",
		})
	}

	if rec.Confidence < 0.85 && undersideDomains[domain] {
		add(model.InformationNeed{
			ID:            NeedIDUnderside,
			Type:          model.NeedPhotoUnderside,
			Priority:      model.PriorityHigh,
			Question:      "Can you photograph the underside or base of the item?",
			Explanation:   "Bases show construction methods, wear patterns, and marks that date and attribute pieces.",
			PhotoGuidance: "Tilt the item carefully and capture the entire base in one well-lit shot.",
		})
	}

	if rec.Confidence < 0.85 && reverseDomains[domain] {
		add(model.InformationNeed{
			ID:            NeedIDBack,
			Type:          model.NeedPhotoBack,
			Priority:      model.PriorityHigh,
			Question:      "Can you photograph the back or reverse side?",
			Explanation:   "Backs reveal labels, stretcher bars, joinery, and repairs that the front hides.",
			PhotoGuidance: "Capture the whole reverse side, then close-ups of any labels or writing.",
		})
	}

	if midpoint >= cfg.HighValueCutoff {
		add(model.InformationNeed{
			ID:          NeedIDProvenance,
			Type:        model.NeedQuestionOrigin,
			Priority:    model.PriorityHigh,
			Question:    "What do you know about this item's history? Where and when was it acquired?",
			Explanation: currency.Sprintf("For items valued around $%d, documented history can significantly affect the appraisal.", int64(midpoint)),
			Examples: []string{
				"Inherited from my grandmother, who bought it in the 1960s",
				"Purchased at an estate sale in New England last year",
				"Found at a flea market, no history known",
			},
		})
	}

	if measurableDomains[domain] && rec.Confidence < 0.8 {
		add(model.InformationNeed{
			ID:          NeedIDMeasurements,
			Type:        model.NeedMeasurement,
			Priority:    model.PriorityMedium,
			Question:    "Can you measure the item? Height, width, and depth in inches or centimeters.",
			Explanation: "Dimensions separate originals from later reproductions, which were often resized.",
		})
	}

	if rec.AuthenticityRisk.Elevated() {
		add(model.InformationNeed{
			ID:          NeedIDComparison,
			Type:        model.NeedQuestionCompare,
			Priority:    model.PriorityCritical,
			Question:    "Comparing your item to verified examples online, do the details match? Note anything that looks different.",
			Explanation: "This category is frequently reproduced; your close-up observations catch what photographs miss.",
		})
	}

	if midpoint >= cfg.DocumentationCutoff || rec.ExpertReviewRecommended {
		add(model.InformationNeed{
			ID:          NeedIDDocumentation,
			Type:        model.NeedDocument,
			Priority:    model.PriorityMedium,
			Question:    "Do you have any receipts, certificates, appraisals, or other paperwork for this item?",
			Explanation: "Documentation is the strongest provenance evidence and supports insurance valuations.",
		})
	}

	if containsConditionKeyword(rec.RenderDescription()) {
		add(model.InformationNeed{
			ID:            NeedIDCondition,
			Type:          model.NeedPhotoCondition,
			Priority:      model.PriorityMedium,
			Question:      "Can you photograph the areas with damage or repair up close?",
			Explanation:   "The extent and quality of repairs changes value considerably in both directions.",
			PhotoGuidance: "One photo per affected area, close enough to show texture.",
		})
	}

	if len(result) < minNeedsBeforeFiller {
		add(model.InformationNeed{
			ID:            NeedIDScale,
			Type:          model.NeedPhotoScale,
			Priority:      model.PriorityLow,
			Question:      "Can you photograph the item next to a common object, like a coin or a ruler, for scale?",
			Explanation:   "A scale reference rules out miniatures and oversize reproductions.",
			PhotoGuidance: "Place the reference object beside the item on a flat surface.",
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := result[i].Priority.Rank(), result[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return result[i].ExpectedConfidenceGain > result[j].ExpectedConfidenceGain
	})

	return result
}

func containsConditionKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range conditionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
