package session

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/appraisal-engine/internal/model"
)

var currency = message.NewPrinter(language.AmericanEnglish)

// improvementThreshold separates a clear confidence gain from a marginal one
// in the closing message.
const improvementThreshold = 0.1

func valueRange(rec model.AnalysisRecord) string {
	return currency.Sprintf("$%d-$%d", int64(rec.ValueMin), int64(rec.ValueMax))
}

// openingMessage introduces the assistant, frames how certain the current
// identification is, and asks for the first piece of evidence.
func openingMessage(rec model.AnalysisRecord, first *model.InformationNeed) string {
	var framing string
	switch {
	case rec.Confidence >= 0.85:
		framing = fmt.Sprintf("I have a good read on this piece — it looks like a %s, estimated at %s.", rec.Name, valueRange(rec))
	case rec.Confidence >= 0.6:
		framing = fmt.Sprintf("My initial identification is a %s, estimated at %s, but I'd like to confirm a few details.", rec.Name, valueRange(rec))
	default:
		framing = fmt.Sprintf("I'm not yet certain about this piece. My best reading so far is a %s, but the photos leave room for doubt.", rec.Name)
	}

	msg := "Hi, I'm your appraisal assistant. " + framing +
		" A few specific details from you would sharpen this appraisal considerably.\n\n" + first.Question
	if first.Explanation != "" {
		msg += "\n\n" + first.Explanation
	}
	return msg
}

// completionMessage is the opening for sessions that need nothing further.
func completionMessage(rec model.AnalysisRecord) string {
	return fmt.Sprintf(
		"Hi, I'm your appraisal assistant. I've reviewed the analysis of your %s and I'm confident in the result as it stands — no further details are needed. The estimated value is %s.",
		rec.Name, valueRange(rec))
}

// nextNeedMessage acknowledges the response and surfaces the next need.
func nextNeedMessage(next model.InformationNeed) string {
	msg := "Thanks, that helps. Next:\n\n" + next.Question
	if next.Explanation != "" {
		msg += "\n\n" + next.Explanation
	}
	return msg
}

// readyMessage thanks the user when every need is answered but the caller
// has not yet triggered reanalysis.
const readyMessage = "Thank you — that covers everything I wanted to check. I'm ready to re-run the analysis with your new information."

// processingMessage announces the reanalysis.
const processingMessage = "Excellent — I have what I need. Give me a moment to re-analyze your item with this new information."

// closingMessage compares old and new confidence after reanalysis.
func closingMessage(oldConf float64, rec model.AnalysisRecord) string {
	improvement := rec.Confidence - oldConf
	switch {
	case improvement > improvementThreshold:
		return fmt.Sprintf(
			"Great news — your information made a real difference. Confidence rose from %.0f%% to %.0f%%. The updated appraisal is a %s, estimated at %s.",
			oldConf*100, rec.Confidence*100, rec.Name, valueRange(rec))
	case improvement > 0:
		return fmt.Sprintf(
			"Your information helped confirm the analysis. Confidence is now %.0f%%, up from %.0f%%. The appraisal stands at a %s, estimated at %s.",
			rec.Confidence*100, oldConf*100, rec.Name, valueRange(rec))
	default:
		return fmt.Sprintf(
			"I've re-analyzed the item with your information. The added detail did not raise the confidence score (%.0f%%), but it did make the appraisal more defensible. The result is a %s, estimated at %s.",
			rec.Confidence*100, rec.Name, valueRange(rec))
	}
}
