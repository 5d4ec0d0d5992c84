// Package session owns the interactive refinement conversation: it consumes
// the need detector's output, tracks collected evidence and a confidence
// time series, and gates when a reanalysis is warranted. A session is owned
// by exactly one conversation; callers must serialize concurrent writes.
package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/config"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/internal/needs"
)

// minResponsesForReanalysis is the evidence floor before a reanalysis is
// worth the cost, on top of every critical need being answered.
const minResponsesForReanalysis = 2

// Session is the aggregate root for one refinement conversation.
type Session struct {
	data model.InteractiveSession
}

// New creates a session for an existing analysis. Information needs are
// computed once here and stay fixed for the session's lifetime. A session
// whose only needs are low-priority filler starts complete — there is
// nothing worth a conversation.
func New(analysisID string, rec model.AnalysisRecord, cfg config.NeedsConfig) *Session {
	now := time.Now()
	detected := needs.Detect(rec, nil, cfg)

	s := &Session{
		data: model.InteractiveSession{
			ID:               uuid.NewString(),
			AnalysisID:       analysisID,
			CurrentAnalysis:  rec,
			InformationNeeds: detected,
			Status:           model.SessionGatheringInfo,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	actionable := false
	for _, n := range detected {
		if n.Priority != model.PriorityLow {
			actionable = true
			break
		}
	}

	if !actionable {
		s.data.Status = model.SessionComplete
		s.appendAssistant(completionMessage(rec))
	} else {
		s.appendAssistant(openingMessage(rec, &detected[0]))
	}

	zap.L().Info("session: created",
		zap.String("session_id", s.data.ID),
		zap.String("analysis_id", analysisID),
		zap.Int("needs", len(detected)),
		zap.String("status", string(s.data.Status)),
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.data.ID }

// Status returns the current state.
func (s *Session) Status() model.SessionStatus { return s.data.Status }

// CurrentAnalysis returns the record the session is refining.
func (s *Session) CurrentAnalysis() model.AnalysisRecord { return s.data.CurrentAnalysis }

// Needs returns a copy of the session's information needs.
func (s *Session) Needs() []model.InformationNeed {
	return append([]model.InformationNeed(nil), s.data.InformationNeeds...)
}

// PendingNeeds returns the needs that have no response yet, in priority
// order.
func (s *Session) PendingNeeds() []model.InformationNeed {
	answered := s.answeredIDs()
	var pending []model.InformationNeed
	for _, n := range s.data.InformationNeeds {
		if !answered[n.ID] {
			pending = append(pending, n)
		}
	}
	return pending
}

// History returns a copy of the conversation so far.
func (s *Session) History() []model.ConversationMessage {
	return append([]model.ConversationMessage(nil), s.data.ConversationHistory...)
}

// Progress returns a copy of the confidence time series.
func (s *Session) Progress() []model.ConfidenceProgressEntry {
	return append([]model.ConfidenceProgressEntry(nil), s.data.ConfidenceProgress...)
}

// Snapshot returns a copy of the full session state for serialization by
// the caller.
func (s *Session) Snapshot() model.InteractiveSession {
	out := s.data
	out.InformationNeeds = s.Needs()
	out.CollectedResponses = append([]model.UserResponse(nil), s.data.CollectedResponses...)
	out.ConversationHistory = s.History()
	out.ConfidenceProgress = s.Progress()
	return out
}

// AddResponse records one piece of user-supplied evidence and generates the
// next assistant turn. Unknown need IDs and responses outside the
// gathering_info state are tolerated as logged no-ops — sessions must
// survive client retries and stale references. When every critical need has
// a response and enough evidence has accumulated, the session transitions
// itself to processing.
func (s *Session) AddResponse(needID string, rtype model.ResponseType, content string) {
	if s.data.Status != model.SessionGatheringInfo {
		zap.L().Warn("session: response ignored, not gathering",
			zap.String("session_id", s.data.ID),
			zap.String("status", string(s.data.Status)),
		)
		return
	}
	if !s.hasNeed(needID) {
		zap.L().Warn("session: response references unknown need",
			zap.String("session_id", s.data.ID),
			zap.String("need_id", needID),
		)
		return
	}

	now := time.Now()
	s.data.CollectedResponses = append(s.data.CollectedResponses, model.UserResponse{
		NeedID:     needID,
		Type:       rtype,
		Content:    content,
		ProvidedAt: now,
	})
	s.data.ConversationHistory = append(s.data.ConversationHistory, model.ConversationMessage{
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: now,
	})
	s.data.UpdatedAt = now

	if s.readyForReanalysis() {
		s.data.Status = model.SessionProcessing
		s.appendAssistant(processingMessage)
		zap.L().Info("session: gathering complete, processing",
			zap.String("session_id", s.data.ID),
			zap.Int("responses", len(s.data.CollectedResponses)),
		)
		return
	}

	if pending := s.PendingNeeds(); len(pending) > 0 {
		s.appendAssistant(nextNeedMessage(pending[0]))
	} else {
		s.appendAssistant(readyMessage)
	}
}

// UpdateWithReanalysis installs the re-analyzed record, appends a confidence
// progress sample, and closes the session. Only valid while processing; a
// failed reanalysis simply never calls this, leaving the session in
// processing so the caller can retry.
func (s *Session) UpdateWithReanalysis(rec model.AnalysisRecord) {
	if s.data.Status != model.SessionProcessing {
		zap.L().Warn("session: reanalysis update ignored",
			zap.String("session_id", s.data.ID),
			zap.String("status", string(s.data.Status)),
		)
		return
	}

	oldConf := s.data.CurrentAnalysis.Confidence
	s.data.ConfidenceProgress = append(s.data.ConfidenceProgress, progressEntry(rec, time.Now()))
	s.data.CurrentAnalysis = rec
	s.appendAssistant(closingMessage(oldConf, rec))
	s.data.Status = model.SessionComplete
	s.data.UpdatedAt = time.Now()

	zap.L().Info("session: reanalysis applied",
		zap.String("session_id", s.data.ID),
		zap.Float64("old_confidence", oldConf),
		zap.Float64("new_confidence", rec.Confidence),
	)
}

// Abandon ends the session from any non-terminal state. Abandonment is
// always an explicit user action, never decided internally.
func (s *Session) Abandon() {
	if s.data.Status.Terminal() {
		return
	}
	s.data.Status = model.SessionAbandoned
	s.data.UpdatedAt = time.Now()
	zap.L().Info("session: abandoned", zap.String("session_id", s.data.ID))
}

// readyForReanalysis gates the transition to processing: every critical
// need answered, and at least minResponsesForReanalysis responses total.
func (s *Session) readyForReanalysis() bool {
	if len(s.data.CollectedResponses) < minResponsesForReanalysis {
		return false
	}
	answered := s.answeredIDs()
	for _, n := range s.data.InformationNeeds {
		if n.Priority == model.PriorityCritical && !answered[n.ID] {
			return false
		}
	}
	return true
}

func (s *Session) answeredIDs() map[string]bool {
	answered := make(map[string]bool, len(s.data.CollectedResponses))
	for _, r := range s.data.CollectedResponses {
		answered[r.NeedID] = true
	}
	return answered
}

func (s *Session) hasNeed(id string) bool {
	for _, n := range s.data.InformationNeeds {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) appendAssistant(content string) {
	s.data.ConversationHistory = append(s.data.ConversationHistory, model.ConversationMessage{
		Role:      model.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// progressEntry samples the per-dimension confidence of a record.
// Authentication has no direct confidence field, so the risk level maps to
// a numeric proxy.
func progressEntry(rec model.AnalysisRecord, at time.Time) model.ConfidenceProgressEntry {
	dating := rec.DatingConfidence
	if dating == 0 {
		dating = rec.Confidence
	}
	valuation := rec.ValuationConfidence
	if valuation == 0 {
		valuation = rec.Confidence
	}

	var auth float64
	switch rec.AuthenticityRisk {
	case model.RiskLow:
		auth = 0.9
	case model.RiskMedium:
		auth = 0.7
	default:
		auth = 0.5
	}

	return model.ConfidenceProgressEntry{
		Timestamp:      at,
		Identification: rec.Confidence,
		Dating:         dating,
		Authentication: auth,
		Valuation:      valuation,
	}
}
