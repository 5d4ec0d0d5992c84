package model

import "time"

// SessionStatus represents the current state of an interactive session.
type SessionStatus string

const (
	SessionGatheringInfo SessionStatus = "gathering_info"
	SessionProcessing    SessionStatus = "processing"
	SessionComplete      SessionStatus = "complete"
	SessionAbandoned     SessionStatus = "abandoned"
)

// Terminal reports whether the status is a terminal state.
func (s SessionStatus) Terminal() bool {
	return s == SessionComplete || s == SessionAbandoned
}

// NeedPriority ranks how urgently an information need should be satisfied.
type NeedPriority string

const (
	PriorityCritical NeedPriority = "critical"
	PriorityHigh     NeedPriority = "high"
	PriorityMedium   NeedPriority = "medium"
	PriorityLow      NeedPriority = "low"
)

// priorityRank maps priorities to numeric ranks for sorting. Lower rank is
// more urgent.
var priorityRank = map[NeedPriority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the sortable rank for the priority. Unknown priorities sort
// last.
func (p NeedPriority) Rank() int {
	rank, ok := priorityRank[p]
	if !ok {
		return len(priorityRank)
	}
	return rank
}

// NeedType categorizes the kind of evidence a need asks for.
type NeedType string

const (
	NeedPhotoMarks      NeedType = "photo_marks"
	NeedPhotoUnderside  NeedType = "photo_underside"
	NeedPhotoBack       NeedType = "photo_back"
	NeedPhotoCondition  NeedType = "photo_condition"
	NeedPhotoScale      NeedType = "photo_scale"
	NeedQuestionOrigin  NeedType = "question_provenance"
	NeedQuestionCompare NeedType = "question_comparison"
	NeedMeasurement     NeedType = "measurement_dimensions"
	NeedDocument        NeedType = "document_provenance"
)

// InformationNeed is a specific, prioritized request for additional evidence
// expected to reduce uncertainty. IDs are stable and used to deduplicate
// against collected responses.
type InformationNeed struct {
	ID                     string       `json:"id"`
	Type                   NeedType     `json:"type"`
	Priority               NeedPriority `json:"priority"`
	Question               string       `json:"question"`
	Explanation            string       `json:"explanation"`
	ExpectedConfidenceGain float64      `json:"expected_confidence_gain"`
	PhotoGuidance          string       `json:"photo_guidance,omitempty"`
	Examples               []string     `json:"examples,omitempty"`
}

// ResponseType is the kind of evidence the user supplied.
type ResponseType string

const (
	ResponsePhoto       ResponseType = "photo"
	ResponseText        ResponseType = "text"
	ResponseMeasurement ResponseType = "measurement"
	ResponseDocument    ResponseType = "document"
)

// UserResponse is one piece of user-supplied evidence answering a need.
// Only the first response per need ID counts as answering that need; later
// responses to the same ID are additional context.
type UserResponse struct {
	NeedID     string       `json:"need_id"`
	Type       ResponseType `json:"type"`
	Content    string       `json:"content"`
	ProvidedAt time.Time    `json:"provided_at"`
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleAssistant MessageRole = "assistant"
	RoleUser      MessageRole = "user"
)

// ConversationMessage is one turn in the interactive dialogue.
type ConversationMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConfidenceProgressEntry is one sample in the session's confidence time
// series, taken whenever a reanalysis completes.
type ConfidenceProgressEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Identification float64   `json:"identification"`
	Dating         float64   `json:"dating"`
	Authentication float64   `json:"authentication"`
	Valuation      float64   `json:"valuation"`
}

// InteractiveSession is the aggregate root for one refinement conversation.
// It is owned by exactly one conversation; concurrent writers must be
// serialized by the caller.
type InteractiveSession struct {
	ID                  string                    `json:"id"`
	AnalysisID          string                    `json:"analysis_id"`
	CurrentAnalysis     AnalysisRecord            `json:"current_analysis"`
	InformationNeeds    []InformationNeed         `json:"information_needs"`
	CollectedResponses  []UserResponse            `json:"collected_responses"`
	ConversationHistory []ConversationMessage     `json:"conversation_history"`
	ConfidenceProgress  []ConfidenceProgressEntry `json:"confidence_progress"`
	Status              SessionStatus             `json:"status"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}
