package models

// EngineEventType names the events consumed by the notification and
// analytics collaborators.
type EngineEventType string

const (
	EventMatchCompleted      EngineEventType = "match_completed"
	EventBracketAdvanced     EngineEventType = "bracket_advanced"
	EventDisputeOpened       EngineEventType = "dispute_opened"
	EventTournamentConcluded EngineEventType = "tournament_concluded"
)

// EngineEvent is one discrete message emitted by the engine. Payload shape
// depends on the event type and is serialized as-is for subscribers.
type EngineEvent struct {
	Type         EngineEventType        `json:"type"`
	TournamentID int                    `json:"tournament_id"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}
