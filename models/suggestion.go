package models

// AiSuggestion is an unpersisted backlog-item candidate produced by the
// generator and the response parser. It becomes a BacklogItem only once a
// user confirms it.
type AiSuggestion struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Priority    Priority `json:"priority"`
}

// ConfirmedItem is a caller-approved suggestion resubmitted for persistence,
// with the fields the user may edit before confirming.
type ConfirmedItem struct {
	Name               string   `json:"name"`
	Description        *string  `json:"description"`
	Priority           Priority `json:"priority"`
	AssigneeID         string   `json:"assigneeId,omitempty"`
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty"`
	Size               ItemSize `json:"size,omitempty"`
	SprintID           string   `json:"sprintId,omitempty"`
}
