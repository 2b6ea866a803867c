package models

import "strings"

// Role represents the author of a turn.
type Role string

const (
	// RoleUser represents a message written by the person using the chat page.
	RoleUser Role = "user"
	// RoleModel represents a message produced by the model. The name matches the role the Gemini API
	// expects for model-authored content.
	RoleModel Role = "model"
)

// Turn is one message exchanged by either the user or the model.
type Turn struct {
	Role Role
	Text string
}

// Exchange is a single History entry as the chat page keeps it: the user's message and the model's
// reply to it. On the wire it is a two-element JSON array, [user, model].
type Exchange struct {
	User  string
	Model string
}

// Turns returns the two turns of the exchange, user first.
func (e Exchange) Turns() [2]Turn {
	return [2]Turn{
		{Role: RoleUser, Text: e.User},
		{Role: RoleModel, Text: e.Model},
	}
}

// HistoryTurns flattens the history into turns in their original order. The result always has twice
// as many entries as the history, alternating user and model.
func HistoryTurns(history []Exchange) []Turn {
	turns := make([]Turn, 0, len(history)*2)
	for _, ex := range history {
		t := ex.Turns()
		turns = append(turns, t[0], t[1])
	}
	return turns
}

// CompleteExchanges returns the exchanges where both the user and the model said something. An
// exchange whose reply never arrived (failed or stopped stream) cannot be sent back to the model,
// which rejects empty text parts.
func CompleteExchanges(history []Exchange) []Exchange {
	complete := make([]Exchange, 0, len(history))
	for _, ex := range history {
		if strings.TrimSpace(ex.User) == "" || strings.TrimSpace(ex.Model) == "" {
			continue
		}
		complete = append(complete, ex)
	}
	return complete
}
