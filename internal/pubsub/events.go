package pubsub

import "github.com/Billy-Davies-2/hitchart-input/internal/models"

// RecordCreated announces a new record in a session
func RecordCreated(sessionID string, rec models.Record) Event {
	return Event{
		Type:    EventRecordCreated,
		Session: sessionID,
		Payload: map[string]any{
			"id":        rec.ID,
			"x":         rec.X,
			"y":         rec.Y,
			"hitType":   rec.HitType,
			"pitchType": rec.PitchType,
		},
	}
}

// RecordDeleted announces a removed record. Subscribers redraw every marker.
func RecordDeleted(sessionID, recordID string) Event {
	return Event{
		Type:    EventRecordDeleted,
		Session: sessionID,
		Payload: map[string]any{"id": recordID},
	}
}

// MarkersCleared announces that a session dropped all of its records
func MarkersCleared(sessionID string) Event {
	return Event{Type: EventMarkersCleared, Session: sessionID}
}

// SelectionChanged announces a new form selection
func SelectionChanged(sessionID string, sel models.Selection) Event {
	return Event{
		Type:    EventSelectionChanged,
		Session: sessionID,
		Payload: map[string]any{"team": sel.Team, "player": sel.Player},
	}
}
