package service

import "github.com/google/uuid"

// EventPublisher pushes tenant-scoped events to connected dashboard
// clients. Implemented by the websocket hub; a nil publisher disables
// event delivery.
type EventPublisher interface {
	Publish(orgID uuid.UUID, event string, data interface{})
}

// publish is a nil-safe helper services use after a successful commit.
func publish(p EventPublisher, orgID uuid.UUID, event string, data interface{}) {
	if p != nil {
		p.Publish(orgID, event, data)
	}
}
