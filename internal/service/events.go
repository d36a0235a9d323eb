package service

// EventPublisher pushes realtime events to connected clients. ws.Hub implements it.
type EventPublisher interface {
	Publish(eventType string, payload map[string]interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, map[string]interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// Actor is the authenticated caller of a command, recorded in audit columns.
type Actor struct {
	ID    string
	Name  string
	Email string
}

func (a Actor) payload() map[string]interface{} {
	return map[string]interface{}{
		"id":    a.ID,
		"name":  a.Name,
		"email": a.Email,
	}
}
