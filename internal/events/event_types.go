package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmployeeCreated     EventType = "employee_created"
	EventEmployeeUpdated     EventType = "employee_updated"
	EventEmployeeDeactivated EventType = "employee_deactivated"
)

// Event represents a domain event published after a mutation commits.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EmployeeID int64     `json:"employee_id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// EmployeeUpdatedPayload lists the fields an update touched.
type EmployeeUpdatedPayload struct {
	Fields []string `json:"fields"`
}
