package models

type EventType string

const (
	EventRegistrationCreated   EventType = "registration.created"
	EventRegistrationApproved  EventType = "registration.approved"
	EventAnswerSubmitted       EventType = "answer.submitted"
	EventAnswerGraded          EventType = "answer.graded"
	EventInstructionSent       EventType = "instruction.sent"
	EventAnnouncementPublished EventType = "announcement.published"
)

// Event is the message published to the broker after a state change.
// Email and Name identify the user the notification is addressed to.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp int64             `json:"timestamp"`
}
