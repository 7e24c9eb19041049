package events

import (
	"time"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCodeIssued       EventType = "code_issued"
	EventIdentityCreated  EventType = "identity_created"
	EventLoginSucceeded   EventType = "login_succeeded"
	EventSessionRefreshed EventType = "session_refreshed"
)

// LoginMethod records how a session was obtained.
type LoginMethod string

const (
	LoginMethodOTP      LoginMethod = "otp"
	LoginMethodPassword LoginMethod = "password"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CodeIssuedPayload carries a freshly issued code to the delivery sink.
// Code is excluded from serialization so it never reaches logs.
type CodeIssuedPayload struct {
	Contact   string      `json:"-"`
	Code      string      `json:"-"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IdentityCreatedPayload payload.
type IdentityCreatedPayload struct {
	Role   domain.Role `json:"role"`
	Method LoginMethod `json:"method"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	Role    domain.Role `json:"role"`
	Method  LoginMethod `json:"method"`
	Created bool        `json:"created"`
}
