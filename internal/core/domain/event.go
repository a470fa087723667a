package domain

import "time"

// AuthEventType names a session lifecycle transition published to other services.
type AuthEventType string

const (
	EventUserRegistered AuthEventType = "user.registered"
	EventUserLoggedIn   AuthEventType = "user.logged_in"
	EventTokenRefreshed AuthEventType = "token.refreshed"
	EventUserLoggedOut  AuthEventType = "user.logged_out"
)

// AuthEvent is the payload emitted after a successful auth operation.
type AuthEvent struct {
	ID         string        `json:"id"`
	Type       AuthEventType `json:"type"`
	UserID     int64         `json:"userId"`
	Role       string        `json:"role"`
	TenantID   *int64        `json:"tenantId,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}
