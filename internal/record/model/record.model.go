package model

// Principal identifies whoever issued a call. The store compares it by equality only.
type Principal string

type DocumentRecord struct {
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash"`
}

type User struct {
	UserID    string           `json:"user_id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Documents []DocumentRecord `json:"documents"`
}

type AuditEntry struct {
	Timestamp   int64  `json:"timestamp"`
	Action      string `json:"action"`
	PerformedBy string `json:"performed_by"`
}

type EventType string

const (
	UserCreated     EventType = "UserCreated"
	DocumentCreated EventType = "DocumentCreated"
	AuditEntryAdded EventType = "AuditEntryAdded"
	DocumentShared  EventType = "DocumentShared"
)

// Event is the notification emitted after every successful mutation.
// Only the fields relevant to Type are populated.
type Event struct {
	Type             EventType `json:"type"`
	UserID           string    `json:"user_id,omitempty"`
	Name             string    `json:"name,omitempty"`
	Email            string    `json:"email,omitempty"`
	DocumentID       string    `json:"document_id,omitempty"`
	ContentHash      string    `json:"content_hash,omitempty"`
	Action           string    `json:"action,omitempty"`
	PerformedBy      string    `json:"performed_by,omitempty"`
	SharedWithUserID string    `json:"shared_with_user_id,omitempty"`
	Timestamp        int64     `json:"timestamp,omitempty"`
}

type CreateUserRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type CreateDocRequest struct {
	UserID      string `json:"user_id"`
	ContentHash string `json:"content_hash"`
	DocumentID  string `json:"document_id"`
}

type AuditBatchRequest struct {
	DocumentIDs []string `json:"document_ids"`
	UserIDs     []string `json:"user_ids"`
	Actions     []string `json:"actions"`
	Timestamps  []int64  `json:"timestamps"`
}

type ShareRequest struct {
	UserID           string `json:"user_id"`
	SharedWithUserID string `json:"shared_with_user_id"`
	DocumentID       string `json:"document_id"`
}

type UserDetailsResponse struct {
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Documents []DocumentRecord `json:"documents"`
}

type AccessResponse struct {
	HasAccess bool `json:"has_access"`
}

type ErrorResponse struct {
	Error   Kind   `json:"error"`
	Message string `json:"message"`
}
