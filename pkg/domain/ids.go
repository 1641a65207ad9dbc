// Package domain holds shared value types used across bounded contexts.
//
// IDs are distinct types over uuid.UUID so that a DocumentID can never be
// passed where an ApplicationID is expected. Construct them through the
// Parse* functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "zerina/pkg/domain-errors"
)

// UserID identifies a marketplace account (buyer, vendor, or admin).
type UserID uuid.UUID

// ApplicationID identifies a vendor application row.
type ApplicationID uuid.UUID

// DocumentID identifies an uploaded vendor document.
type DocumentID uuid.UUID

// SessionID identifies an issued credential/session.
type SessionID uuid.UUID

func (i UserID) IsNil() bool        { return uuid.UUID(i) == uuid.Nil }
func (i ApplicationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i DocumentID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i SessionID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }

func (i UserID) String() string        { return uuid.UUID(i).String() }
func (i ApplicationID) String() string { return uuid.UUID(i).String() }
func (i DocumentID) String() string    { return uuid.UUID(i).String() }
func (i SessionID) String() string     { return uuid.UUID(i).String() }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewApplicationID returns a fresh random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application ID")
	return ApplicationID(u), err
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document ID")
	return DocumentID(u), err
}

// ParseSessionID constructs a SessionID from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	return SessionID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}
