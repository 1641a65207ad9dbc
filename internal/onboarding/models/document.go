package models

import (
	"time"

	"zerina/pkg/domain"
)

// VendorDocument is an uploaded artifact owned by a user. A document
// is attached to at most one application at a time; ApplicationID is
// nil while unattached.
type VendorDocument struct {
	ID            domain.DocumentID
	UserID        domain.UserID
	ApplicationID *domain.ApplicationID
	Filename      string
	MIMEType      string
	SizeBytes     int64
	StorageKey    string
	UploadedAt    time.Time
}

// AttachedTo reports whether the document is attached to the given
// application.
func (d *VendorDocument) AttachedTo(appID domain.ApplicationID) bool {
	return d.ApplicationID != nil && *d.ApplicationID == appID
}

// Attached reports whether the document is attached to any application.
func (d *VendorDocument) Attached() bool {
	return d.ApplicationID != nil
}
