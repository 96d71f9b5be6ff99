// Package models contains the persistent domain entities of the mailroom
// service: packages in custody, pickup history snapshots and audit records.
package models

// Package lifecycle states. PickedUp is terminal.
const (
	StatusPending  = "Pending"
	StatusPickedUp = "PickedUp"
)

// Package is the custody record of a single physical parcel.
//
// Descriptive attributes are set at registration and never change.
// Status is the only mutable lifecycle field; PickupDate, EvidencePhotoRef
// and HandledBy are written exactly once, on the Pending -> PickedUp
// transition, and are immutable afterwards.
type Package struct {
	ID            string `json:"id"`
	RecipientName string `json:"recipientName"`
	RecipientID   string `json:"recipientId"`
	Program       string `json:"program"`
	PhoneNumber   string `json:"phoneNumber"`
	PackageType   string `json:"packageType"`

	Status      string `json:"status"`
	ArrivalDate string `json:"arrivalDate"`
	PickupDate  string `json:"pickupDate,omitempty"`

	EvidencePhotoRef string `json:"evidencePhotoRef,omitempty"`
	HandledBy        string `json:"handledBy,omitempty"`
	CreatedBy        string `json:"createdBy"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// HistoryEntry is a read-only projection of a Package at the moment it
// reached PickedUp. It is keyed independently from the live record, so
// deleting the Package does not erase pickup history.
type HistoryEntry struct {
	Package
}
