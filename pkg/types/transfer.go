package types

import "time"

type TransferType string

const (
	TransferTypeSend    TransferType = "send"
	TransferTypeRequest TransferType = "request"
)

type TransferStatus string

const (
	StatusPending      TransferStatus = "pending"
	StatusAcknowledged TransferStatus = "acknowledged"
	StatusInProgress   TransferStatus = "in_progress"
	StatusFulfilled    TransferStatus = "fulfilled"
)

// ValidStatus reports whether s is one of the four persisted status values.
func ValidStatus(s TransferStatus) bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusInProgress, StatusFulfilled:
		return true
	}
	return false
}

// MaxNotesLength caps the free-text notes field.
const MaxNotesLength = 5000

// Transfer represents one PDF document movement or request between two
// locations.
//
// For "send" transfers FromUserID is the sender and ToUserID the recipient.
// For "request" transfers FromUserID is the location being asked to fulfill
// and ToUserID the requester. In both cases FromUserID controls status/notes
// before fulfillment and ToUserID owns the tracking checkboxes after.
type Transfer struct {
	ID           string       `db:"id" json:"id"`
	FromUserID   string       `db:"from_user_id" json:"fromUserId"`
	ToUserID     string       `db:"to_user_id" json:"toUserId"`
	TransferType TransferType `db:"transfer_type" json:"transferType"`

	PDFFileName string `db:"pdf_file_name" json:"pdfFileName"`
	PDFPath     string `db:"pdf_path" json:"pdfPath"`

	Status          TransferStatus `db:"status" json:"status"`
	StatusUpdatedAt *time.Time     `db:"status_updated_at" json:"statusUpdatedAt"`
	Notes           *string        `db:"notes" json:"notes"`

	ReceivedAtDestination   bool       `db:"received_at_destination" json:"receivedAtDestination"`
	ReceivedAtDestinationAt *time.Time `db:"received_at_destination_at" json:"receivedAtDestinationAt"`
	EnteredIntoSystem       bool       `db:"entered_into_system" json:"enteredIntoSystem"`
	EnteredIntoSystemAt     *time.Time `db:"entered_into_system_at" json:"enteredIntoSystemAt"`

	Archived   bool       `db:"archived" json:"archived"`
	ArchivedAt *time.Time `db:"archived_at" json:"archivedAt"`

	ViewedByRecipient   bool       `db:"viewed_by_recipient" json:"viewedByRecipient"`
	ViewedByRecipientAt *time.Time `db:"viewed_by_recipient_at" json:"viewedByRecipientAt"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TransferRow is a transfer joined with both endpoint users, as returned by
// read and list queries so the client can render location names.
type TransferRow struct {
	Transfer
	FromUser UserRef `db:"from_user" json:"fromUser"`
	ToUser   UserRef `db:"to_user" json:"toUser"`
}

// TransferChanges is the set of caller-writable fields on an update. Nil
// means "not supplied". Derived fields (timestamps, archived, viewed) are
// never part of a change set.
type TransferChanges struct {
	Status                *TransferStatus `form:"status" json:"status"`
	Notes                 *string         `form:"notes" json:"notes"`
	ReceivedAtDestination *bool           `form:"receivedAtDestination" json:"receivedAtDestination"`
	EnteredIntoSystem     *bool           `form:"enteredIntoSystem" json:"enteredIntoSystem"`
}

// Empty reports whether no fields were supplied.
func (c TransferChanges) Empty() bool {
	return c.Status == nil && c.Notes == nil && c.ReceivedAtDestination == nil && c.EnteredIntoSystem == nil
}

// ArchiveFilter selects which transfers a list call returns.
type ArchiveFilter string

const (
	ArchiveFilterActive   ArchiveFilter = "active"
	ArchiveFilterArchived ArchiveFilter = "archived"
	ArchiveFilterAll      ArchiveFilter = "all"
)

// ParseArchiveFilter maps a query-string value to a filter, defaulting to
// active for anything unrecognized.
func ParseArchiveFilter(s string) ArchiveFilter {
	switch ArchiveFilter(s) {
	case ArchiveFilterArchived:
		return ArchiveFilterArchived
	case ArchiveFilterAll:
		return ArchiveFilterAll
	}
	return ArchiveFilterActive
}
