// Package engine holds the transfer decision logic: who may write which
// fields at which lifecycle stage, how derived state (timestamps, archive,
// viewed) follows from a change, and who may read. Everything here is a pure
// function over the data model; persistence belongs to the caller.
package engine

import (
	"fmt"
	"time"

	"transfertrack/pkg/types"
)

// Validate checks the supplied change set for malformed values before any
// permission evaluation.
func Validate(changes types.TransferChanges) error {
	if changes.Status != nil && !types.ValidStatus(*changes.Status) {
		return types.NewValidationError("status", fmt.Sprintf("unknown status %q", *changes.Status))
	}

	if changes.Notes != nil && len(*changes.Notes) > types.MaxNotesLength {
		return types.NewValidationError("notes", fmt.Sprintf("too long (max %d characters)", types.MaxNotesLength))
	}

	return nil
}

// CanRead reports whether the principal may read the transfer: either
// participant, or any admin.
func CanRead(p types.Principal, t types.Transfer) bool {
	if p.IsAdmin {
		return true
	}
	return t.FromUserID == p.ID || t.ToUserID == p.ID
}

// Authorize decides whether the principal may apply the given change set to
// the transfer. The two field groups (status/notes and the fulfillment
// tracking checkboxes) are gated independently, and the whole request fails
// if any supplied group is denied.
//
// Before fulfillment every writable field belongs to the controlling party
// (FromUserID), for both transfer types. After fulfillment the tracking
// checkboxes move to the tracking party (ToUserID) while status/notes stay
// with the controlling party. Admins bypass all gates.
func Authorize(p types.Principal, t types.Transfer, changes types.TransferChanges) error {
	if p.IsAdmin {
		return nil
	}

	isController := t.FromUserID == p.ID
	isTracker := t.ToUserID == p.ID
	fulfilled := t.Status == types.StatusFulfilled

	updatingTracking := changes.ReceivedAtDestination != nil || changes.EnteredIntoSystem != nil
	updatingStatusNotes := changes.Notes != nil ||
		(changes.Status != nil && *changes.Status != t.Status)

	if !fulfilled {
		// Pre-fulfillment there is no tracking-party path: every supplied
		// field goes through the controlling-party gate.
		if (updatingTracking || updatingStatusNotes) && !isController {
			return types.AccessDenied(controllerDeniedReason(t.TransferType))
		}
		return nil
	}

	if updatingTracking && !isTracker {
		return types.AccessDenied("only the receiving location can update fulfillment tracking after the transfer is fulfilled")
	}

	if updatingStatusNotes && !isController {
		return types.AccessDenied(controllerDeniedReason(t.TransferType))
	}

	return nil
}

func controllerDeniedReason(tt types.TransferType) string {
	if tt == types.TransferTypeRequest {
		return "only the location being requested from can update this transfer"
	}
	return "only the sender can update this transfer"
}

// CanDelete reports whether the principal may delete transfers. Admin-only,
// unconditionally.
func CanDelete(p types.Principal) bool {
	return p.IsAdmin
}

// ApplyChanges merges the change set into a copy of the transfer and applies
// the timestamp rules:
//
//   - a status change stamps StatusUpdatedAt; re-sending the same status
//     leaves it alone
//   - a checkbox flipping false->true stamps its *At field; setting false
//     clears it; re-sending the same value leaves it untouched
//
// Archive state is not touched here; run DeriveArchive on the result.
func ApplyChanges(t types.Transfer, changes types.TransferChanges, now time.Time) types.Transfer {
	if changes.Status != nil && *changes.Status != t.Status {
		t.Status = *changes.Status
		t.StatusUpdatedAt = &now
	}

	if changes.Notes != nil {
		notes := *changes.Notes
		t.Notes = &notes
	}

	if changes.ReceivedAtDestination != nil {
		next := *changes.ReceivedAtDestination
		if next && !t.ReceivedAtDestination {
			t.ReceivedAtDestinationAt = &now
		} else if !next {
			t.ReceivedAtDestinationAt = nil
		}
		t.ReceivedAtDestination = next
	}

	if changes.EnteredIntoSystem != nil {
		next := *changes.EnteredIntoSystem
		if next && !t.EnteredIntoSystem {
			t.EnteredIntoSystemAt = &now
		} else if !next {
			t.EnteredIntoSystemAt = nil
		}
		t.EnteredIntoSystem = next
	}

	t.UpdatedAt = now

	return t
}

// DeriveArchive recomputes the archive flag from the transfer's current
// (post-merge) field values. A transfer is archived exactly when it is
// fulfilled, received at destination, and entered into the downstream system;
// it is unarchived as soon as any condition no longer holds. Re-running the
// derivation on a correct record is a no-op.
func DeriveArchive(t types.Transfer, now time.Time) types.Transfer {
	complete := t.Status == types.StatusFulfilled &&
		t.ReceivedAtDestination &&
		t.EnteredIntoSystem

	switch {
	case complete && !t.Archived:
		t.Archived = true
		t.ArchivedAt = &now
	case !complete && t.Archived:
		t.Archived = false
		t.ArchivedAt = nil
	}

	return t
}

// ShouldMarkViewed reports whether a read of the transfer by this principal
// clears its unread state. The party whose badge clears is the one being
// acted upon: the recipient for sends, the location being asked for requests.
// Admin reads never mark, and an already-viewed transfer stays as is.
func ShouldMarkViewed(p types.Principal, t types.Transfer) bool {
	if p.IsAdmin || t.ViewedByRecipient {
		return false
	}

	switch t.TransferType {
	case types.TransferTypeSend:
		return t.ToUserID == p.ID
	case types.TransferTypeRequest:
		return t.FromUserID == p.ID
	}

	return false
}
