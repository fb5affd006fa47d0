// Package transfers is the access façade over the transfer engine: it loads
// current state, runs the pure decision logic, and persists the outcome.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"transfertrack/internal/engine"
	"transfertrack/internal/storage"
	"transfertrack/internal/store"
	"transfertrack/internal/utils"
	"transfertrack/pkg/types"
)

type TransferStore interface {
	Create(ctx context.Context, transfer *types.Transfer) error
	Transfer(ctx context.Context, transferID string) (*types.TransferRow, error)
	TransferByPath(ctx context.Context, pdfPath string) (*types.TransferRow, error)
	List(ctx context.Context, filter store.TransferFilter) ([]types.TransferRow, error)
	Update(ctx context.Context, transfer *types.Transfer) error
	MarkViewed(ctx context.Context, transferID string, at time.Time) error
	Delete(ctx context.Context, transferID string) error
}

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	Locations(ctx context.Context, excludeUserID string) ([]types.UserRef, error)
}

type Service struct {
	logger    *logrus.Logger
	transfers TransferStore
	users     UserStore

	// s3 is nil when no bucket is configured; local always exists and doubles
	// as the fallback target when an S3 put fails.
	s3    storage.BlobStore
	local storage.BlobStore

	now func() time.Time
}

func NewService(logger *logrus.Logger, transfers TransferStore, users UserStore, s3, local storage.BlobStore) *Service {
	return &Service{
		logger:    logger,
		transfers: transfers,
		users:     users,
		s3:        s3,
		local:     local,
		now:       time.Now,
	}
}

// CreateTransfer stores the PDF bytes and records a new pending transfer.
// For sends the initiator is the from side; for requests the selected
// location is, since that location is the one being asked to fulfill.
func (s *Service) CreateTransfer(
	ctx context.Context,
	initiator types.Principal,
	transferType types.TransferType,
	otherLocationID string,
	fileName string,
	data []byte,
) (*types.TransferRow, error) {
	if transferType != types.TransferTypeSend && transferType != types.TransferTypeRequest {
		return nil, types.NewValidationError("transferType", fmt.Sprintf("unknown transfer type %q", transferType))
	}

	if otherLocationID == "" {
		return nil, types.NewValidationError("locationId", "location is required")
	}

	other, err := s.users.User(ctx, otherLocationID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, types.NewValidationError("locationId", "unknown location")
		}
		return nil, fmt.Errorf("failed to verify location: %w", err)
	}

	now := s.now()
	storedName := fmt.Sprintf("transfer_%d_%s.pdf", now.UnixMilli(), utils.NanoIDSize(7))

	key, err := s.putBlob(ctx, storedName, data)
	if err != nil {
		return nil, err
	}

	fromUserID, toUserID := initiator.ID, other.ID
	if transferType == types.TransferTypeRequest {
		fromUserID, toUserID = other.ID, initiator.ID
	}

	transfer := &types.Transfer{
		ID:              utils.NanoID(),
		FromUserID:      fromUserID,
		ToUserID:        toUserID,
		TransferType:    transferType,
		PDFFileName:     fileName,
		PDFPath:         key,
		Status:          types.StatusPending,
		StatusUpdatedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}

	return s.transfers.Transfer(ctx, transfer.ID)
}

// putBlob prefers S3, falling back to local disk when the put fails, as the
// reference deployment did.
func (s *Service) putBlob(ctx context.Context, name string, data []byte) (string, error) {
	if s.s3 != nil {
		key, err := s.s3.Put(ctx, name, data)
		if err == nil {
			return key, nil
		}
		s.logger.WithError(err).Warn("s3 upload failed, falling back to local storage")
	}

	key, err := s.local.Put(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return key, nil
}

func (s *Service) blobStoreFor(key string) (storage.BlobStore, error) {
	if storage.IsS3Key(key) {
		if s.s3 == nil {
			return nil, fmt.Errorf("transfer references s3 key %s but s3 is not configured", key)
		}
		return s.s3, nil
	}
	return s.local, nil
}

// GetTransfer returns the transfer when the principal may read it, marking
// it viewed as a side effect where the notification rule applies. When the
// viewed-flag persist fails, the read still succeeds with the unmarked
// record.
func (s *Service) GetTransfer(ctx context.Context, p types.Principal, transferID string) (*types.TransferRow, error) {
	row, err := s.transfers.Transfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if !engine.CanRead(p, row.Transfer) {
		return nil, types.ErrAccessDenied
	}

	if engine.ShouldMarkViewed(p, row.Transfer) {
		now := s.now()
		if err := s.transfers.MarkViewed(ctx, transferID, now); err != nil {
			s.logger.WithError(err).WithField("transfer_id", transferID).Warn("failed to mark transfer viewed")
			return row, nil
		}
		row.ViewedByRecipient = true
		row.ViewedByRecipientAt = &now
	}

	return row, nil
}

// UpdateTransfer validates and authorizes the change set, merges it, reruns
// the archive derivation over the result, and persists the whole row.
func (s *Service) UpdateTransfer(ctx context.Context, p types.Principal, transferID string, changes types.TransferChanges) (*types.TransferRow, error) {
	if err := engine.Validate(changes); err != nil {
		return nil, err
	}

	row, err := s.transfers.Transfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	// Non-participants get denied outright; an ineffective change set must
	// not hand them the row.
	if !engine.CanRead(p, row.Transfer) {
		return nil, types.ErrAccessDenied
	}

	if err := engine.Authorize(p, row.Transfer, changes); err != nil {
		return nil, err
	}

	if changes.Empty() {
		return row, nil
	}

	now := s.now()
	merged := engine.ApplyChanges(row.Transfer, changes, now)
	merged = engine.DeriveArchive(merged, now)

	if err := s.transfers.Update(ctx, &merged); err != nil {
		return nil, err
	}

	row.Transfer = merged
	return row, nil
}

// DeleteTransfer removes the record and its stored blob. Blob deletion is
// best-effort: a storage failure is logged and the row is deleted anyway.
func (s *Service) DeleteTransfer(ctx context.Context, p types.Principal, transferID string) error {
	if !engine.CanDelete(p) {
		return types.AccessDenied("only administrators can delete transfers")
	}

	row, err := s.transfers.Transfer(ctx, transferID)
	if err != nil {
		return err
	}

	if blobs, err := s.blobStoreFor(row.PDFPath); err != nil {
		s.logger.WithError(err).WithField("transfer_id", transferID).Warn("could not resolve blob store for delete")
	} else if err := blobs.Delete(ctx, row.PDFPath); err != nil {
		s.logger.WithError(err).WithField("transfer_id", transferID).Warn("could not delete transfer blob")
	}

	return s.transfers.Delete(ctx, transferID)
}

// ListTransfers returns the transfers visible to the principal under the
// archive filter, newest first. Non-admins only ever see transfers they
// participate in.
func (s *Service) ListTransfers(ctx context.Context, p types.Principal, filter types.ArchiveFilter) ([]types.TransferRow, error) {
	storeFilter := store.TransferFilter{}
	if !p.IsAdmin {
		storeFilter.UserID = p.ID
	}

	switch filter {
	case types.ArchiveFilterArchived:
		storeFilter.Archived = utils.BoolPtr(true)
	case types.ArchiveFilterAll:
		// no archive predicate
	default:
		storeFilter.Archived = utils.BoolPtr(false)
	}

	return s.transfers.List(ctx, storeFilter)
}

// ListLocations returns the locations a user can pick as the other side of a
// transfer.
func (s *Service) ListLocations(ctx context.Context, excludeUserID string) ([]types.UserRef, error) {
	return s.users.Locations(ctx, excludeUserID)
}

// OpenBlob fetches the stored PDF for the transfer owning the given key,
// gated on read access to that transfer.
func (s *Service) OpenBlob(ctx context.Context, p types.Principal, key string) ([]byte, *types.TransferRow, error) {
	row, err := s.transfers.TransferByPath(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	if !engine.CanRead(p, row.Transfer) {
		return nil, nil, types.ErrAccessDenied
	}

	blobs, err := s.blobStoreFor(row.PDFPath)
	if err != nil {
		return nil, nil, err
	}

	data, err := blobs.Get(ctx, row.PDFPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read transfer blob: %w", err)
	}

	return data, row, nil
}
