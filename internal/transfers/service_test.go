package transfers

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfertrack/internal/store"
	"transfertrack/internal/utils"
	"transfertrack/pkg/types"
)

// --- fakes ---

type fakeTransferStore struct {
	rows map[string]*types.TransferRow

	markViewedErr error
	updateErr     error
	deleted       []string
}

func newFakeTransferStore() *fakeTransferStore {
	return &fakeTransferStore{rows: make(map[string]*types.TransferRow)}
}

func (f *fakeTransferStore) Create(_ context.Context, t *types.Transfer) error {
	f.rows[t.ID] = &types.TransferRow{Transfer: *t}
	return nil
}

func (f *fakeTransferStore) Transfer(_ context.Context, id string) (*types.TransferRow, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, types.ErrTransferNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeTransferStore) TransferByPath(_ context.Context, path string) (*types.TransferRow, error) {
	for _, row := range f.rows {
		if row.PDFPath == path {
			copied := *row
			return &copied, nil
		}
	}
	return nil, types.ErrTransferNotFound
}

func (f *fakeTransferStore) List(_ context.Context, filter store.TransferFilter) ([]types.TransferRow, error) {
	var out []types.TransferRow
	for _, row := range f.rows {
		if filter.UserID != "" && row.FromUserID != filter.UserID && row.ToUserID != filter.UserID {
			continue
		}
		if filter.Archived != nil && row.Archived != *filter.Archived {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTransferStore) Update(_ context.Context, t *types.Transfer) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	row, ok := f.rows[t.ID]
	if !ok {
		return types.ErrTransferNotFound
	}
	row.Transfer = *t
	return nil
}

func (f *fakeTransferStore) MarkViewed(_ context.Context, id string, at time.Time) error {
	if f.markViewedErr != nil {
		return f.markViewedErr
	}
	row, ok := f.rows[id]
	if !ok {
		return types.ErrTransferNotFound
	}
	row.ViewedByRecipient = true
	row.ViewedByRecipientAt = &at
	return nil
}

func (f *fakeTransferStore) Delete(_ context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return types.ErrTransferNotFound
	}
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUserStore struct {
	users map[string]*types.User
}

func (f *fakeUserStore) User(_ context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Locations(_ context.Context, exclude string) ([]types.UserRef, error) {
	var out []types.UserRef
	for _, u := range f.users {
		if u.ID == exclude || u.IsAdmin {
			continue
		}
		out = append(out, types.UserRef{ID: u.ID, Username: u.Username, Location: u.Location})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

type fakeBlobStore struct {
	blobs  map[string][]byte
	prefix string

	putErr error
}

func newFakeBlobStore(prefix string) *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte), prefix: prefix}
}

func (f *fakeBlobStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	key := f.prefix + name
	f.blobs[key] = data
	return key, nil
}

func (f *fakeBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	if _, ok := f.blobs[key]; !ok {
		return errors.New("blob not found")
	}
	delete(f.blobs, key)
	return nil
}

// --- helpers ---

var (
	alice = types.Principal{ID: "alice"}
	bob   = types.Principal{ID: "bob"}
	root  = types.Principal{ID: "root", IsAdmin: true}
)

func newTestService(t *testing.T) (*Service, *fakeTransferStore, *fakeBlobStore) {
	t.Helper()

	transfers := newFakeTransferStore()
	users := &fakeUserStore{users: map[string]*types.User{
		"alice": {ID: "alice", Username: "location1", Location: "Streator"},
		"bob":   {ID: "bob", Username: "location2", Location: "Bradley"},
		"carol": {ID: "carol", Username: "location3", Location: "Bloomington"},
		"root":  {ID: "root", Username: "admin", Location: "Admin", IsAdmin: true},
	}}
	local := newFakeBlobStore("/uploads/")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := NewService(logger, transfers, users, nil, local)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return svc, transfers, local
}

func mustCreate(t *testing.T, svc *Service, initiator types.Principal, tt types.TransferType, other string) *types.TransferRow {
	t.Helper()
	row, err := svc.CreateTransfer(context.Background(), initiator, tt, other, "scan.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	return row
}

// --- tests ---

func TestCreateTransferMapsEndpoints(t *testing.T) {
	svc, _, blobs := newTestService(t)

	send := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")
	assert.Equal(t, "alice", send.FromUserID)
	assert.Equal(t, "bob", send.ToUserID)
	assert.Equal(t, types.StatusPending, send.Status)
	require.NotNil(t, send.StatusUpdatedAt)
	assert.Contains(t, blobs.blobs, send.PDFPath)
	assert.Equal(t, "scan.pdf", send.PDFFileName)

	// bob requests from alice: alice is the fulfilling (from) side
	request := mustCreate(t, svc, bob, types.TransferTypeRequest, "alice")
	assert.Equal(t, "alice", request.FromUserID)
	assert.Equal(t, "bob", request.ToUserID)
}

func TestCreateTransferValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTransfer(ctx, alice, "loan", "bob", "a.pdf", nil)
	assert.True(t, types.IsValidation(err))

	_, err = svc.CreateTransfer(ctx, alice, types.TransferTypeSend, "", "a.pdf", nil)
	assert.True(t, types.IsValidation(err))

	_, err = svc.CreateTransfer(ctx, alice, types.TransferTypeSend, "ghost", "a.pdf", nil)
	assert.True(t, types.IsValidation(err))
}

func TestCreateTransferFallsBackToLocal(t *testing.T) {
	svc, _, local := newTestService(t)

	s3 := newFakeBlobStore("s3://transfers/")
	s3.putErr = errors.New("no such bucket")
	svc.s3 = s3

	row := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")
	assert.Contains(t, local.blobs, row.PDFPath)
}

func TestGetTransferMarksViewedOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	first, err := svc.GetTransfer(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.True(t, first.ViewedByRecipient)
	require.NotNil(t, first.ViewedByRecipientAt)
	firstAt := *first.ViewedByRecipientAt

	second, err := svc.GetTransfer(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.True(t, second.ViewedByRecipient)
	assert.Equal(t, firstAt, *second.ViewedByRecipientAt)
}

func TestGetTransferViewedPersistFailureStillReads(t *testing.T) {
	svc, transfers, _ := newTestService(t)
	transfers.markViewedErr = errors.New("connection reset")

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	row, err := svc.GetTransfer(context.Background(), bob, created.ID)
	require.NoError(t, err)
	assert.False(t, row.ViewedByRecipient)
}

func TestGetTransferAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	_, err := svc.GetTransfer(ctx, types.Principal{ID: "carol"}, created.ID)
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	_, err = svc.GetTransfer(ctx, root, created.ID)
	assert.NoError(t, err)

	_, err = svc.GetTransfer(ctx, alice, "missing")
	assert.ErrorIs(t, err, types.ErrTransferNotFound)
}

func TestUpdateTransferArchivesAndUnarchives(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	fulfilled := types.StatusFulfilled
	row, err := svc.UpdateTransfer(ctx, alice, created.ID, types.TransferChanges{Status: &fulfilled})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFulfilled, row.Status)
	assert.False(t, row.Archived)

	row, err = svc.UpdateTransfer(ctx, bob, created.ID, types.TransferChanges{
		ReceivedAtDestination: utils.BoolPtr(true),
		EnteredIntoSystem:     utils.BoolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, row.Archived)
	require.NotNil(t, row.ArchivedAt)

	row, err = svc.UpdateTransfer(ctx, bob, created.ID, types.TransferChanges{
		ReceivedAtDestination: utils.BoolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, row.Archived)
	assert.Nil(t, row.ArchivedAt)
}

func TestUpdateTransferDeniesWrongParty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	acked := types.StatusAcknowledged
	_, err := svc.UpdateTransfer(ctx, bob, created.ID, types.TransferChanges{Status: &acked})
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	// the denied update must not be applied
	row, err := svc.GetTransfer(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, row.Status)
}

func TestUpdateTransferDeniesNonParticipants(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")
	carol := types.Principal{ID: "carol"}

	// An empty change set must not hand a stranger the row.
	row, err := svc.UpdateTransfer(ctx, carol, created.ID, types.TransferChanges{})
	assert.ErrorIs(t, err, types.ErrAccessDenied)
	assert.Nil(t, row)

	// Neither must a status resend that matches the current value.
	pending := types.StatusPending
	row, err = svc.UpdateTransfer(ctx, carol, created.ID, types.TransferChanges{Status: &pending})
	assert.ErrorIs(t, err, types.ErrAccessDenied)
	assert.Nil(t, row)

	// Nothing was persisted by the denied calls.
	after, err := svc.GetTransfer(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, after.UpdatedAt)
}

func TestUpdateTransferRejectsBadStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	bogus := types.TransferStatus("shipped")
	_, err := svc.UpdateTransfer(context.Background(), alice, created.ID, types.TransferChanges{Status: &bogus})
	assert.True(t, types.IsValidation(err))
}

func TestDeleteTransfer(t *testing.T) {
	svc, transfers, blobs := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	err := svc.DeleteTransfer(ctx, alice, created.ID)
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	require.NoError(t, svc.DeleteTransfer(ctx, root, created.ID))
	assert.Equal(t, []string{created.ID}, transfers.deleted)
	assert.NotContains(t, blobs.blobs, created.PDFPath)

	err = svc.DeleteTransfer(ctx, root, created.ID)
	assert.ErrorIs(t, err, types.ErrTransferNotFound)
}

func TestDeleteTransferSurvivesBlobFailure(t *testing.T) {
	svc, transfers, blobs := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")
	delete(blobs.blobs, created.PDFPath) // blob already gone

	require.NoError(t, svc.DeleteTransfer(ctx, root, created.ID))
	assert.Equal(t, []string{created.ID}, transfers.deleted)
}

func TestListTransfersScopingAndArchiveFilter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ab := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")
	mustCreate(t, svc, bob, types.TransferTypeSend, "carol")

	// archive the alice->bob transfer
	fulfilled := types.StatusFulfilled
	_, err := svc.UpdateTransfer(ctx, alice, ab.ID, types.TransferChanges{Status: &fulfilled})
	require.NoError(t, err)
	_, err = svc.UpdateTransfer(ctx, bob, ab.ID, types.TransferChanges{
		ReceivedAtDestination: utils.BoolPtr(true),
		EnteredIntoSystem:     utils.BoolPtr(true),
	})
	require.NoError(t, err)

	active, err := svc.ListTransfers(ctx, alice, types.ArchiveFilterActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	archived, err := svc.ListTransfers(ctx, alice, types.ArchiveFilterArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, ab.ID, archived[0].ID)

	all, err := svc.ListTransfers(ctx, alice, types.ArchiveFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 1) // alice only participates in one transfer

	adminAll, err := svc.ListTransfers(ctx, root, types.ArchiveFilterAll)
	require.NoError(t, err)
	assert.Len(t, adminAll, 2)
}

func TestListLocationsExcludesCallerAndAdmins(t *testing.T) {
	svc, _, _ := newTestService(t)

	locations, err := svc.ListLocations(context.Background(), "alice")
	require.NoError(t, err)

	ids := make([]string, 0, len(locations))
	for _, l := range locations {
		ids = append(ids, l.ID)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, ids)
}

func TestOpenBlob(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, alice, types.TransferTypeSend, "bob")

	data, row, err := svc.OpenBlob(ctx, bob, created.PDFPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
	assert.Equal(t, created.ID, row.ID)

	_, _, err = svc.OpenBlob(ctx, types.Principal{ID: "carol"}, created.PDFPath)
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	_, _, err = svc.OpenBlob(ctx, bob, "/uploads/nothere.pdf")
	assert.ErrorIs(t, err, types.ErrTransferNotFound)
}
