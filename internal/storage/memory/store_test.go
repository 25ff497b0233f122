package memory

import (
	"context"
	"testing"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EntryOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	// Test CreateEntry
	entry := &domain.BlacklistEntry{Email: "a@example.com", Reason: "spam"}
	err := store.CreateEntry(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	// Test GetEntryByEmail
	retrieved, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, retrieved.ID)
	assert.Equal(t, "spam", retrieved.Reason)

	// Duplicate email is rejected
	err = store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com"})
	assert.ErrorIs(t, err, storage.ErrEntryExists)

	count, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Test DeleteEntryByEmail
	err = store.DeleteEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)

	_, err = store.GetEntryByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrEntryNotFound)

	err = store.DeleteEntryByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrEntryNotFound)
}

func TestMemoryStore_ListEntriesOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	emails := []string{"c@example.com", "a@example.com", "b@example.com"}
	for _, email := range emails {
		require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: email}))
	}

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, email := range emails {
		assert.Equal(t, email, entries[i].Email)
		assert.Equal(t, uint64(i+1), entries[i].ID)
	}

	again, err := store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com", Reason: "spam"}))

	entry, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	entry.Reason = "changed"

	again, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "spam", again.Reason)
}

func TestMemoryStore_ClientOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	client := &domain.APIClient{ID: "client-1", Username: "gateway", PasswordHash: "hash", IsActive: true}
	require.NoError(t, store.CreateClient(ctx, client))

	retrieved, err := store.GetClientByUsername(ctx, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "client-1", retrieved.ID)

	err = store.CreateClient(ctx, &domain.APIClient{ID: "client-2", Username: "gateway"})
	assert.ErrorIs(t, err, storage.ErrClientExists)

	_, err = store.GetClientByUsername(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrClientNotFound)

	assert.NoError(t, store.Health())
	assert.NoError(t, store.Close())
}
