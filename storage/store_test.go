package storage_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contratai/contratai/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndFindUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Maria", "maria@example.com", storage.RoleLawyer)
	require.NoError(t, err)
	assert.Greater(t, user.ID, int64(0))
	assert.Equal(t, "Maria", user.Name)
	assert.Equal(t, storage.RoleLawyer, user.Role)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := store.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
}

func TestCreateUser_DefaultRole(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser(context.Background(), "João", "joao@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, storage.RoleClient, user.Role)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "A", "dup@example.com", "")
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "B", "dup@example.com", "")
	require.Error(t, err)
}

func TestFindUserByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindUserByID(context.Background(), 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContractLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Ana", "ana@example.com", "")
	require.NoError(t, err)

	id, err := store.CreateContract(ctx, "Cláusula 1...", user.ID, "Contrato para Análise", storage.StatusPending)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	pending, err := store.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusPending, pending.Status)
	assert.Equal(t, "Cláusula 1...", pending.Content)
	assert.Equal(t, user.ID, pending.OwnerID)

	analyzed := "Cláusula 1...\n\n=== ANÁLISE ===\nRisco: ..."
	require.NoError(t, store.UpdateContractAnalysis(ctx, id, analyzed, storage.StatusAnalyzed))

	// Same row mutated in place, not re-inserted.
	got, err := store.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusAnalyzed, got.Status)
	assert.True(t, strings.HasSuffix(got.Content, "Risco: ..."))

	count, err := store.CountContractsByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateContractAnalysis_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateContractAnalysis(context.Background(), 12345, "content", storage.StatusAnalyzed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateContract_InvalidStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Ana", "ana2@example.com", "")
	require.NoError(t, err)

	_, err = store.CreateContract(ctx, "text", user.ID, "title", storage.ContractStatus("BOGUS"))
	require.Error(t, err)
}

func TestContractStatus_Valid(t *testing.T) {
	assert.True(t, storage.StatusPending.Valid())
	assert.True(t, storage.StatusAnalyzed.Valid())
	assert.True(t, storage.StatusCritical.Valid())
	assert.False(t, storage.ContractStatus("").Valid())
	assert.False(t, storage.ContractStatus("pending").Valid())
}
