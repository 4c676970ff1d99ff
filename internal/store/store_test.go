package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := Open("file::memory:")
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestResumesCreateAndFind(t *testing.T) {
	db := newTestDB(t)
	resumes := NewResumes(db)
	ctx := context.Background()

	r := &Resume{
		UserID:     "user-1",
		Title:      "My Resume",
		Slug:       "my-resume",
		Data:       json.RawMessage(`{"summary":"hi"}`),
		Template:   "modern",
		Visibility: VisibilityPrivate,
	}
	require.NoError(t, resumes.Create(ctx, r))
	require.NotEmpty(t, r.ID)
	require.False(t, r.CreatedAt.IsZero())

	got, err := resumes.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Resume", got.Title)
	assert.Equal(t, "my-resume", got.Slug)

	_, err = resumes.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResumesSlugUnique(t *testing.T) {
	db := newTestDB(t)
	resumes := NewResumes(db)
	ctx := context.Background()

	first := &Resume{UserID: "user-1", Title: "T", Slug: "taken", Template: "modern", Visibility: VisibilityPrivate}
	require.NoError(t, resumes.Create(ctx, first))

	dup := &Resume{UserID: "user-2", Title: "T", Slug: "taken", Template: "modern", Visibility: VisibilityPrivate}
	err := resumes.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrSlugTaken)

	taken, err := resumes.SlugExists(ctx, "taken", "")
	require.NoError(t, err)
	assert.True(t, taken)

	// The owning row is excluded when checking a rename against itself.
	taken, err = resumes.SlugExists(ctx, "taken", first.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestResumesPublicBySlug(t *testing.T) {
	db := newTestDB(t)
	resumes := NewResumes(db)
	ctx := context.Background()

	private := &Resume{UserID: "u", Title: "P", Slug: "hidden", Template: "modern", Visibility: VisibilityPrivate}
	require.NoError(t, resumes.Create(ctx, private))

	_, err := resumes.FindPublicBySlug(ctx, "hidden")
	assert.ErrorIs(t, err, ErrNotFound, "private resumes must not resolve publicly")

	private.Visibility = VisibilityPublic
	require.NoError(t, resumes.Update(ctx, private))

	got, err := resumes.FindPublicBySlug(ctx, "hidden")
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)
}

func TestResumesListByUser(t *testing.T) {
	db := newTestDB(t)
	resumes := NewResumes(db)
	ctx := context.Background()

	require.NoError(t, resumes.Create(ctx, &Resume{UserID: "u1", Title: "A", Slug: "a", Template: "m", Visibility: VisibilityPrivate}))
	require.NoError(t, resumes.Create(ctx, &Resume{UserID: "u1", Title: "B", Slug: "b", Template: "m", Visibility: VisibilityPrivate}))
	require.NoError(t, resumes.Create(ctx, &Resume{UserID: "u2", Title: "C", Slug: "c", Template: "m", Visibility: VisibilityPrivate}))

	list, err := resumes.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := resumes.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestResumesDelete(t *testing.T) {
	db := newTestDB(t)
	resumes := NewResumes(db)
	ctx := context.Background()

	r := &Resume{UserID: "u", Title: "D", Slug: "d", Template: "m", Visibility: VisibilityPrivate}
	require.NoError(t, resumes.Create(ctx, r))
	require.NoError(t, resumes.Delete(ctx, r.ID))

	_, err := resumes.FindByID(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsersEnsureIdempotent(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	u1, err := users.Ensure(ctx, "ext-1", "a@example.com", "A")
	require.NoError(t, err)

	u2, err := users.Ensure(ctx, "ext-1", "other@example.com", "Other")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID, "second Ensure must return the same account")
	assert.Equal(t, "a@example.com", u2.Email)
}

func TestAdjustCreditsLedger(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	_, err := users.Ensure(ctx, "ext-1", "a@example.com", "A")
	require.NoError(t, err)

	require.NoError(t, users.AdjustCredits(ctx, "ext-1", 10, "purchase", "stripe-checkout"))
	require.NoError(t, users.AdjustCredits(ctx, "ext-1", -1, "spend", "chat-with-ai-cost"))

	u, err := users.FindByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.EqualValues(t, 9, u.CreditBalance)

	history, err := users.CreditHistory(ctx, "ext-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Most recent first.
	assert.EqualValues(t, -1, history[0].Amount)
	assert.Equal(t, "spend", history[0].Type)
}

func TestAdjustCreditsOverdraw(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	_, err := users.Ensure(ctx, "ext-1", "", "")
	require.NoError(t, err)
	require.NoError(t, users.AdjustCredits(ctx, "ext-1", 2, "purchase", "test"))

	err = users.AdjustCredits(ctx, "ext-1", -5, "spend", "test")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// The failed spend must leave no trace: balance and ledger unchanged.
	u, err := users.FindByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.CreditBalance)

	history, err := users.CreditHistory(ctx, "ext-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAdjustCreditsUnknownUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)

	err := users.AdjustCredits(context.Background(), "ghost", -1, "spend", "test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInteractionsLogAndList(t *testing.T) {
	db := newTestDB(t)
	interactions := NewInteractions(db)
	ctx := context.Background()

	require.NoError(t, interactions.Log(ctx, &AIInteraction{
		UserID: "u1", ResumeID: "r1", Section: "chat", Prompt: "q", Response: "a",
	}))
	require.NoError(t, interactions.Log(ctx, &AIInteraction{
		UserID: "u1", ResumeID: "r2", Section: "enhance", Prompt: "doc", Response: "better doc",
	}))

	byUser, err := interactions.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byResume, err := interactions.ListByResume(ctx, "r2", 10)
	require.NoError(t, err)
	require.Len(t, byResume, 1)
	assert.Equal(t, "enhance", byResume[0].Section)
}
