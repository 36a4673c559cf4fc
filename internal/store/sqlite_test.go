package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyship/reviewreply/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	err := s.Migrate(context.Background())
	assert.NoError(t, err)
}

// --- Options ---

func TestOptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOption(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetOption(ctx, "greeting", "hello"))
	got, err := s.GetOption(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// Upsert overwrites
	require.NoError(t, s.SetOption(ctx, "greeting", "hi"))
	got, err = s.GetOption(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

// --- Products ---

func TestProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Product{Title: "Ceramic Mug"}
	require.NoError(t, s.CreateProduct(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ceramic Mug", got.Title)

	require.NoError(t, s.CreateProduct(ctx, &models.Product{Title: "Teapot"}))
	all, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ceramic Mug", all[0].Title)
	assert.Equal(t, "Teapot", all[1].Title)

	_, err = s.GetProduct(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Comments ---

func TestComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Product{Title: "Ceramic Mug"}
	require.NoError(t, s.CreateProduct(ctx, p))

	review := &models.Comment{
		ProductID: p.ID,
		Author:    "Jane",
		Content:   "Lovely mug",
		Type:      models.CommentTypeReview,
		Rating:    intPtr(5),
	}
	require.NoError(t, s.CreateComment(ctx, review))
	assert.NotZero(t, review.ID)

	got, err := s.GetComment(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Author)
	assert.Equal(t, models.CommentTypeReview, got.Type)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 5, *got.Rating)
	assert.True(t, got.IsReview())

	reply := &models.Comment{ProductID: p.ID, ParentID: review.ID, Author: "Shop", Content: "Thank you!"}
	require.NoError(t, s.CreateComment(ctx, reply))

	gotReply, err := s.GetComment(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommentTypeComment, gotReply.Type, "type defaults to comment")
	assert.Nil(t, gotReply.Rating)
	assert.False(t, gotReply.IsReview())

	_, err = s.GetComment(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListComments_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mug := &models.Product{Title: "Mug"}
	pot := &models.Product{Title: "Pot"}
	require.NoError(t, s.CreateProduct(ctx, mug))
	require.NoError(t, s.CreateProduct(ctx, pot))

	r1 := &models.Comment{ProductID: mug.ID, Author: "A", Content: "one", Type: models.CommentTypeReview, Rating: intPtr(4)}
	r2 := &models.Comment{ProductID: pot.ID, Author: "B", Content: "two", Type: models.CommentTypeReview}
	require.NoError(t, s.CreateComment(ctx, r1))
	require.NoError(t, s.CreateComment(ctx, r2))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{ProductID: mug.ID, ParentID: r1.ID, Author: "Shop", Content: "thanks"}))

	all, err := s.ListComments(ctx, CommentListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	reviews, err := s.ListComments(ctx, CommentListFilter{Type: models.CommentTypeReview})
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	mugComments, err := s.ListComments(ctx, CommentListFilter{ProductID: mug.ID})
	require.NoError(t, err)
	assert.Len(t, mugComments, 2)

	replies, err := s.ListComments(ctx, CommentListFilter{ParentID: r1.ID})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "thanks", replies[0].Content)

	limited, err := s.ListComments(ctx, CommentListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCreateComment_UnknownProduct(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateComment(context.Background(), &models.Comment{ProductID: 42, Content: "orphan"})
	assert.Error(t, err, "foreign key should reject unknown product")
}
