package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/tinyship/reviewreply/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection
	// serializes access from concurrent HTTP handlers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(log.New(io.Discard, "", 0))

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Options ---

func (s *SQLiteStore) GetOption(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM options WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("option %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get option: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetOption(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO options (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set option: %w", err)
	}
	return nil
}

// --- Products ---

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO products (title, created_at) VALUES (?, ?)",
		p.Title, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	return nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Title, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, created_at FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- Comments ---

const commentColumns = "id, product_id, parent_id, author, content, type, rating, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	c := &models.Comment{}
	var commentType string
	var rating sql.NullInt64
	if err := row.Scan(&c.ID, &c.ProductID, &c.ParentID, &c.Author, &c.Content, &commentType, &rating, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Type = models.CommentType(commentType)
	if rating.Valid {
		r := int(rating.Int64)
		c.Rating = &r
	}
	return c, nil
}

func (s *SQLiteStore) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.Type == "" {
		c.Type = models.CommentTypeComment
	}
	c.CreatedAt = time.Now().UTC()

	var rating sql.NullInt64
	if c.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*c.Rating), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (product_id, parent_id, author, content, type, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ProductID, c.ParentID, c.Author, c.Content, string(c.Type), rating, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments"
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.ProductID != 0 {
		conditions = append(conditions, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.ParentID != 0 {
		conditions = append(conditions, "parent_id = ?")
		args = append(args, filter.ParentID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
