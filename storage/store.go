package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	role       TEXT NOT NULL DEFAULT 'CLIENT',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contracts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	owner_id   INTEGER NOT NULL REFERENCES users(id),
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_contracts_owner ON contracts(owner_id);
`

// Store persists contracts and users in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing database handle. The schema must already
// be in place.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateContract inserts a new contract row and returns its id.
func (s *Store) CreateContract(ctx context.Context, content string, ownerID int64, title string, status ContractStatus) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("invalid contract status: %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contracts (title, content, owner_id, status) VALUES (?, ?, ?, ?)`,
		title, content, ownerID, string(status))
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contract id: %w", err)
	}
	return id, nil
}

// UpdateContractAnalysis rewrites a contract's content and status in place.
// The row is updated, never re-inserted.
func (s *Store) UpdateContractAnalysis(ctx context.Context, id int64, content string, status ContractStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid contract status: %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET content = ?, status = ? WHERE id = ?`,
		content, string(status), id)
	if err != nil {
		return fmt.Errorf("update contract %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("contract %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetContract fetches a contract by id.
func (s *Store) GetContract(ctx context.Context, id int64) (*Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, owner_id, status, created_at FROM contracts WHERE id = ?`, id)

	c := &Contract{}
	var status string
	var createdAt time.Time
	err := row.Scan(&c.ID, &c.Title, &c.Content, &c.OwnerID, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan contract: %w", err)
	}
	c.Status = ContractStatus(status)
	c.CreatedAt = createdAt
	return c, nil
}

// CountContractsByOwner returns the number of contracts owned by a user.
func (s *Store) CountContractsByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contracts WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contracts: %w", err)
	}
	return n, nil
}

// CreateUser inserts a new user and returns it with the assigned id.
func (s *Store) CreateUser(ctx context.Context, name, email, role string) (*User, error) {
	if role == "" {
		role = RoleClient
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, role) VALUES (?, ?, ?)`,
		name, email, role)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return s.FindUserByID(ctx, id)
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id)

	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
