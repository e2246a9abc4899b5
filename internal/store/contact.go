package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/contactbook/internal/model"
)

// ContactStore persists contacts. Every query is scoped to an owner, so a
// contact belonging to another account reads as missing.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func scanContact(scanner interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	var favorite int

	err := scanner.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone,
		&favorite, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Favorite = favorite != 0
	return &c, nil
}

const contactCols = `id, owner_id, name, email, phone, favorite, created_at, updated_at`

func (s *ContactStore) Create(ctx context.Context, ownerID string, in model.ContactInput) (*model.Contact, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactCols+`) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, ownerID, in.Name, in.Email, in.Phone, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return s.GetByID(ctx, ownerID, id)
}

func (s *ContactStore) GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// List returns the owner's contacts in creation order, paged by the filter.
func (s *ContactStore) List(ctx context.Context, ownerID string, f model.ContactFilter) ([]model.Contact, error) {
	if f.Limit <= 0 {
		f.Limit = model.DefaultContactLimit
	}

	query := `SELECT ` + contactCols + ` FROM contacts WHERE owner_id = ?`
	args := []any{ownerID}
	if f.Favorite != nil {
		query += ` AND favorite = ?`
		args = append(args, boolInt(*f.Favorite))
	}
	query += ` ORDER BY created_at, id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// Update replaces the contact's fields. It returns nil when the owner has no such contact.
func (s *ContactStore) Update(ctx context.Context, ownerID, id string, in model.ContactInput) (*model.Contact, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		in.Name, in.Email, in.Phone, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, ownerID, id)
}

func (s *ContactStore) SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*model.Contact, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET favorite = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		boolInt(favorite), time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, ownerID, id)
}

// Delete removes the contact and reports whether it existed.
func (s *ContactStore) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
