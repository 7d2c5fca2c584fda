package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// ErrPrincipalNotFound is returned for operations on an unregistered
// principal. It wraps xrealm.ErrNotFound so the engine treats the condition
// as "no entries" rather than a storage failure.
var ErrPrincipalNotFound = fmt.Errorf("principal not found: %w", xrealm.ErrNotFound)

// ErrAttributeNotFound is returned when deleting an attribute that does not
// exist. It wraps xrealm.ErrNotFound for the same reason.
var ErrAttributeNotFound = fmt.Errorf("attribute not found: %w", xrealm.ErrNotFound)

// Principal is a registered principal record.
type Principal struct {
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Attribute is one string attribute on a principal. For authorization
// entries only the key carries meaning; the value is kept for tooling
// compatibility and is usually empty.
type Attribute struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// AddPrincipal registers a principal by canonical name.
func (s *Store) AddPrincipal(name string) error {
	_, err := s.db.Exec(`INSERT INTO principals (name) VALUES (?)`, name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("principal '%s' already exists", name)
		}
		return fmt.Errorf("failed to add principal: %w", err)
	}
	return nil
}

// GetPrincipal retrieves a principal record by name.
func (s *Store) GetPrincipal(name string) (*Principal, error) {
	row := s.db.QueryRow(`SELECT name, created_at FROM principals WHERE name = ?`, name)

	var p Principal
	var createdAt int64
	err := row.Scan(&p.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan principal: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// ListPrincipals returns all registered principals ordered by name.
func (s *Store) ListPrincipals() ([]*Principal, error) {
	rows, err := s.db.Query(`SELECT name, created_at FROM principals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*Principal
	for rows.Next() {
		var p Principal
		var createdAt int64
		if err := rows.Scan(&p.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		principals = append(principals, &p)
	}
	return principals, rows.Err()
}

// RemovePrincipal deletes a principal and, through the foreign key cascade,
// all of its attributes.
func (s *Store) RemovePrincipal(name string) error {
	result, err := s.db.Exec(`DELETE FROM principals WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove principal: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

// SetAttribute creates or replaces a string attribute on a principal.
// The principal must already be registered.
func (s *Store) SetAttribute(principal, key, value string) error {
	if key == "" {
		return fmt.Errorf("attribute key must not be empty")
	}
	if _, err := s.GetPrincipal(principal); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT INTO principal_attributes (principal, attr_key, attr_value) VALUES (?, ?, ?)
		 ON CONFLICT (principal, attr_key) DO UPDATE SET attr_value = excluded.attr_value`,
		principal, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set attribute: %w", err)
	}
	return nil
}

// DeleteAttribute removes one attribute from a principal.
func (s *Store) DeleteAttribute(principal, key string) error {
	result, err := s.db.Exec(
		`DELETE FROM principal_attributes WHERE principal = ? AND attr_key = ?`,
		principal, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete attribute: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAttributeNotFound
	}
	return nil
}

// AttributeKeys returns the current attribute key set of a principal.
// Returns ErrPrincipalNotFound for an unregistered principal.
func (s *Store) AttributeKeys(ctx context.Context, principal string) ([]string, error) {
	if _, err := s.GetPrincipal(principal); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT attr_key FROM principal_attributes WHERE principal = ? ORDER BY attr_key`,
		principal,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ListAttributes returns key and value for every attribute on a principal.
func (s *Store) ListAttributes(principal string) ([]Attribute, error) {
	if _, err := s.GetPrincipal(principal); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT attr_key, attr_value FROM principal_attributes WHERE principal = ? ORDER BY attr_key`,
		principal,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	var attrs []Attribute
	for rows.Next() {
		var a Attribute
		if err := rows.Scan(&a.Key, &a.Value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// GetAttributes implements xrealm.AttributeSource: the engine reads the
// current key set of a trust edge principal on every decision.
func (s *Store) GetAttributes(ctx context.Context, principal xrealm.Principal) ([]string, error) {
	return s.AttributeKeys(ctx, principal.String())
}
