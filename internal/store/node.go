// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"quire/internal/models"
)

const nodeColumns = `id, kind, name, title, slug, content, parent_type, parent_id, layout_id, created_at, updated_at`

// NodeStore handles content node persistence on PostgreSQL.
type NodeStore struct {
	db *sql.DB
}

// NewNodeStore creates a new NodeStore with the given database connection.
func NewNodeStore(db *sql.DB) *NodeStore {
	return &NodeStore{db: db}
}

// scopeClause renders the parent partition for a query. Global nodes store
// NULL in both parent columns, so they need IS NULL rather than equality.
// next is the index of the first free placeholder.
func scopeClause(scope models.Scope, next int) (string, []any) {
	if scope.IsGlobal() {
		return "parent_type IS NULL AND parent_id IS NULL", nil
	}
	clause := fmt.Sprintf("parent_type = $%d AND parent_id = $%d", next, next+1)
	return clause, []any{scope.OwnerType, scope.OwnerID}
}

// FindOne returns the node of the given kind in scope matching p, or nil
// if there is none.
func (s *NodeStore) FindOne(ctx context.Context, kind models.Kind, scope models.Scope, p Predicate) (*models.Node, error) {
	col, ok := p.Column()
	if !ok {
		return nil, fmt.Errorf("find %s: unsupported predicate %q", kind, p.Field)
	}

	where, args := scopeClause(scope, 3)
	query := `SELECT ` + nodeColumns + ` FROM content_nodes
		WHERE kind = $1 AND ` + col + ` = $2 AND ` + where + `
		LIMIT 1`

	n, err := scanNode(s.db.QueryRowContext(ctx, query, append([]any{kind, p.Value}, args...)...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", kind, col, err)
	}
	return n, nil
}

// FindMany returns every node of the given kind in scope, ordered by name.
func (s *NodeStore) FindMany(ctx context.Context, kind models.Kind, scope models.Scope) ([]models.Node, error) {
	where, args := scopeClause(scope, 2)
	rows, err := s.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM content_nodes
		WHERE kind = $1 AND `+where+`
		ORDER BY name`, append([]any{kind}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list %s nodes: %w", kind, err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// FindByID retrieves a node by its UUID. Returns nil if not found.
func (s *NodeStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM content_nodes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find node by id: %w", err)
	}
	return n, nil
}

// Create inserts a new node and fills in its ID and timestamps.
func (s *NodeStore) Create(ctx context.Context, n *models.Node) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO content_nodes (id, kind, name, title, slug, content, parent_type, parent_id, layout_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, n.ID, n.Kind, n.Name, n.Title, nullString(n.Slug()), n.Content,
		nullString(n.Parent.OwnerType), nullString(n.Parent.OwnerID), n.LayoutID,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create %s: %w", n.Kind, err)
	}
	return nil
}

// Update saves the mutable fields of an existing node. The kind and parent
// are fixed at creation.
func (s *NodeStore) Update(ctx context.Context, n *models.Node) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE content_nodes
		SET name = $2, title = $3, slug = $4, content = $5, layout_id = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, n.ID, n.Name, n.Title, nullString(n.Slug()), n.Content, n.LayoutID,
	).Scan(&n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", n.Kind, err)
	}
	return nil
}

// Delete removes a node by ID. Pages using a deleted layout fall back to
// rendering standalone via ON DELETE SET NULL.
func (s *NodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		n                   models.Node
		slugCol, ptype, pid sql.NullString
		layoutID            uuid.NullUUID
	)
	if err := row.Scan(
		&n.ID, &n.Kind, &n.Name, &n.Title, &slugCol, &n.Content,
		&ptype, &pid, &layoutID, &n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	n.LoadSlug(slugCol.String)
	n.Parent = models.ParentScope(ptype.String, pid.String)
	if layoutID.Valid {
		id := layoutID.UUID
		n.LayoutID = &id
	}
	return &n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
