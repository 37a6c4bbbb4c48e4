// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package litestore implements the content node store on SQLite through
// gorm. It backs single-binary deployments (DB_DRIVER=sqlite) and the
// in-memory databases used by service and handler tests.
package litestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quire/internal/models"
	"quire/internal/store"
)

// contentNode is the gorm row model. It mirrors the PostgreSQL table so
// both backends can share fixtures.
type contentNode struct {
	ID         string  `gorm:"primaryKey;size:36"`
	Kind       string  `gorm:"size:16;not null;index:idx_content_nodes_scope,priority:3"`
	Name       string  `gorm:"size:255;not null"`
	Title      string  `gorm:"size:255;not null;default:''"`
	Slug       *string `gorm:"size:512"`
	Content    string  `gorm:"type:text;not null;default:''"`
	ParentType *string `gorm:"size:64;index:idx_content_nodes_scope,priority:1"`
	ParentID   *string `gorm:"size:64;index:idx_content_nodes_scope,priority:2"`
	LayoutID   *string `gorm:"size:36"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (contentNode) TableName() string { return "content_nodes" }

// Scoped uniqueness needs expression indexes, which gorm tags cannot
// declare. SQLite treats NULLs as distinct, so the global scope is folded
// into the empty string like the PostgreSQL migration does.
var scopedIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS content_nodes_scoped_name
		ON content_nodes (kind, COALESCE(parent_type, ''), COALESCE(parent_id, ''), name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_nodes_scoped_slug
		ON content_nodes (COALESCE(parent_type, ''), COALESCE(parent_id, ''), slug)
		WHERE kind = 'page'`,
}

// Migrate creates the content_nodes table and its scoped indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&contentNode{}); err != nil {
		return fmt.Errorf("automigrate content nodes: %w", err)
	}
	for _, stmt := range scopedIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create scoped index: %w", err)
		}
	}
	return nil
}

// NodeStore implements store.Store on a gorm connection.
type NodeStore struct {
	db *gorm.DB
}

// New returns a NodeStore. The schema must already exist; see Migrate.
func New(db *gorm.DB) *NodeStore {
	return &NodeStore{db: db}
}

var _ store.Store = (*NodeStore)(nil)

func scoped(q *gorm.DB, scope models.Scope) *gorm.DB {
	if scope.IsGlobal() {
		return q.Where("parent_type IS NULL AND parent_id IS NULL")
	}
	return q.Where("parent_type = ? AND parent_id = ?", scope.OwnerType, scope.OwnerID)
}

// FindOne returns the node of the given kind in scope matching p, or nil
// if there is none.
func (s *NodeStore) FindOne(ctx context.Context, kind models.Kind, scope models.Scope, p store.Predicate) (*models.Node, error) {
	col, ok := p.Column()
	if !ok {
		return nil, fmt.Errorf("find %s: unsupported predicate %q", kind, p.Field)
	}

	var row contentNode
	q := s.db.WithContext(ctx).Where("kind = ?", string(kind)).Where(col+" = ?", p.Value)
	err := scoped(q, scope).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", kind, col, err)
	}
	return row.toNode()
}

// FindMany returns every node of the given kind in scope, ordered by name.
func (s *NodeStore) FindMany(ctx context.Context, kind models.Kind, scope models.Scope) ([]models.Node, error) {
	var rows []contentNode
	q := s.db.WithContext(ctx).Where("kind = ?", string(kind))
	if err := scoped(q, scope).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s nodes: %w", kind, err)
	}

	nodes := make([]models.Node, 0, len(rows))
	for _, r := range rows {
		n, err := r.toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

// FindByID retrieves a node by its UUID. Returns nil if not found.
func (s *NodeStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	var row contentNode
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find node by id: %w", err)
	}
	return row.toNode()
}

// Create inserts a new node and fills in its ID and timestamps.
func (s *NodeStore) Create(ctx context.Context, n *models.Node) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	row := fromNode(n)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create %s: %w", n.Kind, err)
	}
	n.CreatedAt, n.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// Update saves the mutable fields of an existing node. The kind and parent
// are fixed at creation.
func (s *NodeStore) Update(ctx context.Context, n *models.Node) error {
	row := fromNode(n)
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&contentNode{}).Where("id = ?", row.ID).
		Updates(map[string]any{
			"name":       row.Name,
			"title":      row.Title,
			"slug":       row.Slug,
			"content":    row.Content,
			"layout_id":  row.LayoutID,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", n.Kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	n.UpdatedAt = now
	return nil
}

// Delete removes a node by ID and detaches pages that used it as a layout.
func (s *NodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&contentNode{}, "id = ?", id.String())
		if res.Error != nil {
			return fmt.Errorf("delete node: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}
		if err := tx.Model(&contentNode{}).Where("layout_id = ?", id.String()).
			Update("layout_id", nil).Error; err != nil {
			return fmt.Errorf("detach layout: %w", err)
		}
		return nil
	})
}

func fromNode(n *models.Node) contentNode {
	row := contentNode{
		ID:         n.ID.String(),
		Kind:       string(n.Kind),
		Name:       n.Name,
		Title:      n.Title,
		Slug:       optional(n.Slug()),
		Content:    n.Content,
		ParentType: optional(n.Parent.OwnerType),
		ParentID:   optional(n.Parent.OwnerID),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	if n.LayoutID != nil {
		id := n.LayoutID.String()
		row.LayoutID = &id
	}
	return row
}

func (r contentNode) toNode() (*models.Node, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", r.ID, err)
	}
	n := &models.Node{
		ID:        id,
		Kind:      models.Kind(r.Kind),
		Name:      r.Name,
		Title:     r.Title,
		Content:   r.Content,
		Parent:    models.ParentScope(deref(r.ParentType), deref(r.ParentID)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	n.LoadSlug(deref(r.Slug))
	if r.LayoutID != nil {
		layoutID, err := uuid.Parse(*r.LayoutID)
		if err != nil {
			return nil, fmt.Errorf("parse layout id %q: %w", *r.LayoutID, err)
		}
		n.LayoutID = &layoutID
	}
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
