// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"errors"
	"testing"

	"quire/internal/models"
	"quire/internal/store"
)

// fakeFinder records the last lookup and serves one partial.
type fakeFinder struct {
	node *models.Node
	err  error

	gotKind  models.Kind
	gotScope models.Scope
	gotPred  store.Predicate
}

func (f *fakeFinder) FindOne(_ context.Context, kind models.Kind, scope models.Scope, p store.Predicate) (*models.Node, error) {
	f.gotKind, f.gotScope, f.gotPred = kind, scope, p
	if f.err != nil {
		return nil, f.err
	}
	if f.node != nil && f.node.Parent == scope && f.node.Name == p.Value {
		return f.node, nil
	}
	return nil, nil
}

func (f *fakeFinder) FindMany(context.Context, models.Kind, models.Scope) ([]models.Node, error) {
	return nil, nil
}

func TestStoreResolver(t *testing.T) {
	header := models.NewPartial(blog5)
	header.Name = "header"
	header.Content = "<header/>"

	f := &fakeFinder{node: header}
	r := NewStoreResolver(f)
	ctx := context.Background()

	src, err := r.Resolve(ctx, "header", blog5)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src != "<header/>" {
		t.Errorf("got %q", src)
	}
	if f.gotKind != models.KindPartial || f.gotPred != store.ByName("header") {
		t.Errorf("unexpected lookup: kind=%s pred=%+v", f.gotKind, f.gotPred)
	}

	_, err = r.Resolve(ctx, "header", models.Global)
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Scope != models.Global {
		t.Errorf("expected NotFoundError in global scope, got %v", err)
	}

	f.err = errors.New("connection refused")
	_, err = r.Resolve(ctx, "header", blog5)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		t.Errorf("store failures must not look like not found, got %v", err)
	}
}
