// Package db is the storage gateway: the only code that talks to the document store.
package db

import (
	"context"
	"errors"
)

// ErrStorage marks connectivity or driver failures. Callers test with errors.Is and surface a generic 5xx.
var ErrStorage = errors.New("storage error")

// Gateway performs single-document operations against named collections.
// Identifiers are opaque strings; callers must check ValidID before passing one in.
type Gateway interface {
	// Insert persists doc and returns the identifier assigned by the store.
	Insert(ctx context.Context, collection string, doc any) (string, error)
	// FindAll decodes every document matching filter (equality on top-level keys; nil matches all)
	// into out, which must be a pointer to a slice. No ordering or limit is applied.
	FindAll(ctx context.Context, collection string, filter map[string]any, out any) error
	// FindOne decodes the document with id into out. found is false when no document matches;
	// err is reserved for storage failures.
	FindOne(ctx context.Context, collection, id string, out any) (found bool, err error)
	// UpdateOne sets fields on the document with id (shallow merge) and returns the matched count.
	UpdateOne(ctx context.Context, collection, id string, fields map[string]any) (matched int64, err error)
	// DeleteOne removes the document with id and returns the deleted count.
	DeleteOne(ctx context.Context, collection, id string) (deleted int64, err error)
	// ValidID reports whether id is a well-formed identifier for this store.
	ValidID(id string) bool
}

// Inspector exposes read-only diagnostics about the underlying database.
type Inspector interface {
	Ping(ctx context.Context) error
	Name() string
	CollectionNames(ctx context.Context) ([]string, error)
}
