// Package repo defines the generic repository interface and its Neo4j
// implementation.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no entity has the requested ID.
var ErrNotFound = errors.New("repo: not found")

// Repository is a generic create/read/delete interface.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T, follow ...Statement) (T, error)
	Delete(ctx context.Context, id ID, before ...Statement) error
}

// ListOpts controls pagination for List operations.
type ListOpts struct {
	Offset int
	Limit  int
}

// Statement is an extra Cypher statement run in the same write transaction
// as a Create or Delete. The entity ID is available as $id.
type Statement struct {
	Cypher string
	Params map[string]any
}
