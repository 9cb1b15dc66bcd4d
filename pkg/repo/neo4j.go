package repo

import (
	"context"
	"fmt"
	"maps"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultLimit caps List when ListOpts.Limit is unset.
const DefaultLimit = 100

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// querier runs Cypher, either on a session or inside a transaction.
type querier interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	querier
	ExecuteWrite(ctx context.Context, work func(querier) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// Neo4jRepo stores entities of type T as nodes labelled label.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	database   string
	label      string
	idKey      string
	orderBy    string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) runner // for testing
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey sets the property name used as the ID (default "id").
func WithIDKey[T any, ID comparable](key string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// WithOrderBy sets the List ordering as a Cypher expression over n,
// e.g. "n.created_at DESC".
func WithOrderBy[T any, ID comparable](expr string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.orderBy = expr }
}

// WithDatabase selects the Neo4j database (default: server default).
func WithDatabase[T any, ID comparable](name string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.database = name }
}

// NewNeo4jRepo creates a new Neo4j-backed repository. fromRecord receives
// records whose "n" key holds the node.
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, ID],
) *Neo4jRepo[T, ID] {
	r := &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) ExecuteWrite(ctx context.Context, work func(querier) (any, error)) (any, error) {
	return a.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(txAdapter{tx})
	})
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

type txAdapter struct {
	tx neo4j.ManagedTransaction
}

func (t txAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return t.tx.Run(ctx, cypher, params)
}

func (r *Neo4jRepo[T, ID]) session(ctx context.Context) runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	return &sessionAdapter{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})}
}

func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var zero T
	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	res, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, fmt.Errorf("repo: get %s: %w", r.label, err)
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("%s %v: %w", r.label, id, ErrNotFound)
	}
	return r.fromRecord(res.Record())
}

func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(opts.Offset, 0)

	cypher := fmt.Sprintf("MATCH (n:%s) RETURN n", r.label)
	if r.orderBy != "" {
		cypher += " ORDER BY " + r.orderBy
	}
	cypher += " SKIP $offset LIMIT $limit"

	res, err := sess.Run(ctx, cypher, map[string]any{"offset": offset, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo: list %s: %w", r.label, err)
	}

	var items []T
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Query runs a read statement and hands every record to each.
func (r *Neo4jRepo[T, ID]) Query(ctx context.Context, cypher string, params map[string]any, each func(*neo4j.Record) error) error {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return fmt.Errorf("repo: query %s: %w", r.label, err)
	}
	for res.Next(ctx) {
		if err := each(res.Record()); err != nil {
			return err
		}
	}
	return nil
}

func withID(params map[string]any, id any) map[string]any {
	out := maps.Clone(params)
	if out == nil {
		out = make(map[string]any, 1)
	}
	out["id"] = id
	return out
}

// Create writes the entity node and then every follow statement in one
// write transaction.
func (r *Neo4jRepo[T, ID]) Create(ctx context.Context, entity T, follow ...Statement) (T, error) {
	var zero T
	sess := r.session(ctx)
	defer sess.Close(ctx)

	props := r.toMap(entity)
	out, err := sess.ExecuteWrite(ctx, func(tx querier) (any, error) {
		cypher := fmt.Sprintf("CREATE (n:%s $props) RETURN n", r.label)
		res, err := tx.Run(ctx, cypher, map[string]any{"props": props})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, fmt.Errorf("create returned no node")
		}
		rec := res.Record()
		for _, st := range follow {
			if _, err := tx.Run(ctx, st.Cypher, withID(st.Params, props[r.idKey])); err != nil {
				return nil, err
			}
		}
		return rec, nil
	})
	if err != nil {
		return zero, fmt.Errorf("repo: create %s: %w", r.label, err)
	}
	return r.fromRecord(out.(*neo4j.Record))
}

// Delete runs the before statements and then detaches and deletes the node,
// all in one write transaction. A missing node yields ErrNotFound.
func (r *Neo4jRepo[T, ID]) Delete(ctx context.Context, id ID, before ...Statement) error {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	out, err := sess.ExecuteWrite(ctx, func(tx querier) (any, error) {
		for _, st := range before {
			if _, err := tx.Run(ctx, st.Cypher, withID(st.Params, id)); err != nil {
				return nil, err
			}
		}
		cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) DETACH DELETE n RETURN count(n) AS deleted", r.label, r.idKey)
		res, err := tx.Run(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return int64(0), nil
		}
		n, _ := res.Record().Get("deleted")
		return n, nil
	})
	if err != nil {
		return fmt.Errorf("repo: delete %s: %w", r.label, err)
	}
	if n, _ := out.(int64); n == 0 {
		return fmt.Errorf("%s %v: %w", r.label, id, ErrNotFound)
	}
	return nil
}
