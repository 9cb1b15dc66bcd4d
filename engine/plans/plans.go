// Package plans archives finished soldering plans in Neo4j. A plan is a
// (:Plan) node with one (:Connection) node per solder joint hanging off it
// through [:HAS_EDGE] relationships.
package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/engine/wiring"
	"github.com/humwire/humwire/pkg/repo"
)

var (
	ErrNotFound  = repo.ErrNotFound
	ErrInvalidID = errors.New("plans: invalid plan id")
	ErrEmptyPlan = errors.New("plans: plan has no connections")
)

// Plan is a stored soldering plan.
type Plan struct {
	ID         string                     `json:"id"`
	CreatedAt  time.Time                  `json:"created_at"`
	Preset     string                     `json:"preset,omitempty"`
	Mode       wiring.Mode                `json:"mode"`
	Assignment domain.WireColorAssignment `json:"assignment"`
	Steps      []wiring.Step              `json:"steps"`
	Edges      []wiring.Edge              `json:"edges,omitempty"`
}

// FromAnalysis builds an unsaved plan from an analysis result.
func FromAnalysis(a session.Analysis, preset string) Plan {
	return Plan{
		Preset:     preset,
		Mode:       a.Mode,
		Assignment: a.Assignment,
		Steps:      a.Steps,
		Edges:      a.Graph.Edges,
	}
}

// nodes is the part of repo.Neo4jRepo the store uses.
type nodes interface {
	Get(ctx context.Context, id string) (Plan, error)
	List(ctx context.Context, opts repo.ListOpts) ([]Plan, error)
	Create(ctx context.Context, p Plan, follow ...repo.Statement) (Plan, error)
	Delete(ctx context.Context, id string, before ...repo.Statement) error
	Query(ctx context.Context, cypher string, params map[string]any, each func(*neo4j.Record) error) error
}

// Store saves and loads plans.
type Store struct {
	nodes nodes
	now   func() time.Time
}

// NewStore creates a store on driver.
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{
		nodes: repo.NewNeo4jRepo[Plan, string](driver, "Plan", planToMap, planFromRecord,
			repo.WithOrderBy[Plan, string]("n.created_at DESC")),
		now: time.Now,
	}
}

const (
	schemaCypher = "CREATE CONSTRAINT plan_id IF NOT EXISTS FOR (p:Plan) REQUIRE p.id IS UNIQUE"

	edgesCypher = `MATCH (p:Plan {id: $id})
UNWIND $edges AS e
CREATE (p)-[:HAS_EDGE {seq: e.seq}]->(:Connection {from: e.from, to: e.to, kind: e.kind, from_color: e.from_color, to_color: e.to_color})`

	loadEdgesCypher = `MATCH (:Plan {id: $id})-[r:HAS_EDGE]->(c:Connection)
RETURN c AS n ORDER BY r.seq`

	dropEdgesCypher = `MATCH (:Plan {id: $id})-[:HAS_EDGE]->(c:Connection) DETACH DELETE c`
)

// EnsureSchema creates the unique constraint on plan IDs.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.nodes.Query(ctx, schemaCypher, nil, func(*neo4j.Record) error { return nil })
}

// Save stores p with a fresh ID and creation time and returns the stored
// plan. The plan node and its connections are written in one transaction.
func (s *Store) Save(ctx context.Context, p Plan) (Plan, error) {
	if len(p.Edges) == 0 {
		return Plan{}, ErrEmptyPlan
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	edges := make([]map[string]any, len(p.Edges))
	for i, e := range p.Edges {
		edges[i] = edgeToMap(i, e)
	}
	saved, err := s.nodes.Create(ctx, p, repo.Statement{Cypher: edgesCypher, Params: map[string]any{"edges": edges}})
	if err != nil {
		return Plan{}, err
	}
	saved.Edges = p.Edges
	return saved, nil
}

// Get loads a plan and its connections.
func (s *Store) Get(ctx context.Context, id string) (Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	p, err := s.nodes.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	err = s.nodes.Query(ctx, loadEdgesCypher, map[string]any{"id": id}, func(rec *neo4j.Record) error {
		e, err := edgeFromRecord(rec)
		if err != nil {
			return err
		}
		p.Edges = append(p.Edges, e)
		return nil
	})
	if err != nil {
		return Plan{}, err
	}
	return p, nil
}

// List returns plans newest first, without their connections.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Plan, error) {
	return s.nodes.List(ctx, repo.ListOpts{Offset: offset, Limit: limit})
}

// Delete removes a plan and its connections.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return s.nodes.Delete(ctx, id, repo.Statement{Cypher: dropEdgesCypher})
}

func planToMap(p Plan) map[string]any {
	assignment, _ := json.Marshal(p.Assignment)
	steps, _ := json.Marshal(p.Steps)
	return map[string]any{
		"id":         p.ID,
		"created_at": p.CreatedAt.UnixMilli(),
		"preset":     p.Preset,
		"mode":       string(p.Mode),
		"assignment": string(assignment),
		"steps":      string(steps),
		"step_count": int64(len(p.Steps)),
		"edge_count": int64(len(p.Edges)),
	}
}

func planFromRecord(rec *neo4j.Record) (Plan, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Plan{}, err
	}
	props := node.Props
	p := Plan{
		ID:     strProp(props, "id"),
		Preset: strProp(props, "preset"),
		Mode:   wiring.Mode(strProp(props, "mode")),
	}
	if ms, ok := props["created_at"].(int64); ok {
		p.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if err := unmarshalProp(props, "assignment", &p.Assignment); err != nil {
		return Plan{}, err
	}
	if err := unmarshalProp(props, "steps", &p.Steps); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func unmarshalProp(props map[string]any, key string, dst any) error {
	raw := strProp(props, key)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("plans: decode %s: %w", key, err)
	}
	return nil
}

func edgeToMap(seq int, e wiring.Edge) map[string]any {
	return map[string]any{
		"seq":        int64(seq),
		"from":       e.From.ID(),
		"to":         e.To.ID(),
		"kind":       string(e.Kind),
		"from_color": e.FromColor,
		"to_color":   e.ToColor,
	}
}

func edgeFromRecord(rec *neo4j.Record) (wiring.Edge, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return wiring.Edge{}, err
	}
	props := node.Props
	from, err := domain.ParseLead(strProp(props, "from"))
	if err != nil {
		return wiring.Edge{}, fmt.Errorf("plans: connection source: %w", err)
	}
	e := wiring.Edge{
		From:      from,
		FromColor: strProp(props, "from_color"),
		ToColor:   strProp(props, "to_color"),
		Kind:      wiring.EdgeKind(strProp(props, "kind")),
	}
	to := strProp(props, "to")
	if l, err := domain.ParseLead(to); err == nil {
		e.To.Lead = &l
	} else {
		e.To.Terminal = wiring.Terminal(to)
	}
	return e, nil
}

func strProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}
