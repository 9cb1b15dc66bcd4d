//go:build integration

package plans

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func testDriver(t *testing.T) neo4j.DriverWithContext {
	t.Helper()
	url := os.Getenv("NEO4J_URL")
	if url == "" {
		url = "neo4j://localhost:7687"
	}
	driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASS"), ""))
	if err != nil {
		t.Fatalf("neo4j connect: %v", err)
	}
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		t.Fatalf("neo4j verify: %v", err)
	}
	t.Cleanup(func() {
		sess := driver.NewSession(ctx, neo4j.SessionConfig{})
		sess.Run(ctx, "MATCH (p:Plan) OPTIONAL MATCH (p)-[:HAS_EDGE]->(c) DETACH DELETE p, c", nil)
		sess.Close(ctx)
		driver.Close(ctx)
	})
	return driver
}

func TestNeo4j_PlanLifecycle(t *testing.T) {
	store := NewStore(testDriver(t))
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	p := configA(t)
	saved, err := store.Save(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Edges) != len(p.Edges) || len(got.Steps) != len(p.Steps) {
		t.Fatalf("round trip lost data: %d edges, %d steps", len(got.Edges), len(got.Steps))
	}
	list, err := store.List(ctx, 0, 10)
	if err != nil || len(list) == 0 {
		t.Fatalf("list: %v", err)
	}
	if err := store.Delete(ctx, saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
