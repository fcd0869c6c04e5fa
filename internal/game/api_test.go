package game

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minigolf/server/internal/course"
	"minigolf/server/internal/lobby"
	"minigolf/server/internal/sim"
)

func TestHandoffCreateAndAdmit(t *testing.T) {
	hub := NewHub(Config{SimConfig: sim.DefaultConfig()})
	defer hub.Shutdown()
	catalog := testCatalog(t)
	api := NewHandoffAPI(hub, catalog, nil)

	srv := httptest.NewServer(api.Routes())
	defer srv.Close()
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	launcher := lobby.NewHTTPLauncher()
	ctx := context.Background()

	err := launcher.Launch(ctx, endpoint, lobby.LaunchRequest{
		SessionID: "sess-http",
		CourseIDs: []string{"c1"},
		Roster:    []lobby.Credential{{PlayerID: "p1", Token: "tok-1"}},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if phase, ok := hub.Session("sess-http"); !ok || phase != sim.PhaseForming {
		t.Fatalf("session phase = %v ok=%v, want forming", phase, ok)
	}

	if err := launcher.Admit(ctx, endpoint, "sess-http", lobby.Credential{PlayerID: "p2", Token: "tok-2"}); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := launcher.Admit(ctx, endpoint, "missing", lobby.Credential{PlayerID: "p3", Token: "tok-3"}); err == nil {
		t.Fatalf("admit to unknown session succeeded")
	}
	if err := launcher.Launch(ctx, endpoint, lobby.LaunchRequest{
		SessionID: "sess-bad",
		CourseIDs: []string{"nope"},
		Roster:    []lobby.Credential{{PlayerID: "p1", Token: "t"}},
	}); err == nil {
		t.Fatalf("launch with unknown course succeeded")
	}
}

const catalogDescriptor = `
id: "c1"
holes:
  - index: 0
    start_position: {x: -0.5, y: 0.021336, z: 0.0}
    hole_asset: "hole1.glb#Mesh0"
    wall_asset: "hole1_walls.glb#Mesh0"
    bounding_box:
      center: {x: 0.0, y: 0.5, z: 0.0}
      half_extents: {x: 1.0, y: 0.5, z: 1.0}
    hole_sensor:
      center: {x: 0.35, y: 0.0, z: 0.0}
      half_extents: {x: 0.3, y: 0.2, z: 0.3}
`

func testCatalog(t *testing.T) *course.Catalog {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "c1.yaml"), []byte(catalogDescriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	catalog, err := course.LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return catalog
}
