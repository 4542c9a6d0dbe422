package topology

import "testing"

func buildLine(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.AddNode(Node{ID: "a", Type: NodeGateway})
	g.AddNode(Node{ID: "b", Type: NodeEdge})
	g.AddNode(Node{ID: "c", Type: NodeSensor})
	if err := g.AddLink(Link{ID: "ab", Source: "a", Target: "b", LatencyMS: 5}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddLink(Link{ID: "bc", Source: "b", Target: "c", LatencyMS: 3}); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestShortestPath(t *testing.T) {
	g := buildLine(t)
	path := g.ShortestPath("a", "c")
	want := []string{"a", "b", "c"}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}

func TestShortestPathNoRoute(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	if path := g.ShortestPath("a", "b"); path != nil {
		t.Fatalf("expected nil path for disconnected nodes, got %v", path)
	}
}

func TestLatencySumsPath(t *testing.T) {
	g := buildLine(t)
	ms, ok := g.Latency("a", "c")
	if !ok {
		t.Fatal("expected a path to exist")
	}
	if ms != 8 {
		t.Fatalf("expected latency 8, got %v", ms)
	}
}

func TestRemoveNodeDropsLinks(t *testing.T) {
	g := buildLine(t)
	g.RemoveNode("b")
	if len(g.Links()) != 0 {
		t.Fatalf("expected both links removed, got %d", len(g.Links()))
	}
	if path := g.ShortestPath("a", "c"); path != nil {
		t.Fatalf("expected no path after removing hub node, got %v", path)
	}
}

func TestStatsConnectedAndCounts(t *testing.T) {
	g := buildLine(t)
	stats := g.Stats()
	if stats.Nodes != 3 || stats.Links != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.Connected {
		t.Fatal("expected graph to be connected")
	}
	if stats.Gateways != 1 || stats.Sensors != 1 || stats.EdgeNodes != 1 {
		t.Fatalf("unexpected type counts: %+v", stats)
	}
}

func TestStatsDisconnected(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	if g.Stats().Connected {
		t.Fatal("expected disconnected graph")
	}
}

func TestSeedDefaultTopology(t *testing.T) {
	g := NewGraph()
	calls := 0
	SeedDefaultTopology(g, func() float64 {
		calls++
		return 0.25
	})
	stats := g.Stats()
	if stats.Nodes != 1+1+1+10+3 {
		t.Fatalf("expected 16 seeded nodes, got %d", stats.Nodes)
	}
	if stats.Sensors != 10 || stats.PLCs != 3 {
		t.Fatalf("unexpected seeded counts: %+v", stats)
	}
}
