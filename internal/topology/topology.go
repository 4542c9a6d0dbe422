// Package topology models the network graph of simulated nodes and links
// and generates bulk synthetic device fleets for load testing, using a
// mutex-guarded Go graph in the same registry style as internal/fault.Registry.
package topology

import (
	"fmt"
	"sync"
)

// NodeType names the kind of simulated network participant.
type NodeType string

const (
	NodeGateway  NodeType = "gateway"
	NodeSensor   NodeType = "sensor"
	NodeActuator NodeType = "actuator"
	NodePLC      NodeType = "plc"
	NodeServer   NodeType = "server"
	NodeCloud    NodeType = "cloud"
	NodeEdge     NodeType = "edge"
)

// LinkType names the simulated transport medium of a link.
type LinkType string

const (
	LinkWired     LinkType = "wired"
	LinkWireless  LinkType = "wireless"
	LinkCellular  LinkType = "cellular"
	LinkSatellite LinkType = "satellite"
)

// Node is one participant in the simulated network.
type Node struct {
	ID         string
	Name       string
	Type       NodeType
	Address    string
	Protocols  []string
	Properties map[string]string
	Status     string
}

// Link is one edge between two Nodes.
type Link struct {
	ID                string
	Source            string
	Target            string
	Type              LinkType
	LatencyMS         float64
	JitterMS          float64
	PacketLossPercent float64
	BandwidthKbps     float64
	Status            string
}

// Stats summarizes the current graph, mirroring the original
// get_topology_stats() counters.
type Stats struct {
	Nodes         int
	Links         int
	Gateways      int
	Sensors       int
	PLCs          int
	EdgeNodes     int
	CloudNodes    int
	Connected     bool
	AverageDegree float64
}

// Graph is the mutex-guarded network topology: nodes, links, and the
// adjacency needed for shortest-path and cumulative-latency queries.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	links map[string]*Link
	adj   map[string][]string // node id -> neighbor node ids
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		links: make(map[string]*Link),
		adj:   make(map[string][]string),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n.Status == "" {
		n.Status = "online"
	}
	cp := n
	g.nodes[n.ID] = &cp
	if _, ok := g.adj[n.ID]; !ok {
		g.adj[n.ID] = nil
	}
}

// RemoveNode deletes a node and every link touching it.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return
	}
	for linkID, l := range g.links {
		if l.Source == id || l.Target == id {
			g.removeLinkLocked(linkID)
		}
	}
	delete(g.nodes, id)
	delete(g.adj, id)
}

// AddLink inserts or replaces a link and its adjacency entries. Both
// endpoints must already exist as nodes.
func (g *Graph) AddLink(l Link) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[l.Source]; !ok {
		return fmt.Errorf("topology: unknown source node %q", l.Source)
	}
	if _, ok := g.nodes[l.Target]; !ok {
		return fmt.Errorf("topology: unknown target node %q", l.Target)
	}
	if l.Status == "" {
		l.Status = "active"
	}
	if existing, ok := g.links[l.ID]; ok {
		g.removeAdjLocked(existing.Source, existing.Target)
	}
	cp := l
	g.links[l.ID] = &cp
	g.adj[l.Source] = append(g.adj[l.Source], l.Target)
	g.adj[l.Target] = append(g.adj[l.Target], l.Source)
	return nil
}

// RemoveLink deletes a link by id.
func (g *Graph) RemoveLink(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLinkLocked(id)
}

func (g *Graph) removeLinkLocked(id string) {
	l, ok := g.links[id]
	if !ok {
		return
	}
	g.removeAdjLocked(l.Source, l.Target)
	delete(g.links, id)
}

func (g *Graph) removeAdjLocked(a, b string) {
	g.adj[a] = removeOne(g.adj[a], b)
	g.adj[b] = removeOne(g.adj[b], a)
}

func removeOne(xs []string, target string) []string {
	for i, x := range xs {
		if x == target {
			return append(xs[:i], xs[i+1:]...)
		}
	}
	return xs
}

// ShortestPath returns the hop-minimal path from source to target
// (inclusive), or nil if no path exists. Equivalent to the original's
// networkx.shortest_path on an unweighted graph.
func (g *Graph) ShortestPath(source, target string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if source == target {
		if _, ok := g.nodes[source]; ok {
			return []string{source}
		}
		return nil
	}

	visited := map[string]bool{source: true}
	prev := map[string]string{}
	queue := []string{source}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			if next == target {
				return reconstructPath(prev, source, target)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstructPath(prev map[string]string, source, target string) []string {
	path := []string{target}
	cur := target
	for cur != source {
		cur = prev[cur]
		path = append([]string{cur}, path...)
	}
	return path
}

// Latency sums the configured LatencyMS of every link along the shortest
// path from source to target. Returns (0, false) if no path exists.
func (g *Graph) Latency(source, target string) (float64, bool) {
	path := g.ShortestPath(source, target)
	if len(path) < 2 {
		if len(path) == 1 {
			return 0, true
		}
		return 0, false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var total float64
	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		for _, l := range g.links {
			if (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a) {
				total += l.LatencyMS
				break
			}
		}
	}
	return total, true
}

// SetLinkLatency updates a link's latency in place.
func (g *Graph) SetLinkLatency(linkID string, ms float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.links[linkID]; ok {
		l.LatencyMS = ms
	}
}

// SetLinkPacketLoss updates a link's packet-loss percentage in place.
func (g *Graph) SetLinkPacketLoss(linkID string, percent float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.links[linkID]; ok {
		l.PacketLossPercent = percent
	}
}

// Nodes returns a snapshot of every node.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// Links returns a snapshot of every link.
func (g *Graph) Links() []Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	return out
}

// Stats computes graph-wide summary statistics.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{Nodes: len(g.nodes), Links: len(g.links)}
	for _, n := range g.nodes {
		switch n.Type {
		case NodeGateway:
			s.Gateways++
		case NodeSensor:
			s.Sensors++
		case NodePLC:
			s.PLCs++
		case NodeEdge:
			s.EdgeNodes++
		case NodeCloud:
			s.CloudNodes++
		}
	}
	s.Connected = g.isConnectedLocked()
	if len(g.nodes) > 0 {
		var degreeSum int
		for _, neighbors := range g.adj {
			degreeSum += len(neighbors)
		}
		s.AverageDegree = float64(degreeSum) / float64(len(g.nodes))
	}
	return s
}

func (g *Graph) isConnectedLocked() bool {
	if len(g.nodes) == 0 {
		return true
	}
	var start string
	for id := range g.nodes {
		start = id
		break
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited) == len(g.nodes)
}

// SeedDefaultTopology populates g with the reference gateway/cloud/edge/
// sensor/PLC layout used when no topology file is configured, mirroring
// the original's _init_default_topology.
func SeedDefaultTopology(g *Graph, rng func() float64) {
	g.AddNode(Node{ID: "gateway-1", Name: "Main Gateway", Type: NodeGateway, Address: "192.168.1.1", Protocols: []string{"mqtt", "tcp", "modbus"}})
	g.AddNode(Node{ID: "cloud-1", Name: "Cloud Server", Type: NodeCloud, Address: "cloud.iot-platform.local", Protocols: []string{"mqtt", "https", "opcua"}})
	g.AddNode(Node{ID: "edge-1", Name: "Edge Node", Type: NodeEdge, Address: "192.168.1.100", Protocols: []string{"mqtt", "bacnet"}})

	for i := 0; i < 10; i++ {
		g.AddNode(Node{
			ID: fmt.Sprintf("sensor-%d", i+1), Name: fmt.Sprintf("Temperature Sensor %d", i+1),
			Type: NodeSensor, Address: fmt.Sprintf("192.168.1.%d", 10+i), Protocols: []string{"mqtt", "coap"},
		})
	}
	for i := 0; i < 3; i++ {
		g.AddNode(Node{
			ID: fmt.Sprintf("plc-%d", i+1), Name: fmt.Sprintf("PLC %d", i+1),
			Type: NodePLC, Address: fmt.Sprintf("192.168.2.%d", 10+i), Protocols: []string{"modbus", "opcua"},
		})
	}

	g.AddLink(Link{ID: "link-gw-cloud", Source: "gateway-1", Target: "cloud-1", LatencyMS: 50, Type: LinkCellular})
	g.AddLink(Link{ID: "link-gw-edge", Source: "gateway-1", Target: "edge-1", LatencyMS: 5, Type: LinkWired})
	g.AddLink(Link{ID: "link-edge-plc1", Source: "edge-1", Target: "plc-1", LatencyMS: 2, Type: LinkWired})

	for i := 0; i < 10; i++ {
		linkType := LinkWired
		if rng() > 0.5 {
			linkType = LinkWireless
		}
		g.AddLink(Link{
			ID: fmt.Sprintf("link-sensor-%d", i+1), Source: fmt.Sprintf("sensor-%d", i+1), Target: "gateway-1",
			LatencyMS: 1 + rng()*9, JitterMS: 0.5 + rng()*2.5, PacketLossPercent: rng(), Type: linkType,
		})
	}
}
