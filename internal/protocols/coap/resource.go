package coap

import (
	"net"
	"sync"
)

// Resource is one registered CoAP path's current representation.
type Resource struct {
	Path          string
	ContentFormat uint32
	Payload       []byte
}

// observer is one client watching a resource via Observe.
type observer struct {
	addr  *net.UDPAddr
	token []byte
}

// Store owns every registered resource and its observer list, guarded by
// a single mutex shared by request handling and the periodic data
// simulator's notification pushes.
type Store struct {
	mu        sync.Mutex
	resources map[string]*Resource
	observers map[string][]observer
	seq       map[string]uint32
}

func NewStore() *Store {
	return &Store{
		resources: make(map[string]*Resource),
		observers: make(map[string][]observer),
		seq:       make(map[string]uint32),
	}
}

func (s *Store) Put(path string, contentFormat uint32, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[path] = &Resource{Path: path, ContentFormat: contentFormat, Payload: payload}
}

func (s *Store) Get(path string) (*Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[path]
	return r, ok
}

func (s *Store) Delete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.resources[path]
	delete(s.resources, path)
	delete(s.observers, path)
	return existed
}

// Observe registers addr/token as an observer of path.
func (s *Store) Observe(path string, addr *net.UDPAddr, token []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers[path] {
		if o.addr.String() == addr.String() {
			return
		}
	}
	s.observers[path] = append(s.observers[path], observer{addr: addr, token: token})
}

// Deregister removes addr as an observer of path.
func (s *Store) Deregister(path string, addr *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs := s.observers[path]
	for i, o := range obs {
		if o.addr.String() == addr.String() {
			s.observers[path] = append(obs[:i], obs[i+1:]...)
			return
		}
	}
}

// nextSeq returns the next Observe sequence number for path.
func (s *Store) nextSeq(path string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[path]++
	return s.seq[path]
}

// observersOf returns a snapshot of path's current observer list.
func (s *Store) observersOf(path string) []observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]observer, len(s.observers[path]))
	copy(out, s.observers[path])
	return out
}

// paths returns every currently-registered resource path.
func (s *Store) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.resources))
	for p := range s.resources {
		out = append(out, p)
	}
	return out
}
