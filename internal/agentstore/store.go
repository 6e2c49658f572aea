// Package agentstore holds the live, in-memory set of agents: a single
// mutex-guarded map covering the full agent lifecycle, read concurrently
// by the status monitor and router but inserted/removed only by the
// lifecycle manager.
package agentstore

import (
	"sort"
	"sync"

	"github.com/agentforge/agentforge/internal/model"
)

// Store is exclusively owned by the Lifecycle Manager for insertion and
// removal; the Status Monitor and Router may read and mutate an entry's
// mutable fields (status, flags, last_output/last_response) but never
// remove one — only an explicit Kill does.
type Store struct {
	mu     sync.RWMutex
	agents map[string]*model.Agent
}

// New returns an empty Store.
func New() *Store {
	return &Store{agents: make(map[string]*model.Agent)}
}

// Put inserts or replaces an agent by id. Used by Lifecycle on spawn and
// on startup recovery.
func (s *Store) Put(a *model.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
}

// Get returns a clone of the agent for safe concurrent reading, or nil.
func (s *Store) Get(id string) *model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil
	}
	return a.Clone()
}

// Mutate applies fn to the live agent under the write lock, for callers
// (Status Monitor, Router) that need to update status/flags atomically.
// Returns false if the agent does not exist.
func (s *Store) Mutate(id string, fn func(a *model.Agent)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return false
	}
	fn(a)
	return true
}

// Remove deletes an agent from the live map. Only Lifecycle.Kill calls
// this.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
}

// All returns clones of every agent, project order unspecified but stable
// within a call (sorted by id) to keep test output deterministic.
func (s *Store) All() []*model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByProject returns clones of every agent belonging to project.
func (s *Store) ByProject(project string) []*model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Agent
	for _, a := range s.agents {
		if a.Project == project {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountActive returns the number of non-STOPPED agents in project, the
// quantity EffectiveMaxAgents is compared against.
func (s *Store) CountActive(project string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.agents {
		if a.Project == project && a.IsLive() {
			n++
		}
	}
	return n
}

// Exists reports whether id is currently tracked (live or STOPPED-but-not-
// yet-killed).
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[id]
	return ok
}
