// Package lifecycle implements the Lifecycle Manager: spawn, kill,
// restart, messaging and startup recovery for agents, exclusively owning
// insertion/removal on the Agent Store.
package lifecycle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/store"
	"github.com/agentforge/agentforge/internal/terminal"
	"github.com/agentforge/agentforge/internal/worktree"
)

// ErrAgentLimitReached is returned by Spawn when the project is already at
// its effective max_agents cap.
var ErrAgentLimitReached = fmt.Errorf("agent limit reached")

// ErrProjectNotFound is returned when the named project is not configured.
var ErrProjectNotFound = fmt.Errorf("project not found")

// ErrProfileNotFound is returned when a named profile is not configured.
var ErrProfileNotFound = fmt.Errorf("profile not found")

// ErrAgentNotFound is returned by operations targeting a nonexistent agent.
var ErrAgentNotFound = fmt.Errorf("agent not found")

// Manager owns spawn/kill/restart and the background start-sequence
// workers; it is the sole writer of agentstore.Store entries.
type Manager struct {
	registry *registry.Registry
	agents   *agentstore.Store
	snaps    *store.Store
	terminal *terminal.Driver
	worktree *worktree.Driver
	log      *logging.Logger

	hookURL string // local server's base URL, e.g. http://localhost:8420; hookCommand appends /api/hooks/event

	mu        sync.Mutex
	cancelFns map[string]func() // agent id -> start-sequence cancel, so Kill can abort it
}

// New builds a Manager.
func New(reg *registry.Registry, agents *agentstore.Store, snaps *store.Store,
	term *terminal.Driver, wt *worktree.Driver, hookURL string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Default()
	}
	return &Manager{
		registry:  reg,
		agents:    agents,
		snaps:     snaps,
		terminal:  term,
		worktree:  wt,
		hookURL:   hookURL,
		log:       log.With(zap.String("component", "lifecycle")),
		cancelFns: make(map[string]func()),
	}
}

// newAgentID generates a 6-char lowercase hex id, unique across the
// process lifetime.
func newAgentID() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (m *Manager) setCancel(agentID string, cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelFns[agentID] = cancel
}

func (m *Manager) popCancel(agentID string) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn := m.cancelFns[agentID]
	delete(m.cancelFns, agentID)
	return fn
}
