// Package registry wraps internal/config.Config behind an atomically
// swappable pointer so the lifecycle manager, status monitor and router
// always see a consistent configuration snapshot, with hot reload and no
// lock contention on the read path.
package registry

import (
	"sync/atomic"

	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/model"
)

// Registry holds the current configuration document and serves lookups
// used throughout the supervisor.
type Registry struct {
	cur atomic.Pointer[config.Config]
}

// New wraps an already-loaded Config.
func New(cfg *config.Config) *Registry {
	r := &Registry{}
	r.cur.Store(cfg)
	return r
}

// Current returns the active configuration document.
func (r *Registry) Current() *config.Config { return r.cur.Load() }

// Project looks up a project by name, converted to model.Project.
func (r *Registry) Project(name string) (model.Project, bool) {
	pc, ok := r.cur.Load().Project(name)
	if !ok {
		return model.Project{}, false
	}
	return pc.ToModel(name), true
}

// Profile looks up a profile by name, converted to model.Profile.
func (r *Registry) Profile(name string) (model.Profile, bool) {
	pc, ok := r.cur.Load().Profile(name)
	if !ok {
		return model.Profile{}, false
	}
	return pc.ToModel(name), true
}

// Projects returns every configured project.
func (r *Registry) Projects() map[string]model.Project { return r.cur.Load().ModelProjects() }

// Connectors returns the configured connector instances.
func (r *Registry) Connectors() map[string]model.ConnectorConfig { return r.cur.Load().Connectors }

// Defaults returns the server-wide defaults section.
func (r *Registry) Defaults() config.DefaultsConfig { return r.cur.Load().Defaults }

// Reload re-reads configuration from disk and swaps it in atomically.
// Callers (e.g. a SIGHUP handler or an admin endpoint) call this instead
// of restarting the process; every subsequent lookup observes the new
// document immediately, with no lock contention against in-flight reads.
func (r *Registry) Reload() error {
	fresh, err := r.cur.Load().Reload()
	if err != nil {
		return err
	}
	r.cur.Store(fresh)
	return nil
}
