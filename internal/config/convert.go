package config

import "github.com/agentforge/agentforge/internal/model"

// ToModel converts a config-file project entry into the runtime model.Project
// used by the rest of the supervisor, keeping the mapstructure-tagged
// config shape separate from the in-memory domain shape.
func (p ProjectConfig) ToModel(name string) model.Project {
	return model.Project{
		Name:              name,
		Path:              p.Path,
		DefaultBranch:     p.DefaultBranch,
		MaxAgents:         p.MaxAgents,
		Description:       p.Description,
		AgentInstructions: p.AgentInstructions,
		ContextFiles:      p.ContextFiles,
		Channels:          p.Channels,
	}
}

// ToModel converts a config-file profile entry into model.Profile.
func (p ProfileConfig) ToModel(name string) model.Profile {
	seq := p.StartSequence
	if len(seq) == 0 {
		seq = model.DefaultStartSequence()
	}
	return model.Profile{
		Name:          name,
		Description:   p.Description,
		SystemPrompt:  p.SystemPrompt,
		Instructions:  p.Instructions,
		StartSequence: seq,
	}
}

// ModelProjects returns every configured project converted to model.Project.
func (c *Config) ModelProjects() map[string]model.Project {
	out := make(map[string]model.Project, len(c.Projects))
	for name, p := range c.Projects {
		out[name] = p.ToModel(name)
	}
	return out
}

// ModelProfiles returns every configured profile converted to model.Profile.
func (c *Config) ModelProfiles() map[string]model.Profile {
	out := make(map[string]model.Profile, len(c.Profiles))
	for name, p := range c.Profiles {
		out[name] = p.ToModel(name)
	}
	return out
}
