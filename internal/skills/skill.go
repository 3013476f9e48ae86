// internal/skills/skill.go
package skills

import (
	"context"
	"encoding/json"
)

// Name identifies a registered skill. The planner emits these and the
// orchestration engine routes on them.
type Name string

const (
	GatherBottomUp  Name = "gather_bottom_up"
	GatherTopDown   Name = "gather_top_down"
	VerifyTargets   Name = "verify_targets"
	CheckExternal   Name = "check_external"
	CheckLiterature Name = "check_literature"
)

// Gathering reports whether a skill produces branch evidence during the
// gathering phase. check_literature is deliberately excluded: it is the
// deferred step and only runs once the candidate pool is frozen.
func (n Name) Gathering() bool {
	switch n {
	case GatherBottomUp, GatherTopDown, VerifyTargets, CheckExternal:
		return true
	}
	return false
}

// Skill is a capability an external collaborator offers to the discovery
// engine. Input and output are JSON so the dispatcher can wrap every
// collaborator uniformly; each skill translates to and from its typed
// payload at its own boundary.
type Skill interface {
	Name() Name
	Description() string
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Registry holds available skills keyed by name.
type Registry struct {
	skills map[Name]Skill
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[Name]Skill)}
}

// Register adds a skill to the registry, keyed by its Name.
func (r *Registry) Register(s Skill) {
	r.skills[s.Name()] = s
}

// Get retrieves a skill by name, returns the skill and a boolean indicating if it was found.
func (r *Registry) Get(name Name) (Skill, bool) {
	s, ok := r.skills[name]
	return s, ok
}

// Names returns the registered skill names, for logging at startup.
func (r *Registry) Names() []Name {
	out := make([]Name, 0, len(r.skills))
	for n := range r.skills {
		out = append(out, n)
	}
	return out
}
