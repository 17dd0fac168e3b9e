package skill

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Gate errors, ordered roughly by how early the check fires. ErrApprovalRequired
// and ErrSudoRequired are recoverable: the host prompts the user and retries.
var (
	ErrNotFound         = errors.New("skill not found")
	ErrModeNotSupported = errors.New("skill does not support this mode")
	ErrPermissionDenied = errors.New("skill is disabled")
	ErrApprovalRequired = errors.New("skill requires user approval")
	ErrSudoRequired     = errors.New("skill requires sudo credentials")
	ErrInvalidInput     = errors.New("invalid skill input")
)

// Skill is one named capability. Implementations must be safe for
// concurrent use; the runner may execute the same skill from several
// goroutines.
type Skill interface {
	// ID is the stable registry key, lower_snake_case.
	ID() string
	Name() string
	Description() string

	// Level is the declared risk tier. It gates execution together with
	// the user's per-skill Permission.
	Level() PermissionLevel

	// Modes lists the working modes this skill serves.
	Modes() []Mode

	// ValidateInput rejects input before any side effect happens.
	ValidateInput(in Input) error

	// Execute runs the skill. Failures a user can act on should come back
	// as an error Output; returned errors are treated as internal faults.
	Execute(ctx context.Context, in Input, sc *Context) (Output, error)
}

// Info is the display form of a registered skill.
type Info struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Level       PermissionLevel `json:"permission_level"`
	Modes       []Mode          `json:"modes"`
	Permission  Permission      `json:"user_permission"`
}

// Registry holds the installed skills and the user's per-skill permission
// settings. All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	perms  map[string]Permission
}

func NewRegistry() *Registry {
	return &Registry{
		skills: map[string]Skill{},
		perms:  map[string]Permission{},
	}
}

// Register installs a skill and seeds its permission from the declared
// level. Duplicate ids are rejected so two skills can never shadow each
// other.
func (r *Registry) Register(s Skill) error {
	if s == nil {
		return errors.New("nil skill")
	}
	id := s.ID()
	if id == "" {
		return errors.New("skill has empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[id]; exists {
		return fmt.Errorf("skill %q already registered", id)
	}
	r.skills[id] = s
	r.perms[id] = DefaultPermission(s.Level())
	return nil
}

// Get returns the skill registered under id.
func (r *Registry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	return s, ok
}

// ForMode returns the skills serving a mode, sorted by id.
func (r *Registry) ForMode(mode Mode) []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Skill
	for _, s := range r.skills {
		if skillServesMode(s, mode) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// List returns display info for every skill, sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.skills))
	for id, s := range r.skills {
		out = append(out, Info{
			ID:          id,
			Name:        s.Name(),
			Description: s.Description(),
			Level:       s.Level(),
			Modes:       s.Modes(),
			Permission:  r.perms[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Permission returns the user's standing setting for a skill.
func (r *Registry) Permission(id string) (Permission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.perms[id]
	return p, ok
}

// SetPermission records the user's decision for a skill.
func (r *Registry) SetPermission(id string, p Permission) error {
	switch p {
	case PermissionAuto, PermissionAsk, PermissionDeny:
	default:
		return fmt.Errorf("unknown permission %q", p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.perms[id] = p
	return nil
}

// CanExecute runs the permission gate for one skill in the session context.
// Check order: existence, mode, deny, sudo, approval. A nil error means the
// skill may run right now.
func (r *Registry) CanExecute(id string, sc *Context) error {
	r.mu.RLock()
	s, ok := r.skills[id]
	perm := r.perms[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !skillServesMode(s, sc.Mode) {
		return fmt.Errorf("%w: %s in %s mode", ErrModeNotSupported, id, sc.Mode)
	}
	if perm == PermissionDeny {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, id)
	}
	if s.Level() == LevelAdmin && !sc.SudoAvailable {
		return fmt.Errorf("%w: %s", ErrSudoRequired, id)
	}
	if r.requiresApproval(s, perm, sc) {
		return fmt.Errorf("%w: %s", ErrApprovalRequired, id)
	}
	return nil
}

// RequiresApproval reports whether invoking the skill now would stop at the
// ask step. Safe skills never ask; a session pre-approval clears the ask.
func (r *Registry) RequiresApproval(id string, sc *Context) bool {
	r.mu.RLock()
	s, ok := r.skills[id]
	perm := r.perms[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return r.requiresApproval(s, perm, sc)
}

func (r *Registry) requiresApproval(s Skill, perm Permission, sc *Context) bool {
	if s.Level() == LevelSafe {
		return false
	}
	return perm == PermissionAsk && !sc.SessionApproved(s.ID())
}

func skillServesMode(s Skill, mode Mode) bool {
	for _, m := range s.Modes() {
		if m == mode {
			return true
		}
	}
	return false
}
