package auditlog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind buckets audit entries for filtering.
type Kind string

const (
	KindSkillExec  Kind = "skill_exec"
	KindFileOp     Kind = "file_op"
	KindPermChange Kind = "perm_change"
	KindCommand    Kind = "command"
	KindError      Kind = "error"
)

// Entry is one audit record. Detail must stay small and never carry
// secrets; entries outlive the session that wrote them.
type Entry struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Kind      Kind   `json:"kind"`

	SkillID string `json:"skill_id,omitempty"`
	Path    string `json:"path,omitempty"`

	// Action is a short human-readable statement of what happened.
	Action string `json:"action"`

	Detail map[string]any `json:"detail,omitempty"`

	// UserVisible selects entries for the user-facing activity panel.
	UserVisible bool `json:"user_visible"`
}

func newEntry(kind Kind) Entry {
	return Entry{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		Kind:        kind,
		UserVisible: true,
	}
}

// SkillExecution records a skill run.
func SkillExecution(skillID, action string, detail map[string]any) Entry {
	e := newEntry(KindSkillExec)
	e.SkillID = skillID
	e.Action = action
	e.Detail = detail
	return e
}

// FileOperation records a file a skill touched. The caller phrases the
// action ("File archived to ...") and supplies any structured detail.
func FileOperation(path, action, skillID string, detail map[string]any) Entry {
	e := newEntry(KindFileOp)
	e.Path = path
	e.Action = action
	e.SkillID = skillID
	e.Detail = detail
	return e
}

// PermissionChange records a skill permission transition.
func PermissionChange(skillID, from, to string) Entry {
	e := newEntry(KindPermChange)
	e.SkillID = skillID
	e.Action = "Permission changed from " + from + " to " + to
	return e
}

// CommandRun records a shell command the agent executed.
func CommandRun(command, summary string, success bool) Entry {
	e := newEntry(KindCommand)
	e.Action = summary
	e.Detail = map[string]any{"command": command, "success": success}
	return e
}

// Failure records an error worth keeping in the activity trail.
func Failure(message, skillID, path string) Entry {
	e := newEntry(KindError)
	e.Action = message
	e.SkillID = skillID
	e.Path = path
	return e
}

// Internal hides the entry from the user-facing panel.
func (e Entry) Internal() Entry {
	e.UserVisible = false
	return e
}

// Filter selects entries in Query. The zero value matches everything.
type Filter struct {
	Kinds           []Kind
	SkillID         string
	PathPrefix      string
	UserVisibleOnly bool
	Limit           int
}

func (f Filter) matches(e Entry) bool {
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if e.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SkillID != "" && e.SkillID != f.SkillID {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(e.Path, f.PathPrefix) {
		return false
	}
	if f.UserVisibleOnly && !e.UserVisible {
		return false
	}
	return true
}
