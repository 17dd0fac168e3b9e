package skill

import (
	"sync"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/auditlog"
)

// Auditor receives the audit entries skills and the runner emit. The
// concrete implementation is auditlog.Store; tests substitute their own.
type Auditor interface {
	Append(auditlog.Entry)
}

// Context carries the per-session environment a skill executes in. One
// Context lives for the whole session; the approval set accumulates as the
// user pre-approves sensitive skills.
type Context struct {
	// Mode is the active working mode; the registry rejects skills that
	// do not serve it.
	Mode Mode

	// WorkingDir anchors relative paths in skill input.
	WorkingDir string

	// DataDir is the app state directory; safe file ops archive under it.
	DataDir string

	// AllowList is the set of directories skills may touch.
	AllowList []string

	// Auditor, when set, receives one entry per skill run and per file
	// operation. Nil disables auditing.
	Auditor Auditor

	// SudoAvailable reports that sudo credentials were collected this
	// session. Admin-level skills refuse to run without it.
	SudoAvailable bool

	mu        sync.Mutex
	approvals map[string]struct{}
}

// NewContext builds a session context for one mode.
func NewContext(mode Mode, workingDir, dataDir string) *Context {
	return &Context{
		Mode:       mode,
		WorkingDir: workingDir,
		DataDir:    dataDir,
		approvals:  map[string]struct{}{},
	}
}

// ApproveForSession records that the user pre-approved a skill; later
// invocations in this session skip the ask step.
func (c *Context) ApproveForSession(skillID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approvals == nil {
		c.approvals = map[string]struct{}{}
	}
	c.approvals[skillID] = struct{}{}
}

// SessionApproved reports whether a skill was pre-approved this session.
func (c *Context) SessionApproved(skillID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.approvals[skillID]
	return ok
}

func (c *Context) audit(e auditlog.Entry) {
	if c.Auditor != nil {
		c.Auditor.Append(e)
	}
}
