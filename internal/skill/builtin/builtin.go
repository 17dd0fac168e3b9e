// Package builtin holds the skills that ship with the app: a system report,
// safe file organization, and web research.
package builtin

import (
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/sysinfo"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/websearch"
)

// Deps are the shared services the builtin skills draw on.
type Deps struct {
	Sysinfo *sysinfo.Collector
	Search  *websearch.Client

	// SearchEnabled gates web research on the user's internet toggle,
	// checked at execution time so settings changes apply immediately.
	SearchEnabled func() bool

	// ArchiveDir is where file_organize archives to.
	ArchiveDir string
}

// RegisterAll installs every builtin skill into the registry.
func RegisterAll(reg *skill.Registry, deps Deps) error {
	skills := []skill.Skill{
		NewSystemReport(deps.Sysinfo),
		NewFileOrganize(skill.NewFileOps(deps.ArchiveDir)),
		NewWebResearch(deps.Search, deps.SearchEnabled),
	}
	for _, s := range skills {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}
