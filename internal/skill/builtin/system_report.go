package builtin

import (
	"context"
	"encoding/json"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/sysinfo"
)

// SystemReport summarizes the machine: OS, CPU, memory, disk, uptime, and
// which developer tools are installed. Read-only.
type SystemReport struct {
	collector *sysinfo.Collector
}

func NewSystemReport(c *sysinfo.Collector) *SystemReport {
	return &SystemReport{collector: c}
}

func (s *SystemReport) ID() string   { return "system_report" }
func (s *SystemReport) Name() string { return "System Report" }

func (s *SystemReport) Description() string {
	return "Check CPU, memory, disk, and system details to help diagnose problems"
}

func (s *SystemReport) Level() skill.PermissionLevel { return skill.LevelSafe }

func (s *SystemReport) Modes() []skill.Mode {
	return []skill.Mode{skill.ModeFix, skill.ModeFind}
}

func (s *SystemReport) ValidateInput(skill.Input) error { return nil }

func (s *SystemReport) Execute(ctx context.Context, in skill.Input, sc *skill.Context) (skill.Output, error) {
	snap := s.collector.Snapshot(ctx)
	return skill.DataOutput(snap.Summary(), snapshotData(snap)), nil
}

// snapshotData flattens the snapshot into the generic data map outputs
// carry, reusing its JSON field names.
func snapshotData(snap sysinfo.Snapshot) map[string]any {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil
	}
	return data
}
