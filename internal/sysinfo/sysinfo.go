// Package sysinfo collects a host snapshot used two ways: rendered as a
// short system-context preamble for prompts (only when the user opted in
// with share_system_summary) and returned whole by the system_report
// skill.
package sysinfo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// cacheTTL bounds how often the host is probed; tool lookups and process
// walks are cheap but not free, and prompt preambles don't need
// second-resolution freshness.
const cacheTTL = 30 * time.Second

const projectDirEntryLimit = 10

// Snapshot is a point-in-time host summary. Fields the probe could not
// fill stay at their zero value; Summary skips them.
type Snapshot struct {
	Hostname        string `json:"hostname"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty"`
	Username        string `json:"username,omitempty"`

	CPUModel string `json:"cpu_model,omitempty"`
	CPUCores int    `json:"cpu_cores"`

	MemoryTotalBytes uint64 `json:"memory_total_bytes"`
	MemoryUsedBytes  uint64 `json:"memory_used_bytes"`
	DiskTotalBytes   uint64 `json:"disk_total_bytes"`
	DiskFreeBytes    uint64 `json:"disk_free_bytes"`
	UptimeSeconds    uint64 `json:"uptime_seconds"`

	HomeDir        string       `json:"home_dir,omitempty"`
	AvailableTools []string     `json:"available_tools"`
	ProjectDirs    []ProjectDir `json:"project_dirs,omitempty"`

	CollectedAtMs int64 `json:"collected_at_ms"`
}

// ProjectDir lists up to projectDirEntryLimit subdirectories of a common
// project location under the user's home.
type ProjectDir struct {
	Name    string   `json:"name"`
	Entries []string `json:"entries"`
}

// Collector caches snapshots so repeated prompt builds within a turn do
// not re-probe the host.
type Collector struct {
	log *slog.Logger

	mu      sync.Mutex
	hasSnap bool
	snap    Snapshot
	takenAt time.Time
}

func NewCollector(log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{log: log}
}

// Snapshot returns the cached snapshot, collecting a fresh one when the
// cache is older than cacheTTL. Collection never fails outright; metrics
// that error are logged and left zero.
func (c *Collector) Snapshot(ctx context.Context) Snapshot {
	now := time.Now()

	c.mu.Lock()
	if c.hasSnap && now.Sub(c.takenAt) < cacheTTL {
		out := c.snap
		c.mu.Unlock()
		return out
	}
	c.mu.Unlock()

	snap := c.collect(ctx)

	c.mu.Lock()
	c.snap = snap
	c.hasSnap = true
	c.takenAt = now
	c.mu.Unlock()

	return snap
}

func (c *Collector) collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Platform:      runtime.GOOS,
		CollectedAtMs: time.Now().UnixMilli(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		snap.Hostname = info.Hostname
		if info.Platform != "" {
			snap.Platform = info.Platform
		}
		snap.PlatformVersion = info.PlatformVersion
		snap.KernelArch = info.KernelArch
		snap.UptimeSeconds = info.Uptime
	} else if err != nil {
		c.log.Warn("sysinfo: host info failed", "error", err)
	}

	if u, err := user.Current(); err == nil && u != nil {
		snap.Username = u.Username
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCores = cores
	} else {
		c.log.Warn("sysinfo: cpu count failed", "error", err)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.CPUModel = strings.TrimSpace(infos[0].ModelName)
	} else if err != nil {
		c.log.Warn("sysinfo: cpu info failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		snap.MemoryTotalBytes = vm.Total
		snap.MemoryUsedBytes = vm.Used
	} else if err != nil {
		c.log.Warn("sysinfo: memory failed", "error", err)
	}

	if usage, err := disk.UsageWithContext(ctx, rootPath()); err == nil && usage != nil {
		snap.DiskTotalBytes = usage.Total
		snap.DiskFreeBytes = usage.Free
	} else if err != nil {
		c.log.Warn("sysinfo: disk usage failed", "error", err)
	}

	snap.AvailableTools = probeTools()

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		snap.HomeDir = home
		snap.ProjectDirs = listProjectDirs(home)
	}

	return snap
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// probeTools reports which common developer tools are on PATH, so the
// model suggests commands the machine can actually run.
func probeTools() []string {
	var candidates []string
	if runtime.GOOS == "windows" {
		candidates = []string{"python", "pip", "curl", "git", "node", "npm", "cargo", "rustc", "powershell"}
	} else {
		candidates = []string{"python3", "pip3", "curl", "wget", "jq", "git", "docker", "node", "npm", "cargo", "rustc"}
	}

	found := make([]string, 0, len(candidates))
	for _, tool := range candidates {
		if _, err := exec.LookPath(tool); err == nil {
			found = append(found, tool)
		}
	}
	return found
}

// listProjectDirs samples the common project locations under home.
func listProjectDirs(home string) []ProjectDir {
	var out []ProjectDir
	for _, name := range []string{"Projects", "Documents", "repos"} {
		entries, err := os.ReadDir(filepath.Join(home, name))
		if err != nil {
			continue
		}
		var dirs []string
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dirs = append(dirs, e.Name())
			if len(dirs) >= projectDirEntryLimit {
				break
			}
		}
		if len(dirs) > 0 {
			out = append(out, ProjectDir{Name: name, Entries: dirs})
		}
	}
	return out
}

// Summary renders the snapshot as the prompt preamble. One fact per line;
// unknown fields are skipped rather than printed empty.
func (s Snapshot) Summary() string {
	var b strings.Builder

	osLine := s.Platform
	if s.PlatformVersion != "" {
		osLine += " " + s.PlatformVersion
	}
	if s.KernelArch != "" {
		osLine += " (" + s.KernelArch + ")"
	}
	fmt.Fprintf(&b, "OS: %s\n", osLine)

	if s.Hostname != "" {
		fmt.Fprintf(&b, "Hostname: %s\n", s.Hostname)
	}
	if s.Username != "" {
		fmt.Fprintf(&b, "User: %s\n", s.Username)
	}
	if s.CPUModel != "" || s.CPUCores > 0 {
		model := s.CPUModel
		if model == "" {
			model = "unknown"
		}
		fmt.Fprintf(&b, "CPU: %s (%d cores)\n", model, s.CPUCores)
	}
	if s.MemoryTotalBytes > 0 {
		fmt.Fprintf(&b, "Memory: %s used of %s\n", humanBytes(s.MemoryUsedBytes), humanBytes(s.MemoryTotalBytes))
	}
	if s.DiskTotalBytes > 0 {
		fmt.Fprintf(&b, "Disk: %s free of %s\n", humanBytes(s.DiskFreeBytes), humanBytes(s.DiskTotalBytes))
	}
	if s.UptimeSeconds > 0 {
		fmt.Fprintf(&b, "Uptime: %s\n", humanDuration(s.UptimeSeconds))
	}
	if len(s.AvailableTools) > 0 {
		fmt.Fprintf(&b, "Available tools: %s\n", strings.Join(s.AvailableTools, ", "))
	}
	if s.HomeDir != "" {
		fmt.Fprintf(&b, "Home: %s\n", s.HomeDir)
	}
	for _, pd := range s.ProjectDirs {
		fmt.Fprintf(&b, "%s: %s\n", pd.Name, strings.Join(pd.Entries, ", "))
	}

	return b.String()
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func humanDuration(seconds uint64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
