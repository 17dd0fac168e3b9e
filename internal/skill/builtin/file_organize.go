package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
)

// FileOrganize moves, copies, archives, and sorts files. Every mutation
// goes through skill.FileOps, so nothing this skill does can delete data;
// deletion requests are refused with archive alternatives.
type FileOrganize struct {
	ops *skill.FileOps
}

func NewFileOrganize(ops *skill.FileOps) *FileOrganize {
	return &FileOrganize{ops: ops}
}

func (s *FileOrganize) ID() string   { return "file_organize" }
func (s *FileOrganize) Name() string { return "Organize Files" }

func (s *FileOrganize) Description() string {
	return "Safely organize, move, and archive files (no deletion - files are always preserved)"
}

// Level is sensitive: the skill rearranges the file system.
func (s *FileOrganize) Level() skill.PermissionLevel { return skill.LevelSensitive }

func (s *FileOrganize) Modes() []skill.Mode {
	return []skill.Mode{skill.ModeFind, skill.ModeFix}
}

func (s *FileOrganize) ValidateInput(in skill.Input) error {
	if strings.TrimSpace(in.Query) == "" && len(in.Params) == 0 {
		return errors.New("please tell me how you'd like to organize your files")
	}
	return nil
}

type organizeAction string

const (
	actionArchive  organizeAction = "archive"
	actionMove     organizeAction = "move"
	actionCopy     organizeAction = "copy"
	actionOrganize organizeAction = "organize"
	actionUnknown  organizeAction = "unknown"
)

func parseOrganizeAction(query string) organizeAction {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "archive"):
		return actionArchive
	case strings.Contains(q, "move") || strings.Contains(q, "rename"):
		return actionMove
	case strings.Contains(q, "copy") || strings.Contains(q, "duplicate"):
		return actionCopy
	case strings.Contains(q, "organize") || strings.Contains(q, "sort"):
		return actionOrganize
	}
	return actionUnknown
}

func (s *FileOrganize) Execute(ctx context.Context, in skill.Input, sc *skill.Context) (skill.Output, error) {
	// Deletion requests never reach the file system.
	if skill.DetectDeletionIntent(in.Query) {
		path := in.StringParam("path")
		if path == "" {
			path = skill.ExtractPathFromQuery(in.Query)
		}
		return skill.DeletionRefusal(path), nil
	}

	action := organizeAction(in.StringParam("action"))
	switch action {
	case actionArchive, actionMove, actionCopy, actionOrganize:
	default:
		action = parseOrganizeAction(in.Query)
	}

	source := in.StringParam("path")
	if source == "" {
		source = skill.ExtractPathFromQuery(in.Query)
	}
	dest := in.StringParam("destination")

	switch action {
	case actionArchive:
		return s.archive(source, sc)
	case actionMove:
		return s.move(source, dest, sc)
	case actionCopy:
		return s.copy(source, dest, sc)
	case actionOrganize:
		return s.organizeDir(ctx, source, sc)
	default:
		return skill.TextOutput(organizeHelp), nil
	}
}

const organizeHelp = "How would you like to organize your files?\n\n" +
	"I can help you:\n" +
	"- **Archive** files (safely store them with timestamps)\n" +
	"- **Move** files to different folders\n" +
	"- **Copy** files to backup locations\n" +
	"- **Sort** a folder into subfolders by file type\n\n" +
	"Note: I never delete files - your data is always safe!\n\n" +
	"Example commands:\n" +
	"- \"archive old_project.zip\"\n" +
	"- \"move report.pdf to ~/Documents/2024/\"\n" +
	"- \"copy config.yaml to ~/backup/\"\n" +
	"- \"sort my Downloads folder\""

func (s *FileOrganize) archive(source string, sc *skill.Context) (skill.Output, error) {
	if source == "" {
		return skill.TextOutput("Please specify which file to archive.\n\nExample: \"archive old_report.pdf\""), nil
	}
	path := skill.ResolvePath(source, sc.WorkingDir)
	if !s.ops.Exists(path) {
		return skill.TextOutput(fmt.Sprintf("File not found: %s\n\nPlease check the path and try again.", path)), nil
	}

	result, err := s.ops.Archive(path)
	if err != nil {
		return skill.ErrorOutput(fmt.Sprintf("Failed to archive file: %v", err)), nil
	}
	text := fmt.Sprintf("Archived '%s'\n\nThe file has been moved to:\n%s\n\nYou can restore it anytime from the archive.",
		filepath.Base(path), result.Path)
	return skill.Output{
		ResultType: skill.ResultFiles,
		Text:       text,
		Files:      []skill.FileResult{result},
		Data: map[string]any{
			"action":        "archived",
			"original_path": path,
			"archive_path":  result.Path,
		},
	}, nil
}

func (s *FileOrganize) move(source, dest string, sc *skill.Context) (skill.Output, error) {
	if source == "" {
		return skill.TextOutput("Please specify the file to move and destination.\n\nExample: \"move report.pdf to ~/Documents/Reports/\""), nil
	}
	from := skill.ResolvePath(source, sc.WorkingDir)
	if dest == "" {
		return skill.TextOutput(fmt.Sprintf("Where would you like to move '%s'?\n\nExample: \"move %s to ~/Documents/\"",
			filepath.Base(from), from)), nil
	}
	if !s.ops.Exists(from) {
		return skill.TextOutput(fmt.Sprintf("File not found: %s", from)), nil
	}

	to := skill.ResolvePath(dest, sc.WorkingDir)
	if info, err := os.Stat(to); err == nil && info.IsDir() {
		to = filepath.Join(to, filepath.Base(from))
	}

	result, err := s.ops.Move(from, to)
	if err != nil {
		return skill.ErrorOutput(fmt.Sprintf("Failed to move file: %v", err)), nil
	}
	text := fmt.Sprintf("Moved '%s'\n\nFrom: %s\nTo: %s", filepath.Base(from), from, to)
	return skill.Output{
		ResultType: skill.ResultFiles,
		Text:       text,
		Files:      []skill.FileResult{result},
		Data: map[string]any{
			"action": "moved",
			"from":   from,
			"to":     to,
		},
	}, nil
}

func (s *FileOrganize) copy(source, dest string, sc *skill.Context) (skill.Output, error) {
	if source == "" {
		return skill.TextOutput("Please specify the file to copy and destination.\n\nExample: \"copy config.yaml to ~/backup/\""), nil
	}
	from := skill.ResolvePath(source, sc.WorkingDir)
	if dest == "" {
		return skill.TextOutput(fmt.Sprintf("Where would you like to copy '%s'?", filepath.Base(from))), nil
	}
	if !s.ops.Exists(from) {
		return skill.TextOutput(fmt.Sprintf("File not found: %s", from)), nil
	}

	to := skill.ResolvePath(dest, sc.WorkingDir)
	if info, err := os.Stat(to); err == nil && info.IsDir() {
		to = filepath.Join(to, filepath.Base(from))
	}

	result, err := s.ops.Copy(from, to)
	if err != nil {
		return skill.ErrorOutput(fmt.Sprintf("Failed to copy file: %v", err)), nil
	}
	text := fmt.Sprintf("Copied '%s'\n\nOriginal: %s\nCopy: %s", filepath.Base(from), from, to)
	return skill.Output{
		ResultType: skill.ResultFiles,
		Text:       text,
		Files:      []skill.FileResult{result},
		Data: map[string]any{
			"action": "copied",
			"source": from,
			"copy":   to,
		},
	}, nil
}

// maxListedMoves caps how many per-file results a directory sweep reports.
const maxListedMoves = 20

// organizeDir sorts the files directly inside a directory into subfolders
// named after their category. Files already sorted, hidden files, and
// subdirectories stay put.
func (s *FileOrganize) organizeDir(ctx context.Context, source string, sc *skill.Context) (skill.Output, error) {
	if source == "" {
		return skill.TextOutput("Please specify which folder to sort.\n\nExample: \"sort my Downloads folder into subfolders\" with the folder path."), nil
	}
	dir := skill.ResolvePath(source, sc.WorkingDir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return skill.TextOutput(fmt.Sprintf("Folder not found: %s\n\nPlease check the path and try again.", dir)), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return skill.ErrorOutput(fmt.Sprintf("Failed to read folder: %v", err)), nil
	}

	var files []skill.FileResult
	folders := map[string]int{}
	moved, skipped := 0, 0
	for i, entry := range entries {
		if ctx.Err() != nil {
			return skill.ErrorOutput("Sorting was interrupted; some files may already be in their new folders."), nil
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		skill.Progress(ctx, i*100/len(entries), entry.Name())

		category := categorize(entry.Name())
		target := filepath.Join(dir, category, entry.Name())
		result, err := s.ops.Move(filepath.Join(dir, entry.Name()), target)
		if err != nil {
			// A same-named file already sorted blocks the move; leave
			// the original in place.
			skipped++
			continue
		}
		moved++
		folders[category]++
		if len(files) < maxListedMoves {
			files = append(files, result)
		}
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Sorted '%s'\n\n", dir)
	if moved == 0 {
		text.WriteString("Nothing to sort - every file is already in place.")
	} else {
		fmt.Fprintf(&text, "Moved %d files into %d folders:\n", moved, len(folders))
		for _, name := range sortedKeys(folders) {
			fmt.Fprintf(&text, "- %s: %d\n", name, folders[name])
		}
	}
	if skipped > 0 {
		fmt.Fprintf(&text, "\nSkipped %d files that already exist in their folders.", skipped)
	}

	return skill.Output{
		ResultType: skill.ResultFiles,
		Text:       text.String(),
		Files:      files,
		Data: map[string]any{
			"action":  "organized",
			"path":    dir,
			"moved":   moved,
			"skipped": skipped,
			"folders": folders,
		},
	}, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// categorize buckets a file by extension into the subfolder it belongs in.
func categorize(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "pdf", "doc", "docx", "txt", "rtf", "odt", "xls", "xlsx", "ppt", "pptx", "csv", "md":
		return "Documents"
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp", "raw", "heic", "svg":
		return "Images"
	case "mp4", "avi", "mkv", "mov", "wmv", "flv", "webm", "m4v", "mpg", "mpeg":
		return "Videos"
	case "mp3", "wav", "flac", "aac", "ogg", "m4a", "wma":
		return "Audio"
	case "zip", "rar", "7z", "tar", "gz", "bz2", "xz", "tgz":
		return "Archives"
	case "rs", "js", "ts", "py", "java", "cpp", "c", "h", "go", "rb", "php", "swift":
		return "Code"
	}
	return "Other"
}
