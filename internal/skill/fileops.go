package skill

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// archiveStampLayout names archive subdirectories by creation time.
const archiveStampLayout = "20060102_150405"

// FileOps is the only path skills take to the file system. It can create,
// modify, move, copy, and archive files. It has no delete method; archiving
// moves a file into a timestamped folder instead, so every operation keeps
// the data recoverable.
type FileOps struct {
	archiveDir string
}

// NewFileOps returns file operations archiving under archiveDir.
func NewFileOps(archiveDir string) *FileOps {
	return &FileOps{archiveDir: archiveDir}
}

// ArchiveDir returns the base directory archived files land under.
func (f *FileOps) ArchiveDir() string { return f.archiveDir }

// Create writes a new file. It refuses to touch an existing one.
func (f *FileOps) Create(path string, content []byte) (FileResult, error) {
	if pathExists(path) {
		return FileResult{}, fmt.Errorf("file already exists: %s (use Modify to update existing files)", path)
	}
	if err := ensureParent(path); err != nil {
		return FileResult{}, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return FileResult{}, fmt.Errorf("create %s: %w", path, err)
	}
	return FileResult{Path: path, Action: ActionCreated}, nil
}

// Modify overwrites an existing file. It refuses to create one.
func (f *FileOps) Modify(path string, content []byte) (FileResult, error) {
	if !pathExists(path) {
		return FileResult{}, fmt.Errorf("file does not exist: %s (use Create to create new files)", path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return FileResult{}, fmt.Errorf("modify %s: %w", path, err)
	}
	return FileResult{Path: path, Action: ActionModified}, nil
}

// Write upserts: it creates the file or overwrites it, and reports which.
func (f *FileOps) Write(path string, content []byte) (FileResult, error) {
	existed := pathExists(path)
	if err := ensureParent(path); err != nil {
		return FileResult{}, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return FileResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	action := ActionCreated
	if existed {
		action = ActionModified
	}
	return FileResult{Path: path, Action: action}, nil
}

// Append adds content to the end of a file, creating it when missing.
func (f *FileOps) Append(path string, content []byte) (FileResult, error) {
	existed := pathExists(path)
	if err := ensureParent(path); err != nil {
		return FileResult{}, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return FileResult{}, fmt.Errorf("open %s for append: %w", path, err)
	}
	defer file.Close()
	if _, err := file.Write(content); err != nil {
		return FileResult{}, fmt.Errorf("append to %s: %w", path, err)
	}
	action := ActionCreated
	if existed {
		action = ActionModified
	}
	return FileResult{Path: path, Action: action}, nil
}

// Move renames a file. An existing destination is never overwritten; the
// caller must archive it first.
func (f *FileOps) Move(from, to string) (FileResult, error) {
	if !pathExists(from) {
		return FileResult{}, fmt.Errorf("source file does not exist: %s", from)
	}
	if pathExists(to) {
		return FileResult{}, fmt.Errorf("destination already exists: %s (archive it first)", to)
	}
	if err := ensureParent(to); err != nil {
		return FileResult{}, err
	}
	if err := os.Rename(from, to); err != nil {
		return FileResult{}, fmt.Errorf("move %s to %s: %w", from, to, err)
	}
	return FileResult{Path: to, Action: ActionMoved, Detail: from}, nil
}

// Copy duplicates a file, leaving the source in place.
func (f *FileOps) Copy(from, to string) (FileResult, error) {
	if !pathExists(from) {
		return FileResult{}, fmt.Errorf("source file does not exist: %s", from)
	}
	if err := ensureParent(to); err != nil {
		return FileResult{}, err
	}
	src, err := os.Open(from)
	if err != nil {
		return FileResult{}, fmt.Errorf("copy %s: %w", from, err)
	}
	defer src.Close()
	dst, err := os.Create(to)
	if err != nil {
		return FileResult{}, fmt.Errorf("copy to %s: %w", to, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return FileResult{}, fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	return FileResult{Path: to, Action: ActionCreated}, nil
}

// Archive moves a file into a timestamped folder under the archive
// directory. This is the system's only answer to "delete".
func (f *FileOps) Archive(path string) (FileResult, error) {
	return f.archive(path, "")
}

// ArchiveTo archives into a named subdirectory, for grouping by category
// or project.
func (f *FileOps) ArchiveTo(path, subdir string) (FileResult, error) {
	return f.archive(path, subdir)
}

func (f *FileOps) archive(path, subdir string) (FileResult, error) {
	if !pathExists(path) {
		return FileResult{}, fmt.Errorf("file does not exist: %s", path)
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		name = "unknown"
	}
	dir := f.archiveDir
	if subdir != "" {
		dir = filepath.Join(dir, subdir)
	}
	dir = filepath.Join(dir, time.Now().Format(archiveStampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileResult{}, fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	// Same name archived twice within one second must not overwrite the
	// first copy.
	target := uniquePath(filepath.Join(dir, name))
	if err := os.Rename(path, target); err != nil {
		return FileResult{}, fmt.Errorf("archive %s to %s: %w", path, target, err)
	}
	return FileResult{Path: target, Action: ActionArchived, Detail: path}, nil
}

// EnsureDir creates a directory and any missing parents.
func (f *FileOps) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a path exists.
func (f *FileOps) Exists(path string) bool { return pathExists(path) }

// Read returns a file's contents.
func (f *FileOps) Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// ReadString returns a file's contents as a string.
func (f *FileOps) ReadString(path string) (string, error) {
	b, err := f.Read(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func ensureParent(path string) error {
	parent := filepath.Dir(path)
	if parent == "" || parent == "." {
		return nil
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create parent directories for %s: %w", path, err)
	}
	return nil
}

func uniquePath(path string) string {
	if !pathExists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !pathExists(candidate) {
			return candidate
		}
	}
}

// deletePatterns are the phrases and command fragments that mark a request
// as a deletion. Matching is case-insensitive substring.
var deletePatterns = []string{
	"delete",
	"remove",
	"erase",
	"trash",
	"get rid of",
	"throw away",
	"eliminate",
	"destroy",
	"wipe",
	"clear out",
	"purge",
	"discard",
	"dispose",
	"rm ",
	"rm -",
	"unlink",
}

// DetectDeletionIntent reports whether a query is asking for a deletion.
// Hosts refuse such requests up front and offer archiving instead.
func DetectDeletionIntent(query string) bool {
	q := strings.ToLower(query)
	for _, p := range deletePatterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// DeletionRefusal builds the structured output returned for a deletion
// request: an explanation, the machine-readable refusal record, and archive
// or move follow-ups when a concrete file was named.
func DeletionRefusal(filePath string) Output {
	message := "I can't delete files - that's a safety feature to protect your data.\n\n" +
		"Instead, I can help you:\n\n" +
		"- **Archive** the file (moves it to a dated archive folder)\n" +
		"- **Move** it to a different location\n" +
		"- **Organize** it into a better folder structure\n\n" +
		fmt.Sprintf("Would you like me to archive '%s' instead?\n\n", filePath) +
		"Archived files can always be restored later."

	out := Output{
		ResultType: ResultText,
		Text:       message,
		Data: map[string]any{
			"action":      "deletion_refused",
			"reason":      "no_delete_policy",
			"alternative": "archive",
			"file_path":   filePath,
		},
	}
	if filePath != "" {
		out.SuggestedActions = []SuggestedAction{
			{
				Label:   "Archive instead",
				SkillID: "file_organize",
				Params:  map[string]any{"path": filePath, "action": "archive"},
			},
			{
				Label:   "Move to different folder",
				SkillID: "file_organize",
				Params:  map[string]any{"path": filePath, "action": "move"},
			},
		}
	}
	return out
}

// ExtractPathFromQuery pulls a likely file path out of natural language:
// a quoted span first (handles names with spaces), then the first word
// carrying a file extension.
func ExtractPathFromQuery(query string) string {
	if start := strings.IndexByte(query, '"'); start >= 0 {
		if end := strings.LastIndexByte(query, '"'); end > start {
			return query[start+1 : end]
		}
	}
	for _, word := range strings.Fields(query) {
		clean := strings.TrimFunc(word, func(r rune) bool {
			switch r {
			case '.', '/', '\\', '_', '-':
				return false
			}
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if strings.Contains(clean, ".") && !strings.HasPrefix(clean, ".") && len(clean) > 2 {
			return clean
		}
	}
	return ""
}

// ResolvePath anchors a user-supplied path: absolute stays, ~/ expands to
// the home directory, everything else is relative to the working directory.
func ResolvePath(path, workingDir string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	return filepath.Join(workingDir, path)
}
