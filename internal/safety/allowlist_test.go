package safety

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContainsForbiddenShellOps_ChainingBlocked(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"ls; rm -rf /tmp/x":       ";",
		"ls && rm file":           "&&",
		"true || rm file":         "||",
		"echo `id`":               "`",
		"echo $(whoami)":          "$()",
		"cat <<EOF":               "<<",
		"sleep 30 &":              "&",
		"python server.py & echo": "&",
	}
	for cmd, want := range cases {
		op, found := ContainsForbiddenShellOps(cmd)
		if !found {
			t.Fatalf("ContainsForbiddenShellOps(%q) found nothing, want %q", cmd, want)
		}
		if op != want {
			t.Fatalf("ContainsForbiddenShellOps(%q)=%q, want %q", cmd, op, want)
		}
	}
}

func TestContainsForbiddenShellOps_AllowsPipesAndRedirects(t *testing.T) {
	t.Parallel()

	allowed := []string{
		"grep -r TODO . | wc -l",
		"ls -la > listing.txt",
		"make build 2>&1",
		"cat notes.txt | sort | uniq",
		"echo $HOME",
	}
	for _, cmd := range allowed {
		if op, found := ContainsForbiddenShellOps(cmd); found {
			t.Fatalf("ContainsForbiddenShellOps(%q) flagged %q, want none", cmd, op)
		}
	}
}

func TestContainsForbiddenShellOps_QuotedOperatorsIgnored(t *testing.T) {
	t.Parallel()

	if op, found := ContainsForbiddenShellOps(`echo 'a; b && c'`); found {
		t.Fatalf("single-quoted operators flagged %q, want none", op)
	}
	if op, found := ContainsForbiddenShellOps(`grep "x || y" notes.txt`); found {
		t.Fatalf("double-quoted operators flagged %q, want none", op)
	}
}

func TestValidateCommand_EmptyAllowListRejects(t *testing.T) {
	t.Parallel()

	err := ValidateCommand("ls ~/Documents", nil)
	if err == nil {
		t.Fatal("expected error for empty allow list")
	}
	if !strings.Contains(err.Error(), "No folders are allowed") {
		t.Fatalf("err=%q, want allow-list message", err)
	}
}

func TestValidateCommand_PathInsideAllowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := ValidateCommand("cat "+file, []string{dir}); err != nil {
		t.Fatalf("ValidateCommand: %v", err)
	}
}

func TestValidateCommand_PathOutsideAllowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := ValidateCommand("cat /etc/passwd", []string{dir})
	if err == nil {
		t.Fatal("expected error for out-of-scope path")
	}
	if !strings.Contains(err.Error(), "outside the allowed folders") {
		t.Fatalf("err=%q, want outside-folders message", err)
	}
}

func TestValidateCommand_TraversalEscapeRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := ValidateCommand("cat "+dir+"/../escape.txt", []string{dir})
	if err == nil {
		t.Fatal("expected error for traversal escape")
	}
}

func TestValidateCommand_MissingLeafJudgedByParent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "fresh-output.txt")
	if err := ValidateCommand("ls -la > "+target, []string{dir}); err != nil {
		t.Fatalf("ValidateCommand: %v", err)
	}
}

func TestValidateCommand_SensitivePathRefused(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := ValidateCommand("cat "+dir+"/.ssh/id_rsa", []string{dir})
	if err == nil {
		t.Fatal("expected error for sensitive path")
	}
	if !strings.Contains(err.Error(), "sensitive path") {
		t.Fatalf("err=%q, want sensitive-path message", err)
	}
}

func TestValidateCommand_EnvDumpRefused(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, cmd := range []string{"env", "printenv", "env | grep PATH"} {
		err := ValidateCommand(cmd, []string{dir})
		if err == nil {
			t.Fatalf("ValidateCommand(%q) succeeded, want privacy refusal", cmd)
		}
		if !strings.Contains(err.Error(), "environment variables") {
			t.Fatalf("err=%q, want privacy message", err)
		}
	}
}

func TestValidateCommand_ForbiddenOpNamedInError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := ValidateCommand("ls "+dir+" && rm -rf "+dir, []string{dir})
	if err == nil {
		t.Fatal("expected error for chained command")
	}
	if !strings.Contains(err.Error(), "(&&)") {
		t.Fatalf("err=%q, want operator named", err)
	}
}

func TestValidateCommand_GlobPrefixChecked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := ValidateCommand("ls "+dir+"/*.txt", []string{dir}); err != nil {
		t.Fatalf("ValidateCommand: %v", err)
	}
	if err := ValidateCommand("ls /opt/*.txt", []string{dir}); err == nil {
		t.Fatal("expected error for glob outside allowed dirs")
	}
}

func TestIsPathInAllowedDirs_EmptyList(t *testing.T) {
	t.Parallel()

	if IsPathInAllowedDirs("/anything", nil) {
		t.Fatal("empty allow list must admit nothing")
	}
}

func TestIsPathInAllowedDirs_SubpathAllowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !IsPathInAllowedDirs(sub, []string{dir}) {
		t.Fatalf("subpath %q should be allowed under %q", sub, dir)
	}
	if IsPathInAllowedDirs(filepath.Dir(dir), []string{dir}) {
		t.Fatal("parent of allowed dir must not be allowed")
	}
}
