package safety

import "strings"

// DangerLevel grades how much oversight a shell command needs before it may
// run. Classification is static and fails closed: anything unrecognized
// requires confirmation.
type DangerLevel string

const (
	DangerLevelSafe              DangerLevel = "safe"
	DangerLevelNeedsConfirmation DangerLevel = "needs_confirmation"
	DangerLevelDangerous         DangerLevel = "dangerous"
	DangerLevelNeedsSudo         DangerLevel = "needs_sudo"
	DangerLevelBlocked           DangerLevel = "blocked"
)

// Rank orders levels by how much intervention they demand. Higher is stricter.
func (l DangerLevel) Rank() int {
	switch l {
	case DangerLevelSafe:
		return 0
	case DangerLevelNeedsConfirmation:
		return 1
	case DangerLevelDangerous:
		return 2
	case DangerLevelNeedsSudo:
		return 3
	case DangerLevelBlocked:
		return 4
	default:
		return 1
	}
}

// Matching happens on the lowercased command, so every table entry is lower
// case. Blocked entries match anywhere in the command; dangerous entries match
// as a prefix or after a space; the remaining tables match as prefixes only.

var blockedSubstrings = []string{
	// Unix system destruction
	"rm -rf /",
	"rm -rf /*",
	":(){ :|:& };:",
	// Unix format/wipe
	"mkfs",
	"dd if=/dev/zero",
	"dd if=/dev/random",
	// Unix raw-device redirects
	"> /dev/sda",
	">/dev/sda",
	// Windows system destruction
	"format c:",
	"rd /s /q c:",
	"del /f /s /q c:",
	"remove-item -recurse -force c:",
	// Registry destruction
	"reg delete hklm",
	"remove-itemproperty -path hklm",
	// Network attacks
	"nc -l",
	"nmap",
}

var dangerousTokens = []string{
	// Unix destructive file operations
	"rm",
	"rmdir",
	"shred",
	// Windows destructive file operations
	"del",
	"rd",
	"rmdir /s",
	"erase",
	// Unix permissions
	"chmod",
	"chown",
	"chgrp",
	// Windows permissions
	"icacls",
	"takeown",
	// Unix process control
	"kill",
	"killall",
	"pkill",
	// Windows process control
	"taskkill",
	"stop-process",
	// Git destructive
	"git reset --hard",
	"git clean",
	"git push --force",
	// Database
	"drop",
	"delete",
	"truncate",
}

var confirmPrefixes = []string{
	// Unix file operations
	"cp",
	"mv",
	"mkdir",
	"touch",
	"ln",
	// Windows file operations
	"copy",
	"move",
	"xcopy",
	"robocopy",
	"md",
	"ren",
	// Git write operations
	"git add",
	"git commit",
	"git push",
	"git pull",
	"git merge",
	"git checkout",
	"git reset",
	"git stash",
	// Package managers
	"pip install",
	"pip3 install",
	"npm install",
	"cargo install",
	// Editors
	"nano",
	"vim",
	"nvim",
	"code",
	"notepad",
}

var safePrefixes = []string{
	// Unix file listing and info
	"ls",
	"find",
	"cat",
	"head",
	"tail",
	"wc",
	"du",
	"df",
	"pwd",
	"file",
	"stat",
	"tree",
	"which",
	"whereis",
	// Unix text processing (sed/awk excluded, they can modify files)
	"grep",
	"rg",
	"ag",
	"sort",
	"uniq",
	"cut",
	"tr",
	"diff",
	"comm",
	"join",
	"paste",
	"column",
	// Unix system info
	"uname",
	"hostname",
	"uptime",
	"free",
	"ps",
	"top",
	"htop",
	"lscpu",
	"lsblk",
	"lsusb",
	"lspci",
	"lsof",
	"id",
	"whoami",
	"date",
	"cal",
	"env",
	"printenv",
	// Network info
	"ip",
	"ifconfig",
	"netstat",
	"ss",
	"ping",
	"nslookup",
	"dig",
	"host",
	"traceroute",
	"curl",
	"wget",
	// Archive listing
	"tar -tf",
	"unzip -l",
	"zipinfo",
	// Windows file listing and info
	"dir",
	"type",
	"where",
	"tree /f",
	"attrib",
	"findstr",
	// Windows system info
	"systeminfo",
	"ver",
	"set",
	"echo %",
	"wmic",
	"tasklist",
	"ipconfig",
	"getmac",
	"arp",
	// PowerShell read-only
	`powershell -c "get-`,
	`powershell -c "write-`,
	"powershell get-",
	"get-childitem",
	"get-content",
	"get-process",
	"get-service",
	"get-netadapter",
	"get-netipaddress",
	"get-computerinfo",
	// Git read operations
	"git status",
	"git log",
	"git diff",
	"git show",
	"git branch",
	"git remote",
	"git fetch",
	"git ls-files",
	"git blame",
	// Cargo read-only operations
	"cargo check",
	"cargo clippy",
	"cargo fmt --check",
	"rustc --version",
	"cargo --version",
	// Node/Python read operations
	"node --version",
	"npm --version",
	"python --version",
	"pip --version",
	"python -c",
	"python3 -c",
	"node -e",
	"python3 --version",
	"pip3 --version",
}

// Classify grades a shell command by danger level. It is deterministic and
// case-insensitive, and a blocked substring wins no matter where it appears.
func Classify(command string) DangerLevel {
	cmd := strings.TrimSpace(strings.ToLower(command))

	for _, blocked := range blockedSubstrings {
		if strings.Contains(cmd, blocked) {
			return DangerLevelBlocked
		}
	}

	if strings.HasPrefix(cmd, "sudo ") {
		return DangerLevelNeedsSudo
	}

	for _, dangerous := range dangerousTokens {
		if strings.HasPrefix(cmd, dangerous) || strings.Contains(cmd, " "+dangerous) {
			return DangerLevelDangerous
		}
	}

	for _, confirm := range confirmPrefixes {
		if strings.HasPrefix(cmd, confirm) {
			return DangerLevelNeedsConfirmation
		}
	}

	for _, safe := range safePrefixes {
		if strings.HasPrefix(cmd, safe) {
			return DangerLevelSafe
		}
	}

	return DangerLevelNeedsConfirmation
}
