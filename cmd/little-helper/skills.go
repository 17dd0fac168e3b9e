package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill/builtin"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/sysinfo"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/websearch"
)

func skillsCmd(args []string) {
	fs := flag.NewFlagSet("skills", flag.ExitOnError)
	mode := fs.String("mode", "", "Only show skills serving this mode")
	logFormat := fs.String("log-format", "text", "Log format: json|text")
	logLevel := fs.String("log-level", "warn", "Log level: debug|info|warn|error")
	_ = fs.Parse(args)

	logger := setupLogger(*logFormat, *logLevel)

	registry := skill.NewRegistry()
	if err := builtin.RegisterAll(registry, builtin.Deps{
		Sysinfo:       sysinfo.NewCollector(logger),
		Search:        websearch.NewClient(websearch.Options{}),
		SearchEnabled: func() bool { return true },
		ArchiveDir:    defaultStateDir(),
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	infos := registry.List()
	if *mode != "" {
		m, err := skill.ParseMode(*mode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		kept := infos[:0]
		for _, info := range infos {
			for _, im := range info.Modes {
				if im == m {
					kept = append(kept, info)
					break
				}
			}
		}
		infos = kept
	}

	for _, info := range infos {
		modes := make([]string, 0, len(info.Modes))
		for _, m := range info.Modes {
			modes = append(modes, m.String())
		}
		fmt.Printf("%-16s %-10s modes=%s permission=%s\n  %s\n",
			info.ID, info.Level, strings.Join(modes, ","), info.Permission, info.Description)
	}
}
