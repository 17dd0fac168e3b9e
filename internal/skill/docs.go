package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Doc is the long-form help for one skill, authored as a markdown file with
// YAML frontmatter. Docs ship beside the binary and back the skills listing;
// a doc whose id matches no registered skill is fine and simply unused.
type Doc struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Level       string   `yaml:"permission_level"`
	Modes       []string `yaml:"modes"`
	Examples    []string `yaml:"examples"`

	// Body is the markdown below the frontmatter.
	Body string `yaml:"-"`
}

// ParseDoc splits the frontmatter from a doc file and unmarshals it.
func ParseDoc(content []byte) (Doc, error) {
	fmRaw, body, err := splitFrontmatter(string(content))
	if err != nil {
		return Doc{}, err
	}
	var doc Doc
	if err := yaml.Unmarshal([]byte(fmRaw), &doc); err != nil {
		return Doc{}, fmt.Errorf("invalid frontmatter: %w", err)
	}
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		return Doc{}, fmt.Errorf("missing doc id")
	}
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Description = strings.TrimSpace(doc.Description)
	doc.Level = strings.TrimSpace(doc.Level)
	doc.Body = strings.TrimSpace(body)
	return doc, nil
}

// LoadDocs reads every .md file in dir, rejects duplicate ids, and returns
// the docs sorted by id. A missing directory yields no docs and no error.
func LoadDocs(dir string) ([]Doc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	docs := make([]Doc, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".md" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc, err := ParseDoc(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, exists := seen[doc.ID]; exists {
			return nil, fmt.Errorf("duplicate doc id %q in %s and %s", doc.ID, prev, path)
		}
		seen[doc.ID] = path
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// DocFor returns the doc matching a skill id.
func DocFor(docs []Doc, id string) (Doc, bool) {
	for _, d := range docs {
		if d.ID == id {
			return d, true
		}
	}
	return Doc{}, false
}

func splitFrontmatter(content string) (string, string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return "", "", fmt.Errorf("missing frontmatter start")
	}
	rest := normalized[len("---\n"):]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return "", "", fmt.Errorf("missing frontmatter end")
	}
	return rest[:idx], rest[idx+len("\n---\n"):], nil
}
