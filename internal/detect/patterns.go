package detect

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tbckr/mailprobe/internal/appdir"
)

//go:embed patterns.yaml
var embeddedPatterns []byte

// ProviderRule maps MX hostname substrings to a mail provider name.
type ProviderRule struct {
	Provider string   `yaml:"provider"`
	Contains []string `yaml:"contains"`
}

// Patterns holds the ordered provider rules. Order is match priority.
type Patterns struct {
	Providers []ProviderRule `yaml:"providers"`
}

// LoadPatterns tries each path in order; the first file that exists is used.
// Empty paths are skipped. Falls back to the embedded patterns.yaml when no
// override file is found.
func LoadPatterns(paths ...string) (Patterns, error) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Patterns{}, fmt.Errorf("reading patterns file %q: %w", path, err)
		}
		p, err := parse(data)
		if err != nil {
			return Patterns{}, fmt.Errorf("parsing patterns file %q: %w", path, err)
		}
		return p, nil
	}
	p, err := parse(embeddedPatterns)
	if err != nil {
		return Patterns{}, fmt.Errorf("parsing embedded patterns: %w", err)
	}
	return p, nil
}

func parse(data []byte) (Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Patterns{}, err
	}
	for i, r := range p.Providers {
		if r.Provider == "" {
			return Patterns{}, fmt.Errorf("rule %d: provider name is empty", i)
		}
		if len(r.Contains) == 0 {
			return Patterns{}, fmt.Errorf("rule %d (%s): no substrings", i, r.Provider)
		}
	}
	return p, nil
}

// DefaultPatternPaths returns the override file in mailprobe's config dir.
func DefaultPatternPaths() ([]string, error) {
	path, err := appdir.PatternsFile()
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return []string{path}, nil
}
