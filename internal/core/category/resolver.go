package category

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lzray/focustrace/internal/core/model"
	"github.com/lzray/focustrace/internal/util"
)

// Resolver maps an application identifier to a category. Lookups are
// synchronous and never fail; unknown applications resolve to Other.
type Resolver interface {
	Resolve(appId string) model.Category
}

// StaticResolver resolves categories from an in-memory rule table,
// optionally loaded from a YAML file. Matching is case-insensitive on
// the application identifier.
type StaticResolver struct {
	rules map[string]model.Category
}

// Built-in defaults for common applications. A rule file overrides these.
var defaultRules = map[string]model.Category{
	"com.apple.safari":          "Browsing",
	"com.google.chrome":         "Browsing",
	"org.mozilla.firefox":       "Browsing",
	"com.microsoft.vscode":      "Development",
	"com.apple.dt.xcode":        "Development",
	"com.jetbrains.goland":      "Development",
	"com.apple.terminal":        "Development",
	"com.googlecode.iterm2":     "Development",
	"com.tinyspeck.slackmacgap": "Communication",
	"com.apple.mail":            "Communication",
	"com.hnc.discord":           "Communication",
	"us.zoom.xos":               "Communication",
	"com.apple.notes":           "Productivity",
	"com.culturedcode.things3":  "Productivity",
	"md.obsidian":               "Productivity",
	"com.spotify.client":        "Entertainment",
	"com.apple.music":           "Entertainment",
}

// NewStaticResolver creates a resolver seeded with the built-in rules
func NewStaticResolver() *StaticResolver {
	rules := make(map[string]model.Category, len(defaultRules))
	for appId, cat := range defaultRules {
		rules[appId] = cat
	}
	return &StaticResolver{rules: rules}
}

// NewStaticResolverFromFile creates a resolver with rules merged from a
// YAML file mapping application identifiers to category names.
func NewStaticResolverFromFile(path string) (*StaticResolver, error) {
	r := NewStaticResolver()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			util.LogDebugf("No category rule file at %s, using built-in rules", path)
			return r, nil
		}
		return nil, fmt.Errorf("failed to read category rules: %w", err)
	}

	var fileRules map[string]string
	if err := yaml.Unmarshal(data, &fileRules); err != nil {
		return nil, fmt.Errorf("failed to parse category rules: %w", err)
	}

	for appId, cat := range fileRules {
		if cat == "" {
			continue
		}
		r.rules[strings.ToLower(appId)] = model.Category(cat)
	}

	util.LogInfof("Loaded %d category rules from %s", len(fileRules), path)
	return r, nil
}

// Resolve returns the category for an application, defaulting to Other
func (r *StaticResolver) Resolve(appId string) model.Category {
	if cat, ok := r.rules[strings.ToLower(appId)]; ok {
		return cat
	}
	return model.CategoryOther
}
