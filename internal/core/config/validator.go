package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	domainerrors "archimport/internal/core/errors"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints, then the cross-field rules. All
// problems are reported in a single VALIDATION_ERROR.
func Validate(cfg *Config) error {
	var problems []error

	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Errorf("%s failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err)
		}
	}

	problems = append(problems, validateExcludes(cfg)...)
	problems = append(problems, validateSnapshot(cfg)...)
	problems = append(problems, validateNeo4j(cfg)...)

	if len(problems) == 0 {
		return nil
	}
	return domainerrors.Wrap(errors.Join(problems...), domainerrors.CodeValidationError, "invalid configuration")
}

// fieldPath turns Config.Import.Workers into import.workers.
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validateExcludes(cfg *Config) []error {
	var problems []error
	for i, pattern := range cfg.Import.ExcludeLocations {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			problems = append(problems, fmt.Errorf("import.exclude_locations[%d] %q is not a valid glob: %w", i, pattern, err))
		}
	}
	for i, pattern := range cfg.Watch.ExcludeDirs {
		if _, err := glob.Compile(pattern); err != nil {
			problems = append(problems, fmt.Errorf("watch.exclude_dirs[%d] %q is not a valid glob: %w", i, pattern, err))
		}
	}
	return problems
}

func validateSnapshot(cfg *Config) []error {
	if cfg.Snapshot.Enabled && strings.TrimSpace(cfg.Snapshot.Path) == "" {
		return []error{fmt.Errorf("snapshot.path must not be empty when snapshot.enabled is true")}
	}
	return nil
}

func validateNeo4j(cfg *Config) []error {
	if !cfg.Neo4j.Enabled {
		return nil
	}
	u, err := url.Parse(cfg.Neo4j.URI)
	if err != nil {
		return []error{fmt.Errorf("neo4j.uri %q: %w", cfg.Neo4j.URI, err)}
	}
	switch u.Scheme {
	case "neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc":
	default:
		return []error{fmt.Errorf("neo4j.uri must use a neo4j:// or bolt:// scheme, got %q", cfg.Neo4j.URI)}
	}
	if strings.TrimSpace(cfg.Neo4j.User) == "" {
		return []error{fmt.Errorf("neo4j.user must not be empty when neo4j.enabled is true")}
	}
	return nil
}
