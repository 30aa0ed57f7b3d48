package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNamePattern = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	target := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	_, err = fmt.Fprintf(f, migrationTemplate, slug)
	if err = multierr.Append(err, f.Close()); err != nil {
		return "", fmt.Errorf("write migration %q: %w", target, err)
	}
	return target, nil
}

func slugify(name string) string {
	slug := unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(slug, "_")
}

// ValidateDir checks the .sql files in dir. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks every .sql file under root for a versioned filename, a
// unique version, both goose sections and balanced statement blocks. All
// problems are reported together.
func ValidateFS(fsys fs.FS, root string) error {
	names, err := fs.Glob(fsys, path.Join(root, "*.sql"))
	if err != nil {
		return err
	}

	var problems error
	versions := make(map[string]string, len(names))
	for _, full := range names {
		name := path.Base(full)
		m := fileNamePattern.FindStringSubmatch(name)
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[m[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, full)
		if err != nil {
			problems = multierr.Append(problems, err)
			continue
		}
		problems = multierr.Append(problems, checkSections(name, string(body)))
	}
	return problems
}

func checkSections(name, body string) error {
	var problems error
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, marker))
		}
	}
	if strings.Count(body, "-- +goose StatementBegin") != strings.Count(body, "-- +goose StatementEnd") {
		problems = multierr.Append(problems, fmt.Errorf("%s: unbalanced StatementBegin/StatementEnd", name))
	}
	return problems
}
