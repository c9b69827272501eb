package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// The ledger runs on postgres in production and sqlite locally, so migrations must stay
// inside the syntax both engines accept.
var nonPortableSQL = []struct {
	re   *regexp.Regexp
	hint string
}{
	{regexp.MustCompile(`::`), "postgres cast operator"},
	{regexp.MustCompile(`(?i)\bcreate\s+extension\b`), "postgres extension"},
	{regexp.MustCompile(`(?i)\bgen_random_uuid\s*\(`), "server-side uuid generation"},
	{regexp.MustCompile(`(?i)\b(big)?serial\b`), "serial column"},
	{regexp.MustCompile(`(?i)\bnow\s*\(\s*\)`), "now() default"},
}

// ValidateDir checks migration filenames, goose markers and ledger portability.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read file %q: %w", full, err)
		}
		if err := validateMigration(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func validateMigration(name, txt string) error {
	up := strings.Index(txt, "-- +goose Up")
	down := strings.Index(txt, "-- +goose Down")
	if up < 0 {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if down < 0 {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	if down < up {
		return fmt.Errorf("migration %q declares Down before Up", name)
	}

	begins := strings.Count(txt, "-- +goose StatementBegin")
	ends := strings.Count(txt, "-- +goose StatementEnd")
	if begins != ends {
		return fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd markers", name, begins, ends)
	}

	for _, line := range strings.Split(txt, "\n") {
		stmt := strings.TrimSpace(line)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		for _, rule := range nonPortableSQL {
			if rule.re.MatchString(stmt) {
				return fmt.Errorf("migration %q uses %s: %q", name, rule.hint, stmt)
			}
		}
	}
	return nil
}
