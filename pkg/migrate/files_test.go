package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDir_RepositoryMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected repository migrations to validate: %v", err)
	}
}

func TestValidateDir_RejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_sales.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigration_WritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Sale Notes!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_sale_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestFilesListsEmbeddedMigrations(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) < 6 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
}

func TestValidateDir_RejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected unbalanced statement error")
	}
}

func TestValidateFS_EmbeddedMigrations(t *testing.T) {
	if err := ValidateFS(embedded, embeddedDir); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}

func TestValidateDir_ReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("20260101000000_one.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000000_two.sql", "-- +goose Up\n")

	err := ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"already used by", `missing "-- +goose Down"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestSlugify(t *testing.T) {
	if got := slugify("  Add Sale Notes!  "); got != "add_sale_notes" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := slugify("!!!"); got != "" {
		t.Fatalf("expected empty slug, got %q", got)
	}
}
