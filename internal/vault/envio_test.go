package vault

import (
	"context"
	"strings"
	"testing"
)

func TestParseEnv(t *testing.T) {
	text := `
# Database settings
DB_HOST=localhost
export DB_PASSWORD="hunter2 with spaces"
EMPTY=

SINGLE='quoted value'
not a valid line
1BAD_KEY=value
`
	pairs, errs := ParseEnv(text)

	want := map[string]string{
		"DB_HOST":     "localhost",
		"DB_PASSWORD": "hunter2 with spaces",
		"EMPTY":       "",
		"SINGLE":      "quoted value",
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d: %+v", len(pairs), len(want), pairs)
	}
	for _, pair := range pairs {
		if want[pair.Key] != pair.Value {
			t.Errorf("pair %s = %q, want %q", pair.Key, pair.Value, want[pair.Key])
		}
	}

	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %+v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Message, "missing '='") {
		t.Errorf("first error = %q, want missing '='", errs[0].Message)
	}
	if !strings.Contains(errs[1].Message, "invalid key") {
		t.Errorf("second error = %q, want invalid key", errs[1].Message)
	}
}

func TestQuoteEnvValueRoundtrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"plain", "simple-value"},
		{"spaces", "value with spaces"},
		{"hash", "value#with#hash"},
		{"dollar", "pre$fix"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quoted := quoteEnvValue(tt.value)
			pairs, errs := ParseEnv("KEY=" + quoted)
			if len(errs) != 0 {
				t.Fatalf("unexpected parse errors: %+v", errs)
			}
			if len(pairs) != 1 || pairs[0].Value != tt.value {
				t.Errorf("roundtrip of %q gave %+v", tt.value, pairs)
			}
		})
	}
}

func TestImportEnvCreatesProject(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result, err := store.ImportEnv(ctx, "API_KEY=abc123\nDB_HOST=localhost\n", ImportOptions{
		Project: "imported",
		EnvFile: ".env",
	})
	if err != nil {
		t.Fatalf("ImportEnv() failed: %v", err)
	}
	if len(result.Imported) != 2 {
		t.Errorf("imported %d keys, want 2", len(result.Imported))
	}

	project, _ := store.GetProject(ctx, "imported")
	if project == nil {
		t.Fatal("project should have been created by the import")
	}
	entry := project.Secret("API_KEY")
	if entry == nil {
		t.Fatal("API_KEY missing after import")
	}
	if entry.Source != SourceEnv {
		t.Errorf("source = %q, want %q", entry.Source, SourceEnv)
	}
	if entry.EnvFile != ".env" {
		t.Errorf("envFile = %q, want %q", entry.EnvFile, ".env")
	}
}

func TestImportEnvSkipsExistingWithoutOverwrite(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.ImportEnv(ctx, "API_KEY=original\n", ImportOptions{Project: "app"})
	if err != nil {
		t.Fatalf("first ImportEnv() failed: %v", err)
	}
	if len(first.Imported) != 1 {
		t.Fatalf("first import: %d keys, want 1", len(first.Imported))
	}

	second, err := store.ImportEnv(ctx, "API_KEY=changed\n", ImportOptions{Project: "app"})
	if err != nil {
		t.Fatalf("second ImportEnv() failed: %v", err)
	}
	if len(second.Skipped) != 1 || len(second.Imported) != 0 {
		t.Errorf("second import: imported=%d skipped=%d, want 0/1",
			len(second.Imported), len(second.Skipped))
	}

	project, _ := store.GetProject(ctx, "app")
	if got := project.Secret("API_KEY").Value; got != "original" {
		t.Errorf("value = %q, want %q", got, "original")
	}
}

func TestImportEnvOverwritePreservesCreated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ImportEnv(ctx, "API_KEY=original\n", ImportOptions{Project: "app"}); err != nil {
		t.Fatalf("first ImportEnv() failed: %v", err)
	}
	project, _ := store.GetProject(ctx, "app")
	created := project.Secret("API_KEY").Created

	result, err := store.ImportEnv(ctx, "API_KEY=changed\n", ImportOptions{
		Project:   "app",
		Overwrite: true,
	})
	if err != nil {
		t.Fatalf("overwrite ImportEnv() failed: %v", err)
	}
	if len(result.Imported) != 1 {
		t.Fatalf("overwrite import: %d keys, want 1", len(result.Imported))
	}

	entry := project.Secret("API_KEY")
	if entry.Value != "changed" {
		t.Errorf("value = %q, want %q", entry.Value, "changed")
	}
	if !entry.Created.Equal(created) {
		t.Errorf("Created changed by overwrite: %v, want %v", entry.Created, created)
	}
}

func TestExportEnv(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateProject(ctx, "app", ""); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	entries := []SecretEntry{
		{Key: "API_KEY", Value: "abc123", Description: "service key", Category: "api"},
		{Key: "DB_PASSWORD", Value: "p@ss word", Category: "database"},
	}
	for _, entry := range entries {
		if err := store.AddSecret(ctx, "app", entry); err != nil {
			t.Fatalf("AddSecret(%s) failed: %v", entry.Key, err)
		}
	}

	out, err := store.ExportEnv(ctx, ExportOptions{Project: "app", IncludeComments: true})
	if err != nil {
		t.Fatalf("ExportEnv() failed: %v", err)
	}
	if !strings.Contains(out, "# service key\n") {
		t.Errorf("output missing description comment:\n%s", out)
	}
	if !strings.Contains(out, "API_KEY=abc123\n") {
		t.Errorf("output missing API_KEY line:\n%s", out)
	}
	if !strings.Contains(out, `DB_PASSWORD="p@ss word"`) {
		t.Errorf("value with spaces should be quoted:\n%s", out)
	}

	filtered, err := store.ExportEnv(ctx, ExportOptions{Project: "app", Category: "database"})
	if err != nil {
		t.Fatalf("filtered ExportEnv() failed: %v", err)
	}
	if strings.Contains(filtered, "API_KEY") {
		t.Errorf("category filter leaked other entries:\n%s", filtered)
	}
}

func TestExportEnvUnknownProject(t *testing.T) {
	store, _ := newTestStore(t)

	out, err := store.ExportEnv(context.Background(), ExportOptions{Project: "nope"})
	if err != nil {
		t.Fatalf("ExportEnv() failed: %v", err)
	}
	if out != "" {
		t.Errorf("unknown project should export nothing, got %q", out)
	}
}
