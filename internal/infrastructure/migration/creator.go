package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"

	// versions sort lexically: YYYYMMDDHHMMSS
	versionLayout = "20060102150405"
)

var migrationTemplate = template.Must(template.New("migration").Parse(`-- {{.Name}}{{if .Rollback}} (rollback){{end}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`))

// MigrationFile describes a created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// Migration is an entry of a migrations directory
type Migration struct {
	// Base is the file name without direction and extension
	Base    string
	Version string
	HasDown bool
}

// CreateMigration writes an empty up/down pair named after now and name.
// It never overwrites an existing file.
func CreateMigration(migrationsDir, name, description string, now time.Time) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format(versionLayout)
	base := version + "_" + slug
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   now.UTC().Format(time.RFC3339),
		UpPath:      filepath.Join(migrationsDir, base+upSuffix),
		DownPath:    filepath.Join(migrationsDir, base+downSuffix),
	}

	if err := writeTemplate(mf.UpPath, mf, false); err != nil {
		return nil, err
	}
	if err := writeTemplate(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeTemplate(path string, mf *MigrationFile, rollback bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	data := struct {
		*MigrationFile
		Rollback bool
	}{mf, rollback}
	if err := migrationTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeName lowercases name and keeps letters, digits and single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the migrations of a directory in version order. A
// missing directory holds no migrations.
func ListMigrations(migrationsDir string) ([]Migration, error) {
	entries, err := os.ReadDir(migrationsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	downs := make(map[string]bool)
	var bases []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, upSuffix):
			bases = append(bases, strings.TrimSuffix(name, upSuffix))
		case strings.HasSuffix(name, downSuffix):
			downs[strings.TrimSuffix(name, downSuffix)] = true
		}
	}
	sort.Strings(bases)

	out := make([]Migration, len(bases))
	for i, base := range bases {
		version, _, _ := strings.Cut(base, "_")
		out[i] = Migration{Base: base, Version: version, HasDown: downs[base]}
	}
	return out, nil
}
