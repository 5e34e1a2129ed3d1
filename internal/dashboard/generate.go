package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"rtt-collect/internal/measure"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboard queries.
type Tables struct {
	Results string
	Hops    string
}

// DefaultTables returns the table names the GreptimeDB writer uses.
func DefaultTables() Tables {
	return Tables{Results: measure.ResultTableName, Hops: measure.HopTableName}
}

// Render executes every embedded dashboard template and writes the rendered
// dashboards to outDir. Templates read GREPTIMEDB_DATASOURCE_UID through the
// env function, which fails when the variable is unset.
func Render(outDir string, tables Tables) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		if err := t.Execute(&sb, tables); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
			return nil, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
