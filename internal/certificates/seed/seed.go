// Package seed ships a starter set of certificate templates and loads them
// into a template repository on boot.
package seed

import (
	"context"
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
)

//go:embed templates
var templateFS embed.FS

const manifestPath = "templates/manifest.yaml"

type manifest struct {
	Templates []manifestEntry `yaml:"templates"`
}

type manifestEntry struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Description  string  `yaml:"description"`
	Thumbnail    string  `yaml:"thumbnail"`
	File         string  `yaml:"file"`
	CanvasWidth  float64 `yaml:"canvas_width"`
	CanvasHeight float64 `yaml:"canvas_height"`
}

// Templates loads the embedded template set.
func Templates() ([]certificates.Template, error) {
	raw, err := templateFS.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("seed: read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("seed: parse manifest: %w", err)
	}

	out := make([]certificates.Template, 0, len(m.Templates))
	for _, entry := range m.Templates {
		if entry.ID == "" || entry.File == "" {
			return nil, fmt.Errorf("seed: manifest entry %q missing id or file", entry.Name)
		}
		html, err := templateFS.ReadFile("templates/" + entry.File)
		if err != nil {
			return nil, fmt.Errorf("seed: read template %s: %w", entry.File, err)
		}
		out = append(out, certificates.Template{
			ID:           entry.ID,
			Name:         entry.Name,
			Description:  entry.Description,
			Thumbnail:    entry.Thumbnail,
			HTML:         string(html),
			CanvasWidth:  entry.CanvasWidth,
			CanvasHeight: entry.CanvasHeight,
			Active:       true,
		})
	}
	return out, nil
}

// Apply upserts the embedded templates into the repository, stamping new rows
// with the provided time.
func Apply(ctx context.Context, repo certificates.TemplateRepository, now time.Time) error {
	templates, err := Templates()
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		tpl.CreatedAt = now
		if err := repo.UpsertTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("seed: upsert template %s: %w", tpl.ID, err)
		}
	}
	return nil
}
