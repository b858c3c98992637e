package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// Manifest lists the components checked by the smoke command.
//
//	url: http://localhost:3000
//	thresholds: {pass: 5, fail: 15}
//	components:
//	  - id: hero
//	    design: designs/hero.png
//	    actual: shots/hero.png
//	  - id: nav
//	    design: designs/nav.png
//	    selector: nav.main
//	    expected: {element_count: 5, layout_direction: row}
type Manifest struct {
	URL        string           `yaml:"url"`
	Thresholds *ManifestBand    `yaml:"thresholds"`
	Viewport   *models.Viewport `yaml:"viewport" validate:"omitempty"`
	Components []ManifestEntry  `yaml:"components" validate:"required,min=1,dive"`
}

// ManifestBand overrides the configured thresholds for one manifest.
type ManifestBand struct {
	Pass float64 `yaml:"pass" validate:"gte=0,ltfield=Fail"`
	Fail float64 `yaml:"fail" validate:"lte=100"`
}

// ManifestEntry is one component. File entries set Actual; live entries set
// Selector and render URL (or the manifest URL).
type ManifestEntry struct {
	ID       string                    `yaml:"id" validate:"required"`
	Design   string                    `yaml:"design" validate:"required"`
	Actual   string                    `yaml:"actual"`
	Selector string                    `yaml:"selector"`
	URL      string                    `yaml:"url"`
	RunAI    bool                      `yaml:"run_ai"`
	Expected *models.ExpectedStructure `yaml:"expected" validate:"omitempty"`
}

// Live reports whether the entry is rendered in a browser.
func (e ManifestEntry) Live() bool {
	return e.Actual == ""
}

func (m *Manifest) hasLive() bool {
	for _, e := range m.Components {
		if e.Live() {
			return true
		}
	}
	return false
}

var manifestValidate = validator.New()

// LoadManifest reads and validates a manifest. Relative image paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Components))
	for i := range m.Components {
		e := &m.Components[i]
		if seen[e.ID] {
			return nil, fmt.Errorf("invalid manifest %s: duplicate component id %q", path, e.ID)
		}
		seen[e.ID] = true

		switch {
		case e.Actual != "" && e.Selector != "":
			return nil, fmt.Errorf("invalid manifest %s: component %q sets both actual and selector", path, e.ID)
		case e.Live() && e.Selector == "":
			return nil, fmt.Errorf("invalid manifest %s: component %q needs actual or selector", path, e.ID)
		case e.Live() && e.URL == "" && m.URL == "":
			return nil, fmt.Errorf("invalid manifest %s: component %q has no url", path, e.ID)
		}
		if e.Live() && e.URL == "" {
			e.URL = m.URL
		}

		e.Design = resolve(base, e.Design)
		if e.Actual != "" {
			e.Actual = resolve(base, e.Actual)
		}
	}
	return &m, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
