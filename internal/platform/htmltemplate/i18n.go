package htmltemplate

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed assets/*.yaml
var assets embed.FS

// Page overrides the meta data of one path.
type Page struct {
	Title              string `yaml:"title"`
	FeatureGraphicPath string `yaml:"featureGraphicPath"`
}

// Catalog holds translated meta texts and per page overrides.
type Catalog struct {
	messages map[string]map[string]string
	pages    map[string]Page
}

// LoadCatalog parses the embedded message and page files.
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{}
	if err := readYAML("assets/messages.yaml", &c.messages); err != nil {
		return nil, err
	}
	if err := readYAML("assets/pages.yaml", &c.pages); err != nil {
		return nil, err
	}
	return c, nil
}

func readYAML(name string, v any) error {
	b, err := assets.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Translation returns message id in languageCode, falling back to the default language.
func (c *Catalog) Translation(languageCode, id string) string {
	if m, ok := c.messages[languageCode][id]; ok {
		return m
	}
	return c.messages[DefaultLanguageCode][id]
}

func (c *Catalog) Page(path string) (Page, bool) {
	p, ok := c.pages[path]
	return p, ok
}
