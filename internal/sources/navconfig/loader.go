// Package navconfig imports navigation sites from YAML files.
package navconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var ErrNoSites = errors.New("no navigation sites found")

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads a navigation file from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load parses the file in either the navConfig format or the Homepage
// services.yaml format.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read navigation file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data. Template variables ({{...}}) are blanked first.
func Parse(data []byte) (File, error) {
	data = templateVar.ReplaceAll(data, []byte(`""`))

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(data), []byte("---")))
	if bytes.HasPrefix(trimmed, []byte("-")) {
		var services HomepageServices
		if err := yaml.Unmarshal(data, &services); err != nil {
			return File{}, fmt.Errorf("failed to parse services yaml: %w", err)
		}
		return FromHomepage(services), nil
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse navigation yaml: %w", err)
	}
	return f, nil
}

// FromHomepage converts Homepage groups to navigation groups, keeping file
// order.
func FromHomepage(services HomepageServices) File {
	var f File
	for _, groupMap := range services {
		for groupName, list := range groupMap {
			g := Group{Name: groupName}
			for _, serviceMap := range list {
				for name, props := range serviceMap {
					g.Children = append(g.Children, Site{Name: name, URL: props.Href, Src: props.Icon})
				}
			}
			f.NavConfig = append(f.NavConfig, g)
		}
	}
	return f
}
