package watchman

import (
	"bytes"
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesFS embed.FS

// Templates holds the format strings for every channel's reminder copy.
// Loaded once at startup from the embedded templates.yaml.
type Templates struct {
	Email struct {
		Subject string `yaml:"subject"`
		Intro   string `yaml:"intro"`
	} `yaml:"email"`
	Push struct {
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"push"`
	WhatsApp struct {
		Body string `yaml:"body"`
	} `yaml:"whatsapp"`
}

// LoadTemplates parses the embedded template file with strict validation.
// Unknown YAML fields are rejected (via KnownFields), and required fields
// are validated so a bad edit fails at startup, not mid-run.
func LoadTemplates() (*Templates, error) {
	data, err := templatesFS.ReadFile("templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	var t Templates
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if t.Email.Subject == "" || t.Email.Intro == "" {
		return nil, fmt.Errorf("templates missing required email fields")
	}
	if t.Push.Title == "" || t.Push.Body == "" {
		return nil, fmt.Errorf("templates missing required push fields")
	}
	if t.WhatsApp.Body == "" {
		return nil, fmt.Errorf("templates missing required whatsapp body")
	}

	return &t, nil
}
