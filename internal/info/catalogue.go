package info

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Section struct {
	Button string `yaml:"button"`
	Text   string `yaml:"text"`
}

type Document struct {
	Button  string `yaml:"button"`
	File    string `yaml:"file"`
	Caption string `yaml:"caption"`
}

// Catalogue is the static product information menu.
type Catalogue struct {
	Intro       string    `yaml:"intro"`
	Sections    []Section `yaml:"sections"`
	Document    Document  `yaml:"document"`
	PriceButton string    `yaml:"price_button"`
	BackButton  string    `yaml:"back_button"`
}

func Load(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", path, err)
	}

	var c Catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalogue) Section(button string) (Section, bool) {
	for _, s := range c.Sections {
		if s.Button == button {
			return s, true
		}
	}
	return Section{}, false
}

func (c *Catalogue) validate() error {
	if strings.TrimSpace(c.Intro) == "" {
		return errors.New("intro is empty")
	}
	if c.BackButton == "" || c.PriceButton == "" {
		return errors.New("price_button and back_button are required")
	}
	if c.Document.Button != "" && c.Document.File == "" {
		return errors.New("document button without file")
	}
	seen := make(map[string]struct{}, len(c.Sections))
	for _, s := range c.Sections {
		if s.Button == "" || strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("section %q is incomplete", s.Button)
		}
		if _, dup := seen[s.Button]; dup {
			return fmt.Errorf("duplicate section button %q", s.Button)
		}
		seen[s.Button] = struct{}{}
	}
	return nil
}
