package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"listings-aggregator/utils"
)

// Collectors is the YAML file naming which collectors run, in order.
type Collectors struct {
	// Parsers lists collector names in run order.
	Parsers     []string     `yaml:"parsers"`
	HTMLSources []HTMLSource `yaml:"html_sources"`
}

// HTMLSource defines a listing board scraped with CSS selectors.
type HTMLSource struct {
	Name     string `yaml:"name"`
	Platform string `yaml:"platform"`
	URL      string `yaml:"url"`
	// Item selects one element per listing.
	Item string `yaml:"item"`
	// Fields maps canonical column names to selectors inside an item.
	// A selector may end in "@attr" to read an attribute instead of text.
	Fields map[string]string `yaml:"fields"`
}

// LoadCollectors reads and validates the collector file at path.
func LoadCollectors(path string) (*Collectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseCollectors(data)
}

// ParseCollectors decodes and validates a collector file.
func ParseCollectors(data []byte) (*Collectors, error) {
	var c Collectors
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse collectors: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names are present and unique.
func (c *Collectors) Validate() error {
	var errs []error

	if len(c.Parsers) == 0 {
		errs = append(errs, errors.New("parsers: at least one collector is required"))
	}
	for i, name := range c.Parsers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("parsers[%d]: empty name", i))
		}
	}

	names := utils.NewSet[string]()
	for i, src := range c.HTMLSources {
		switch {
		case src.Name == "":
			errs = append(errs, fmt.Errorf("html_sources[%d]: name is required", i))
		case !names.Add(src.Name):
			errs = append(errs, fmt.Errorf("html_sources[%d]: duplicate name %q", i, src.Name))
		}
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			errs = append(errs, fmt.Errorf("html_sources[%d]: url must start with http:// or https://", i))
		}
		if src.Item == "" {
			errs = append(errs, fmt.Errorf("html_sources[%d]: item selector is required", i))
		}
		if strings.TrimSpace(src.Fields["identifier"]) == "" {
			errs = append(errs, fmt.Errorf("html_sources[%d]: fields.identifier selector is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid collectors: %w", errors.Join(errs...))
	}
	return nil
}
