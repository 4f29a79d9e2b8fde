package fanout

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DestinationType identifies the sink implementation backing a destination.
type DestinationType string

const (
	DestinationConsole     DestinationType = "console"
	DestinationLocalStore  DestinationType = "local-store"
	DestinationWebhook     DestinationType = "webhook"
	DestinationSearchIndex DestinationType = "search-index"
	DestinationCustom      DestinationType = "custom"
)

// Destination configures one fan-out target. Destinations are validated at
// startup; a misconfigured destination is fatal rather than silently skipped.
type Destination struct {
	Type          DestinationType `yaml:"type" json:"type"`
	Name          string          `yaml:"name" json:"name"`
	Enabled       bool            `yaml:"enabled" json:"enabled"`
	Endpoint      string          `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Credentials   string          `yaml:"credentials,omitempty" json:"-"`
	MaxRetries    int             `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryInterval time.Duration   `yaml:"retry_interval,omitempty" json:"retry_interval,omitempty"`
}

// Validate rejects destinations missing required fields for their type.
func (d Destination) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDestination)
	}
	switch d.Type {
	case DestinationConsole, DestinationCustom:
	case DestinationLocalStore, DestinationWebhook, DestinationSearchIndex:
		if d.Endpoint == "" {
			return fmt.Errorf("%w: %s destination %q requires an endpoint", ErrInvalidDestination, d.Type, d.Name)
		}
	default:
		return fmt.Errorf("%w: unknown type %q for destination %q", ErrInvalidDestination, d.Type, d.Name)
	}
	if d.MaxRetries < 0 {
		return fmt.Errorf("%w: destination %q has negative max_retries", ErrInvalidDestination, d.Name)
	}
	return nil
}

// UnmarshalYAML decodes a destination, accepting retry_interval as a Go
// duration string ("500ms", "2s").
func (d *Destination) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type          DestinationType `yaml:"type"`
		Name          string          `yaml:"name"`
		Enabled       bool            `yaml:"enabled"`
		Endpoint      string          `yaml:"endpoint"`
		Credentials   string          `yaml:"credentials"`
		MaxRetries    int             `yaml:"max_retries"`
		RetryInterval string          `yaml:"retry_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*d = Destination{
		Type:        raw.Type,
		Name:        raw.Name,
		Enabled:     raw.Enabled,
		Endpoint:    raw.Endpoint,
		Credentials: raw.Credentials,
		MaxRetries:  raw.MaxRetries,
	}
	if raw.RetryInterval != "" {
		interval, err := time.ParseDuration(raw.RetryInterval)
		if err != nil {
			return fmt.Errorf("%w: destination %q retry_interval: %w", ErrInvalidDestination, raw.Name, err)
		}
		d.RetryInterval = interval
	}
	return nil
}

// destinationsFile is the YAML document shape for LoadDestinations.
type destinationsFile struct {
	Destinations []Destination `yaml:"destinations"`
}

// LoadDestinations reads destination configs from a YAML file and validates
// every entry. Any invalid entry fails the whole load.
func LoadDestinations(path string) ([]Destination, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read destinations file: %w", err)
	}

	var file destinationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse destinations file: %w", err)
	}

	for _, d := range file.Destinations {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Destinations, nil
}
