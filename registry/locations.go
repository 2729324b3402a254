/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suparena/blogstore/errors"
)

// Kind is the storage kind behind an entity type.
type Kind int

const (
	KindTable Kind = iota + 1
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// ParseKind accepts "table" or "blob" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return KindTable, nil
	case "blob":
		return KindBlob, nil
	default:
		return 0, fmt.Errorf("unknown storage kind %q", s)
	}
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Location is where an entity type lives.
type Location struct {
	Resource string `yaml:"resource"`
	Kind     Kind   `yaml:"kind"`
}

// Locations maps entity-type names to storage locations. It is built once and
// never mutated, so it is safe for concurrent reads.
type Locations struct {
	byName map[string]Location
}

type locationsFile struct {
	Locations map[string]Location `yaml:"locations"`
}

// NewLocations validates and copies m.
func NewLocations(m map[string]Location) (*Locations, error) {
	byName := make(map[string]Location, len(m))
	for name, loc := range m {
		if strings.TrimSpace(name) == "" {
			return nil, errors.NewConfigurationError("", "empty entity type name")
		}
		if loc.Resource == "" {
			return nil, errors.NewConfigurationError(name, "missing resource name")
		}
		if loc.Kind != KindTable && loc.Kind != KindBlob {
			return nil, errors.NewConfigurationError(name, "missing or unknown storage kind")
		}
		byName[name] = loc
	}
	return &Locations{byName: byName}, nil
}

// Parse decodes a YAML registry document and applies resource overrides
// (entity type → resource name).
func Parse(data []byte, overrides map[string]string) (*Locations, error) {
	var f locationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(f.Locations) == 0 {
		return nil, errors.NewConfigurationError("", "registry defines no locations")
	}
	for name, resource := range overrides {
		loc, ok := f.Locations[name]
		if !ok {
			return nil, errors.NewConfigurationError(name, "override for unknown entity type")
		}
		loc.Resource = resource
		f.Locations[name] = loc
	}
	return NewLocations(f.Locations)
}

// LoadFile reads and parses a YAML registry file.
func LoadFile(path string, overrides map[string]string) (*Locations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}
	return Parse(data, overrides)
}

// Lookup resolves an entity type. Unknown names are configuration errors.
func (l *Locations) Lookup(entityType string) (Location, error) {
	if l != nil {
		if loc, ok := l.byName[entityType]; ok {
			return loc, nil
		}
	}
	return Location{}, errors.NewConfigurationError(entityType, "unknown entity type")
}

// Names returns the registered entity types, sorted.
func (l *Locations) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
