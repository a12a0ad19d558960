package workout

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog maps every program day to its workout
type Catalog struct {
	days map[int]Definition
}

type catalogFile struct {
	Workouts []catalogEntry `yaml:"workouts"`
}

type catalogEntry struct {
	Definition `yaml:",inline"`
	Days       []int `yaml:"days"`
}

// DefaultCatalog returns the built-in 21-day catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path selects the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog. Every day of the program must be
// covered exactly once.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{days: make(map[int]Definition, domain.WorkoutDayCount)}
	for _, entry := range file.Workouts {
		for _, day := range entry.Days {
			if _, dup := c.days[day]; dup {
				return nil, fmt.Errorf("%w: day %d defined twice", ErrInvalidDefinition, day)
			}
			def := entry.Definition
			def.Day = day
			def.Exercises = append([]Exercise(nil), entry.Exercises...)
			if err := def.Validate(); err != nil {
				return nil, err
			}
			c.days[day] = def
		}
	}

	for day := 1; day <= domain.WorkoutDayCount; day++ {
		if _, ok := c.days[day]; !ok {
			return nil, fmt.Errorf("%w: day %d missing", ErrInvalidDefinition, day)
		}
	}
	return c, nil
}

// Day returns the workout for a program day
func (c *Catalog) Day(day int) (Definition, error) {
	def, ok := c.days[day]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %d", ErrUnknownDay, day)
	}
	return def, nil
}

// All returns every workout ordered by day
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.days))
	for _, def := range c.days {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
