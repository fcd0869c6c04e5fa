package course

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses and validates a course descriptor.
func Load(r io.Reader) (*Course, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read course descriptor: %w", err)
	}
	var course Course
	if err := yaml.Unmarshal(data, &course); err != nil {
		return nil, malformed("", "invalid yaml: %v", err)
	}
	if err := validate(&course); err != nil {
		return nil, err
	}
	return &course, nil
}

// LoadFile loads a single course descriptor from disk.
func LoadFile(path string) (*Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open course descriptor: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Catalog holds every loadable course, keyed by id.
type Catalog struct {
	courses map[string]*Course
}

// LoadCatalog loads every *.yaml descriptor under dir. A single malformed
// descriptor fails the whole catalog; the lobby must not route players into
// a course that cannot form a session.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read course catalog dir: %w", err)
	}
	catalog := &Catalog{courses: make(map[string]*Course)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		course, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := catalog.courses[course.ID]; exists {
			return nil, malformed(course.ID, "duplicate course id in catalog")
		}
		catalog.courses[course.ID] = course
	}
	return catalog, nil
}

// Get returns the course with the given id.
func (c *Catalog) Get(id string) (*Course, bool) {
	if c == nil {
		return nil, false
	}
	course, ok := c.courses[id]
	return course, ok
}

// IDs lists the catalog's course ids in sorted order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.courses))
	for id := range c.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validate(c *Course) error {
	if c.ID == "" {
		return malformed("", "missing course id")
	}
	if len(c.Holes) == 0 {
		return malformed(c.ID, "course has no holes")
	}
	for i, hole := range c.Holes {
		if hole.Index != i {
			return malformed(c.ID, "hole indices must be contiguous from 0: position %d has index %d", i, hole.Index)
		}
		if hole.HoleAsset == "" {
			return malformed(c.ID, "hole %d: missing hole_asset reference", i)
		}
		if hole.WallAsset == "" {
			return malformed(c.ID, "hole %d: missing wall_asset reference", i)
		}
		if hole.BoundingBox.Degenerate() {
			return malformed(c.ID, "hole %d: degenerate bounding_box extents", i)
		}
		if hole.HoleSensor.Degenerate() {
			return malformed(c.ID, "hole %d: degenerate hole_sensor extents", i)
		}
		if !hole.BoundingBox.Contains(hole.StartPosition) {
			return malformed(c.ID, "hole %d: start_position outside bounding_box", i)
		}
		if !hole.BoundingBox.Contains(hole.HoleSensor.Center) {
			return malformed(c.ID, "hole %d: hole_sensor outside bounding_box", i)
		}
		for j, placement := range hole.PowerUps {
			if !KnownPowerUp(placement.Kind) {
				return malformed(c.ID, "hole %d: power_up %d: unknown kind %q", i, j, placement.Kind)
			}
		}
	}
	return nil
}
