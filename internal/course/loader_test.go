package course

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigolf/server/internal/geom"
)

const validDescriptor = `
id: "0002"
holes:
  - index: 0
    start_position: {x: 0.0, y: 0.05, z: 0.0}
    hole_asset: "hole1.glb#Mesh0"
    wall_asset: "hole1_walls.glb#Mesh0"
    bounding_box:
      center: {x: 0.6, y: 0.25, z: 0.0}
      half_extents: {x: 0.7, y: 0.5, z: 0.5}
    hole_sensor:
      center: {x: 1.0, y: 0.0, z: 0.0}
      half_extents: {x: 0.1, y: 0.045, z: 0.1}
    power_ups:
      - transform:
          position: {x: 0.5, y: 0.05, z: 0.2}
        kind: hole_magnet
  - index: 1
    start_position: {x: 0.0, y: 0.05, z: 2.0}
    hole_asset: "hole2.glb#Mesh0"
    wall_asset: "hole2_walls.glb#Mesh0"
    bounding_box:
      center: {x: 0.6, y: 0.25, z: 2.0}
      half_extents: {x: 0.7, y: 0.5, z: 0.5}
    hole_sensor:
      center: {x: 1.0, y: 0.0, z: 2.0}
      half_extents: {x: 0.1, y: 0.045, z: 0.1}
`

func TestLoadValidCourse(t *testing.T) {
	course, err := Load(strings.NewReader(validDescriptor))
	require.NoError(t, err)
	require.Len(t, course.Holes, 2)
	assert.Equal(t, "0002", course.ID)
	assert.Equal(t, PowerUpHoleMagnet, course.Holes[0].PowerUps[0].Kind)
}

func TestLoadRejectsNonContiguousIndices(t *testing.T) {
	descriptor := strings.Replace(validDescriptor, "index: 1", "index: 3", 1)
	_, err := Load(strings.NewReader(descriptor))
	var malformedErr *MalformedCourseError
	require.ErrorAs(t, err, &malformedErr)
	assert.Contains(t, malformedErr.Reason, "contiguous")
}

func TestLoadRejectsDegenerateBoundingBox(t *testing.T) {
	descriptor := strings.Replace(validDescriptor, "half_extents: {x: 0.7, y: 0.5, z: 0.5}", "half_extents: {x: 0.0, y: 0.5, z: 0.5}", 1)
	_, err := Load(strings.NewReader(descriptor))
	var malformedErr *MalformedCourseError
	require.ErrorAs(t, err, &malformedErr)
	assert.Contains(t, malformedErr.Reason, "bounding_box")
}

func TestLoadRejectsMissingAssetReference(t *testing.T) {
	descriptor := strings.Replace(validDescriptor, `wall_asset: "hole1_walls.glb#Mesh0"`, `wall_asset: ""`, 1)
	_, err := Load(strings.NewReader(descriptor))
	var malformedErr *MalformedCourseError
	require.ErrorAs(t, err, &malformedErr)
	assert.Contains(t, malformedErr.Reason, "wall_asset")
}

func TestLoadRejectsUnknownPowerUpKind(t *testing.T) {
	descriptor := strings.Replace(validDescriptor, "kind: hole_magnet", "kind: rocket_boost", 1)
	_, err := Load(strings.NewReader(descriptor))
	var malformedErr *MalformedCourseError
	require.ErrorAs(t, err, &malformedErr)
	assert.Contains(t, malformedErr.Reason, "rocket_boost")
}

func TestHoleForPositionUsesBoundingBoxes(t *testing.T) {
	course, err := Load(strings.NewReader(validDescriptor))
	require.NoError(t, err)

	hole, ok := course.HoleForPosition(geom.Vec3{X: 0.6, Y: 0.2, Z: 2.1})
	require.True(t, ok)
	assert.Equal(t, 1, hole.Index)

	_, ok = course.HoleForPosition(geom.Vec3{X: 50, Y: 0, Z: 0})
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002.yaml"), []byte(validDescriptor), 0o644))

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002"}, catalog.IDs())

	loaded, ok := catalog.Get("0002")
	require.True(t, ok)
	assert.Len(t, loaded.Holes, 2)
}

func TestLoadCatalogFailsOnMalformedEntry(t *testing.T) {
	dir := t.TempDir()
	broken := strings.Replace(validDescriptor, "index: 0", "index: 7", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(broken), 0o644))

	_, err := LoadCatalog(dir)
	var malformedErr *MalformedCourseError
	require.ErrorAs(t, err, &malformedErr)
}

func TestCourseSampleOnDiskLoads(t *testing.T) {
	course, err := LoadFile(filepath.Join("..", "..", "courses", "0002.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0002", course.ID)
	require.Len(t, course.Holes, 2)
}
