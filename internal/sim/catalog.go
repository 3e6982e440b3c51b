package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iancoleman/orderedmap"
)

// ObstacleType is the closed set of spawnable obstacle kinds. Simulation and
// wire protocol share the same tags so there is no translation table between
// the engine and whatever renders it.
type ObstacleType string

const (
	ObstacleCactusSmall ObstacleType = "cactus-small"
	ObstacleCactusLarge ObstacleType = "cactus-large"
	ObstaclePterodactyl ObstacleType = "pterodactyl"
)

// ObstacleTypes lists every catalog entry in spawn-roll order. The uniform
// type pick indexes into this slice, so the order is part of the determinism
// contract and must never change between peers.
var ObstacleTypes = []ObstacleType{
	ObstacleCactusSmall,
	ObstacleCactusLarge,
	ObstaclePterodactyl,
}

// TypeDescriptor is the static, read-only configuration for one obstacle
// kind. Instances clone Hitboxes verbatim at spawn time; the descriptor
// itself is never mutated.
type TypeDescriptor struct {
	Type        ObstacleType `json:"type" jsonschema:"title=Obstacle type tag,description=Closed tag shared by simulation and presentation"`
	Width       int          `json:"width" jsonschema:"description=Sprite width in pixels"`
	Height      int          `json:"height" jsonschema:"description=Sprite height in pixels"`
	YPositions  []int        `json:"yPositions" jsonschema:"description=Allowed vertical placements; one entry means a fixed ground position"`
	MinGap      int          `json:"minGap" jsonschema:"description=Minimum pixel gap to the next obstacle before the coefficient is applied"`
	MinSpeed    float64      `json:"minSpeed" jsonschema:"description=Global speed below which this type never spawns"`
	SpeedOffset float64      `json:"speedOffset,omitempty" jsonschema:"description=Per-instance speed delta magnitude; sign is rolled at spawn"`
	NumFrames   int          `json:"numFrames" jsonschema:"description=Animation frame count"`
	FrameRateMS float64      `json:"frameRateMs,omitempty" jsonschema:"description=Milliseconds per animation frame; zero disables animation"`
	Hitboxes    []Box        `json:"hitboxes" jsonschema:"description=Precise sub-hitboxes at a local origin"`
}

// catalog holds every descriptor keyed by type. Package data, never mutated
// after init; lookups hand out copies so callers cannot reach the shared
// hitbox slices.
var catalog = map[ObstacleType]TypeDescriptor{
	ObstacleCactusSmall: {
		Type:       ObstacleCactusSmall,
		Width:      17,
		Height:     35,
		YPositions: []int{105},
		MinGap:     120,
		MinSpeed:   0,
		NumFrames:  1,
		Hitboxes: []Box{
			{X: 0, Y: 7, W: 5, H: 27},
			{X: 4, Y: 0, W: 6, H: 34},
			{X: 10, Y: 4, W: 7, H: 14},
		},
	},
	ObstacleCactusLarge: {
		Type:       ObstacleCactusLarge,
		Width:      25,
		Height:     50,
		YPositions: []int{90},
		MinGap:     120,
		MinSpeed:   0,
		NumFrames:  1,
		Hitboxes: []Box{
			{X: 0, Y: 12, W: 7, H: 38},
			{X: 8, Y: 0, W: 7, H: 49},
			{X: 13, Y: 10, W: 10, H: 38},
		},
	},
	ObstaclePterodactyl: {
		Type:        ObstaclePterodactyl,
		Width:       46,
		Height:      40,
		YPositions:  []int{100, 75, 50},
		MinGap:      150,
		MinSpeed:    8.5,
		SpeedOffset: 0.8,
		NumFrames:   2,
		FrameRateMS: 1000.0 / 6.0,
		Hitboxes: []Box{
			{X: 15, Y: 15, W: 16, H: 5},
			{X: 18, Y: 21, W: 24, H: 6},
			{X: 2, Y: 14, W: 4, H: 3},
			{X: 6, Y: 10, W: 4, H: 7},
			{X: 10, Y: 8, W: 6, H: 9},
		},
	},
}

// Descriptor returns a copy of the catalog entry for the given type.
func Descriptor(t ObstacleType) (TypeDescriptor, bool) {
	desc, ok := catalog[t]
	if !ok {
		return TypeDescriptor{}, false
	}
	return desc.clone(), true
}

func (d TypeDescriptor) clone() TypeDescriptor {
	cloned := d
	cloned.YPositions = append([]int(nil), d.YPositions...)
	cloned.Hitboxes = append([]Box(nil), d.Hitboxes...)
	return cloned
}

// CatalogDocument models the machine-readable catalog rendered for schema
// generation and fingerprinting.
type CatalogDocument []TypeDescriptor

// CatalogEntries returns every descriptor ordered by type tag.
func CatalogEntries() CatalogDocument {
	entries := make(CatalogDocument, 0, len(catalog))
	for _, desc := range catalog {
		entries = append(entries, desc.clone())
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	return entries
}

// CatalogFingerprint hashes the catalog through a canonical key-ordered JSON
// rendering. The relay hands the hash to every joiner so a client built
// against a drifted catalog can refuse to enter a lockstep session instead of
// silently diverging.
func CatalogFingerprint() (string, error) {
	doc := orderedmap.New()
	for _, desc := range CatalogEntries() {
		entry := orderedmap.New()
		entry.Set("width", desc.Width)
		entry.Set("height", desc.Height)
		entry.Set("yPositions", desc.YPositions)
		entry.Set("minGap", desc.MinGap)
		entry.Set("minSpeed", desc.MinSpeed)
		entry.Set("speedOffset", desc.SpeedOffset)
		entry.Set("numFrames", desc.NumFrames)
		entry.Set("frameRateMs", desc.FrameRateMS)
		entry.Set("hitboxes", desc.Hitboxes)
		doc.Set(string(desc.Type), entry)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal catalog fingerprint document: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
