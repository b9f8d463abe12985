// Package zones holds the parking-spot zone definitions of a lot and reads
// and writes them in their JSON form:
//
//	{
//	  "lot_id": 3,
//	  "zones": [
//	    {"spot_id": "A1", "coords": [[10, 10], [60, 10], [60, 110], [10, 110]]}
//	  ]
//	}
//
// Coordinates are image pixels, four vertices per zone in click order.
package zones

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// VerticesPerZone is the number of corners a zone is annotated with.
const VerticesPerZone = 4

// ErrDataFormat is wrapped by every error caused by missing or malformed
// zone definitions.
var ErrDataFormat = errors.New("invalid zone data")

// Zone is one parking spot.
type Zone struct {
	SpotID string           `json:"spot_id"`
	Coords geometry.Polygon `json:"coords"`
}

// Lot is the zone definition of a parking lot.
type Lot struct {
	LotID int    `json:"lot_id"`
	Zones []Zone `json:"zones"`
}

// SpotIDs returns the spot ids in zone order.
func (l *Lot) SpotIDs() []string {
	ids := make([]string, len(l.Zones))
	for i, z := range l.Zones {
		ids[i] = z.SpotID
	}
	return ids
}

// Validate checks that every zone has a non-empty, unique spot id and
// exactly VerticesPerZone vertices.
func (l *Lot) Validate() error {
	if len(l.Zones) == 0 {
		return fmt.Errorf("%w: lot %d has no zones", ErrDataFormat, l.LotID)
	}

	seen := make(map[string]int, len(l.Zones))
	for i, z := range l.Zones {
		if z.SpotID == "" {
			return fmt.Errorf("%w: zone %d has an empty spot_id", ErrDataFormat, i)
		}
		if prev, ok := seen[z.SpotID]; ok {
			return fmt.Errorf("%w: spot_id %q used by zones %d and %d", ErrDataFormat, z.SpotID, prev, i)
		}
		seen[z.SpotID] = i

		if len(z.Coords) != VerticesPerZone {
			return fmt.Errorf("%w: zone %q has %d vertices, want %d",
				ErrDataFormat, z.SpotID, len(z.Coords), VerticesPerZone)
		}
	}
	return nil
}

// rawLot distinguishes a missing lot_id or zones key from a zero value.
type rawLot struct {
	LotID *int   `json:"lot_id"`
	Zones []Zone `json:"zones"`
}

// Parse decodes and validates a zone definition.
func Parse(r io.Reader) (*Lot, error) {
	var raw rawLot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	if raw.LotID == nil {
		return nil, fmt.Errorf("%w: missing lot_id", ErrDataFormat)
	}

	lot := &Lot{LotID: *raw.LotID, Zones: raw.Zones}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}

// Load reads and validates the zone definition at path.
func Load(path string) (*Lot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}

	lot, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lot, nil
}

// Write encodes lot as indented JSON.
func Write(w io.Writer, lot *Lot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lot)
}

// Save writes lot to path, creating parent directories as needed.
func Save(path string, lot *Lot) error {
	if err := lot.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create zones directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, lot); err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
