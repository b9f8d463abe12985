package zones

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownLot is returned when no zone definition exists for a lot.
var ErrUnknownLot = errors.New("unknown lot")

// Source resolves the zone definition of a lot.
type Source interface {
	Lot(lotID int) (*Lot, error)
}

// DirSource reads zone definitions named lot-<id>.json from Dir.
type DirSource struct {
	Dir string
}

// Path returns the file holding lotID's zones.
func (s DirSource) Path(lotID int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("lot-%d.json", lotID))
}

// Lot implements Source. The lot_id inside the file must match lotID.
func (s DirSource) Lot(lotID int) (*Lot, error) {
	path := s.Path(lotID)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLot, lotID)
	}

	lot, err := Load(path)
	if err != nil {
		return nil, err
	}
	if lot.LotID != lotID {
		return nil, fmt.Errorf("%s: %w: file declares lot_id %d, want %d", path, ErrDataFormat, lot.LotID, lotID)
	}
	return lot, nil
}

// Save stores lot under its own id.
func (s DirSource) Save(lot *Lot) error {
	return Save(s.Path(lot.LotID), lot)
}

// LotIDs lists the lots with a definition file, ascending.
func (s DirSource) LotIDs() ([]int, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read zones directory: %w", err)
	}

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "lot-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "lot-"), ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Static serves a single in-memory lot.
type Static struct {
	Def *Lot
}

// Lot implements Source.
func (s Static) Lot(lotID int) (*Lot, error) {
	if s.Def == nil || s.Def.LotID != lotID {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLot, lotID)
	}
	return s.Def, nil
}
