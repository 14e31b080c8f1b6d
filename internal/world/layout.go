package world

import (
	"encoding/json"
	"fmt"
	"os"
)

type layoutFile struct {
	Stations []layoutStation `json:"stations"`
}

type layoutStation struct {
	ID        string      `json:"id"`
	Kind      StationKind `json:"kind"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Direction string      `json:"direction"`
}

// LoadLayout reads the static station placement exported from the map
// editor.
func LoadLayout(path string) ([]*Station, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	var file layoutFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	stations := make([]*Station, 0, len(file.Stations))
	seen := make(map[string]struct{}, len(file.Stations))
	for i, entry := range file.Stations {
		if entry.ID == "" || !entry.Kind.Valid() {
			return nil, fmt.Errorf("layout station %d: invalid id or kind", i)
		}
		key := string(entry.Kind) + "/" + entry.ID
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("layout station %d: duplicate %s", i, key)
		}
		seen[key] = struct{}{}
		stations = append(stations, NewStation(entry.ID, entry.Kind, entry.X, entry.Y, entry.Direction))
	}
	return stations, nil
}
