package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Region is a market region with a reference coordinate for weather lookups.
type Region struct {
	ID        string  `json:"id"`       // e.g. "WEM", "NSW1"
	Name      string  `json:"name"`     // e.g. "Perth"
	Market    string  `json:"market"`   // e.g. "WEM", "NEM"
	Timezone  string  `json:"timezone"` // IANA zone, e.g. "Australia/Perth"
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegionList represents a collection of regions.
type RegionList struct {
	UpdatedAt string   `json:"updated_at"` // ISO 8601 timestamp
	Regions   []Region `json:"regions"`
}

// DefaultRegions is used when no regions file exists.
var DefaultRegions = []Region{
	{ID: "WEM", Name: "Perth", Market: "WEM", Timezone: "Australia/Perth", Latitude: -31.9523, Longitude: 115.8613},
	{ID: "NSW1", Name: "Sydney", Market: "NEM", Timezone: "Australia/Sydney", Latitude: -33.8688, Longitude: 151.2093},
	{ID: "VIC1", Name: "Melbourne", Market: "NEM", Timezone: "Australia/Melbourne", Latitude: -37.8136, Longitude: 144.9631},
	{ID: "QLD1", Name: "Brisbane", Market: "NEM", Timezone: "Australia/Brisbane", Latitude: -27.4698, Longitude: 153.0251},
	{ID: "SA1", Name: "Adelaide", Market: "NEM", Timezone: "Australia/Adelaide", Latitude: -34.9285, Longitude: 138.6007},
	{ID: "TAS1", Name: "Hobart", Market: "NEM", Timezone: "Australia/Hobart", Latitude: -42.8821, Longitude: 147.3272},
}

// LoadRegions loads regions from a JSON file.
func LoadRegions(filePath string) (*RegionList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}

	var list RegionList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse regions file: %w", err)
	}

	return &list, nil
}

// LoadRegionsOrDefault falls back to DefaultRegions when the file does not exist.
func LoadRegionsOrDefault(filePath string) (*RegionList, error) {
	list, err := LoadRegions(filePath)
	if err == nil {
		return list, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &RegionList{Regions: append([]Region(nil), DefaultRegions...)}, nil
	}
	return nil, err
}

// SaveRegions saves regions to a JSON file.
func SaveRegions(list *RegionList, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal regions: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write regions file: %w", err)
	}

	return nil
}

// Find looks a region up by ID, case-insensitively.
func (l *RegionList) Find(id string) (Region, bool) {
	for _, r := range l.Regions {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return Region{}, false
}
