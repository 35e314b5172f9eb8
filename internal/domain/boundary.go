package domain

import "encoding/json"

// AdminBoundary is an administrative region: a country (level 0), state
// (1), district (2) or ward (3). Geometry is simplified GeoJSON.
type AdminBoundary struct {
	ID       AdminBoundaryID `json:"id"`
	OsmID    string          `json:"osm_id"`
	Name     string          `json:"name"`
	Level    int             `json:"level"`
	Parent   *AdminBoundary  `json:"parent,omitempty"`
	Aliases  []string        `json:"aliases,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}
