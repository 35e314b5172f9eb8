package serializers

import (
	"encoding/json"

	"github.com/phrazzld/temba-api/internal/domain"
)

// BoundaryParent is the minimal form of a parent boundary.
type BoundaryParent struct {
	OsmID string `json:"osm_id"`
	Name  string `json:"name"`
}

// BoundaryResponse is the API view of an admin boundary.
type BoundaryResponse struct {
	OsmID    string          `json:"osm_id"`
	Name     string          `json:"name"`
	Parent   *BoundaryParent `json:"parent"`
	Level    int             `json:"level"`
	Aliases  []string        `json:"aliases"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// BoundaryRead projects an admin boundary. Geometry is only included when
// the request asks for it.
func BoundaryRead(rc *Context, b *domain.AdminBoundary) *BoundaryResponse {
	resp := &BoundaryResponse{
		OsmID:   b.OsmID,
		Name:    b.Name,
		Level:   b.Level,
		Aliases: b.Aliases,
	}
	if resp.Aliases == nil {
		resp.Aliases = []string{}
	}
	if b.Parent != nil {
		resp.Parent = &BoundaryParent{OsmID: b.Parent.OsmID, Name: b.Parent.Name}
	}
	if rc.IncludeGeometry && len(b.Geometry) > 0 {
		resp.Geometry = b.Geometry
	}
	return resp
}
