// Package domain provides domain models used across the application.
package domain

// Region kinds in the curated region hierarchy.
const (
	RegionKindState    = "state"
	RegionKindDistrict = "district"
)

// Region is a node of the curated region hierarchy. Regions are
// referenced by listings but never owned by them; the table itself is
// maintained by external tooling.
type Region struct {
	ID       string  `db:"id"        json:"id"`
	Name     string  `db:"name"      json:"name"`
	Slug     string  `db:"slug"      json:"slug"`
	Kind     string  `db:"kind"      json:"kind"`
	ParentID *string `db:"parent_id" json:"parent_id,omitempty"`
}
