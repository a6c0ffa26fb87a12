package location

import (
	"strings"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

// overrides maps normalized (state, district) keys that the generic
// normalization cannot resolve to the correct district slug. These are
// known problem cases, mostly city/district name collisions.
var overrides = map[string]string{
	"salzburg|salzburg":       "salzburg-stadt",
	"steiermark|graz":         "graz-stadt",
	"tirol|innsbruck":         "innsbruck-stadt",
	"kaernten|klagenfurt":     "klagenfurt-stadt",
	"kaernten|villach":        "villach-stadt",
	"oberoesterreich|linz":    "linz-stadt",
	"oberoesterreich|wels":    "wels-stadt",
	"oberoesterreich|steyr":   "steyr-stadt",
	"niederoesterreich|krems": "krems-an-der-donau",
}

// Index matches loosely-formatted scraped location strings against the
// curated region hierarchy. It is used by batch repair and import
// tooling, not by the live pipeline.
type Index struct {
	states    map[string]string // normalized state name -> state slug
	districts map[string]string // "stateKey|districtKey" -> district slug
}

// NewIndex builds the lookup indices from the full region table.
func NewIndex(regions []*domain.Region) *Index {
	idx := &Index{
		states:    make(map[string]string),
		districts: make(map[string]string),
	}

	byID := make(map[string]*domain.Region, len(regions))
	for _, region := range regions {
		byID[region.ID] = region
	}

	for _, region := range regions {
		switch region.Kind {
		case domain.RegionKindState:
			idx.states[normalizeKey(region.Name)] = region.Slug
		case domain.RegionKindDistrict:
			if region.ParentID == nil {
				continue
			}
			parent, ok := byID[*region.ParentID]
			if !ok {
				continue
			}
			key := normalizeKey(parent.Name) + "|" + normalizeKey(region.Name)
			idx.districts[key] = region.Slug
		}
	}

	return idx
}

// StateSlug resolves a scraped state name to its canonical slug.
func (idx *Index) StateSlug(state string) (string, bool) {
	slug, ok := idx.states[normalizeKey(state)]
	return slug, ok
}

// DistrictSlug resolves a scraped (state, district) pair to the
// canonical district slug, consulting the override table first.
func (idx *Index) DistrictSlug(state, district string) (string, bool) {
	key := normalizeKey(state) + "|" + normalizeKey(district)

	if slug, ok := overrides[key]; ok {
		return slug, true
	}

	slug, ok := idx.districts[key]
	return slug, ok
}

// umlautReplacer expands the German umlauts and sharp s so that
// "Währing" and "Waehring" normalize to the same key.
var umlautReplacer = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// normalizeKey lowercases, expands umlauts, strips parenthetical
// suffixes, and removes non-alphanumerics.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	s = umlautReplacer.Replace(s)

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
