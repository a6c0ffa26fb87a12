// Package location normalizes the free-text location fields scraped
// from listing pages into canonical state, district, city, and postal
// code values.
package location

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// RawLocation carries the address fields as scraped from a page, or the
// normalized result after Enhance.
type RawLocation struct {
	PostalCode string
	City       string
	District   string
	State      string
}

// stateSlugs maps URL path segments to canonical state names.
var stateSlugs = map[string]string{
	"burgenland":        "Burgenland",
	"kaernten":          "Kärnten",
	"niederoesterreich": "Niederösterreich",
	"oberoesterreich":   "Oberösterreich",
	"salzburg":          "Salzburg",
	"steiermark":        "Steiermark",
	"tirol":             "Tirol",
	"vorarlberg":        "Vorarlberg",
	"wien":              "Wien",
}

// viennaDistricts maps Vienna postal codes to the canonical district
// names, one entry per Bezirk.
var viennaDistricts = map[string]string{
	"1010": "Innere Stadt",
	"1020": "Leopoldstadt",
	"1030": "Landstraße",
	"1040": "Wieden",
	"1050": "Margareten",
	"1060": "Mariahilf",
	"1070": "Neubau",
	"1080": "Josefstadt",
	"1090": "Alsergrund",
	"1100": "Favoriten",
	"1110": "Simmering",
	"1120": "Meidling",
	"1130": "Hietzing",
	"1140": "Penzing",
	"1150": "Rudolfsheim-Fünfhaus",
	"1160": "Ottakring",
	"1170": "Hernals",
	"1180": "Währing",
	"1190": "Döbling",
	"1200": "Brigittenau",
	"1210": "Floridsdorf",
	"1220": "Donaustadt",
	"1230": "Liesing",
}

// viennaPostalCodes is the inverse of viennaDistricts.
var viennaPostalCodes = func() map[string]string {
	m := make(map[string]string, len(viennaDistricts))
	for code, name := range viennaDistricts {
		m[name] = code
	}
	return m
}()

// propertyTypeTokens are pseudo-district values misparsed upstream from
// the URL's property-type segment.
var propertyTypeTokens = map[string]bool{
	"mietwohnungen":     true,
	"eigentumswohnung":  true,
	"haus":              true,
	"haeuser":           true,
	"wohnung":           true,
	"wohnungen":         true,
	"zimmer":            true,
	"wg-zimmer":         true,
	"grundstuecke":      true,
	"gewerbeimmobilien": true,
}

// viennaCityPattern matches combined city strings of the form
// "Wien 7. Bezirk, Neubau".
var viennaCityPattern = regexp.MustCompile(`^(\S+)\s+(\d{1,2})\.\s*Bezirk(?:,\s*(.+))?$`)

// digitRunPattern matches long digit strings that cannot be real
// district names.
var digitRunPattern = regexp.MustCompile(`^\d{5,}$`)

// Enhance normalizes a raw scraped location. It never fails; when the
// source data is insufficient the output is simply partially filled.
// Precedence: missing state/district are inferred from the source URL's
// path segments; for Vienna the postal-code-derived district name wins
// over whatever the page carried.
func Enhance(raw RawLocation, sourceURL string) RawLocation {
	out := raw

	out.District = cleanDistrict(out.District)

	if (out.State == "" || out.District == "") && sourceURL != "" {
		fromURL := fromSourceURL(sourceURL)
		if out.State == "" {
			out.State = fromURL.State
		}
		if out.District == "" {
			out.District = fromURL.District
		}
		if out.PostalCode == "" {
			out.PostalCode = fromURL.PostalCode
		}
	}

	out = splitViennaCity(out)

	// Cross-derive postal code and district for Vienna. The postal code
	// is the single source of truth when both are present.
	if name, ok := viennaDistricts[out.PostalCode]; ok {
		out.District = name
		if out.City == "" {
			out.City = "Wien"
		}
		if out.State == "" {
			out.State = "Wien"
		}
	} else if out.PostalCode == "" && out.District != "" {
		if code, ok := viennaPostalCodes[out.District]; ok && isVienna(out) {
			out.PostalCode = code
		}
	}

	return out
}

// cleanDistrict discards district values that are actually property-type
// tokens or long digit runs.
func cleanDistrict(district string) string {
	if district == "" {
		return ""
	}
	if propertyTypeTokens[strings.ToLower(district)] {
		return ""
	}
	if digitRunPattern.MatchString(district) {
		return ""
	}
	return district
}

// fromSourceURL infers state, district, and a Vienna postal code from
// the listing URL's path segments.
func fromSourceURL(sourceURL string) RawLocation {
	var out RawLocation

	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return out
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		state, ok := stateSlugs[segment]
		if !ok {
			continue
		}
		out.State = state

		if i+1 < len(segments) {
			next := segments[i+1]
			if state == "Wien" {
				if code := viennaPostalFromSegment(next); code != "" {
					out.PostalCode = code
					break
				}
			}
			if district := districtFromSegment(next); district != "" {
				out.District = district
			}
		}
		break
	}

	return out
}

// viennaPostalFromSegment extracts a postal code from numeric-first
// Vienna sub-paths such as "1070-neubau" or "wien-1070-neubau".
func viennaPostalFromSegment(segment string) string {
	for _, part := range strings.Split(segment, "-") {
		if len(part) == 4 {
			if n, err := strconv.Atoi(part); err == nil && n >= 1010 && n <= 1230 {
				return part
			}
		}
	}
	return ""
}

// districtFromSegment turns a slugged district segment into a display
// name, rejecting property-type tokens.
func districtFromSegment(segment string) string {
	if segment == "" || propertyTypeTokens[segment] {
		return ""
	}
	if digitRunPattern.MatchString(segment) {
		return ""
	}

	words := strings.Split(segment, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, "-")
}

// splitViennaCity parses combined city strings of the form
// "Wien 7. Bezirk, Neubau" into a clean city plus district name.
func splitViennaCity(raw RawLocation) RawLocation {
	match := viennaCityPattern.FindStringSubmatch(raw.City)
	if match == nil {
		return raw
	}

	out := raw
	out.City = match[1]

	bezirk, err := strconv.Atoi(match[2])
	if err == nil && bezirk >= 1 && bezirk <= 23 && out.PostalCode == "" {
		out.PostalCode = strconv.Itoa(1000 + bezirk*10)
	}
	if match[3] != "" && out.District == "" {
		out.District = strings.TrimSpace(match[3])
	}

	return out
}

// isVienna reports whether the location is plausibly in Vienna.
func isVienna(loc RawLocation) bool {
	return strings.EqualFold(loc.City, "wien") || strings.EqualFold(loc.State, "wien")
}
