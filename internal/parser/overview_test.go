package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/parser"
)

// overviewPageHTML is an overview page carrying two listing summaries,
// one with an SEO slug and one without.
const overviewPageHTML = `<!DOCTYPE html>
<html>
<head><title>Mietwohnungen</title></head>
<body>
<div id="skeleton">rendered results</div>
<script id="__NEXT_DATA__" type="application/json">{
  "props": {
    "pageProps": {
      "searchResult": {
        "pageRequested": 1,
        "rowsRequested": 25,
        "rowsFound": 120,
        "rowsReturned": 2,
        "advertSummaryList": {
          "advertSummary": [
            {
              "id": "901234567",
              "description": "Helle 2-Zimmer-Wohnung in Neubau",
              "attributes": {
                "attribute": [
                  {"name": "PRICE", "values": ["€ 1.234,00"]},
                  {"name": "SEO_URL", "values": ["immobilien/d/mietwohnungen/wien/wien-1070-neubau/helle-2-zimmer-wohnung-901234567/"]}
                ]
              }
            },
            {
              "id": "901234568",
              "description": "Garconniere in Graz",
              "attributes": {
                "attribute": [
                  {"name": "PRICE", "values": ["€ 650,50"]}
                ]
              }
            }
          ]
        }
      }
    }
  }
}</script>
</body>
</html>`

// lastPageHTML is what the marketplace serves past the final page: the
// payload is present but the result node is gone.
const lastPageHTML = `<!DOCTYPE html>
<html>
<body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script>
</body>
</html>`

// noPayloadHTML is a page without the embedded payload script.
const noPayloadHTML = `<!DOCTYPE html>
<html>
<body><p>Wartungsarbeiten</p></body>
</html>`

func TestParseOverview(t *testing.T) {
	t.Parallel()

	items := parser.ParseOverview(overviewPageHTML)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "901234567", first.ID)
	assert.Equal(t, "Helle 2-Zimmer-Wohnung in Neubau", first.Title)
	assert.Equal(t,
		"https://www.willhaben.at/iad/immobilien/d/mietwohnungen/wien/wien-1070-neubau/helle-2-zimmer-wohnung-901234567/",
		first.URL,
	)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 1234.0, *first.Price, 0.001)

	second := items[1]
	assert.Equal(t, "901234568", second.ID)
	assert.Equal(t, "https://www.willhaben.at/iad/immobilien/d/901234568", second.URL,
		"summary without SEO slug falls back to the canonical detail URL")
	require.NotNil(t, second.Price)
	assert.InDelta(t, 650.5, *second.Price, 0.001)
}

func TestParseOverview_LastPage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parser.ParseOverview(lastPageHTML))
}

func TestParseOverview_NoPayload(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parser.ParseOverview(noPayloadHTML))
}

func TestParseOverview_MalformedPayload(t *testing.T) {
	t.Parallel()

	html := `<html><body><script id="__NEXT_DATA__" type="application/json">{"props": </script></body></html>`
	assert.Empty(t, parser.ParseOverview(html))
}

func TestExtractOverviewDebug(t *testing.T) {
	t.Parallel()

	debug := parser.ExtractOverviewDebug(overviewPageHTML, 1)

	assert.True(t, debug.PayloadPresent)
	assert.Equal(t, 1, debug.PageRequested)
	assert.Equal(t, 25, debug.RowsRequested)
	assert.Equal(t, 120, debug.RowsFound)
	assert.Equal(t, 2, debug.RowsReturned)
	assert.Equal(t, 2, debug.SummaryCount)
	assert.True(t, debug.PaginationConsistent)
}

func TestExtractOverviewDebug_PageMismatch(t *testing.T) {
	t.Parallel()

	debug := parser.ExtractOverviewDebug(overviewPageHTML, 7)

	assert.True(t, debug.PayloadPresent)
	assert.False(t, debug.PaginationConsistent)
}

func TestExtractOverviewDebug_NoPayload(t *testing.T) {
	t.Parallel()

	debug := parser.ExtractOverviewDebug(noPayloadHTML, 1)

	assert.False(t, debug.PayloadPresent)
	assert.False(t, debug.PaginationConsistent)
}
