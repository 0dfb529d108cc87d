package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://court.example/en/decisions-and-orders"

func fullRow(cells ...string) RawRow {
	return RawRow{Cells: cells}
}

func TestExtractor_WellFormedRow(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		{
			Cells: []string{
				"4 March 2024",
				"UPC_CFI_123/2024\nFull Details\nUPC_CFI_456/2024",
				"Court of First Instance - Munich",
				"Infringement Action",
				"Acme v Globex",
				"Download",
			},
			FullDetailsHref: "/en/node/123",
			DocumentHref:    "/sites/default/files/decision_123.pdf",
		},
	}

	records := extractor.Extract(rows, 7)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "04/03/2024", rec.Date)
	require.Equal(t, []string{"UPC_CFI_123/2024", "UPC_CFI_456/2024"}, rec.Registry)
	require.Equal(t, "https://court.example/en/node/123", rec.FullDetailsURL)
	require.Equal(t, "Court of First Instance - Munich", rec.Court)
	require.Equal(t, "Infringement Action", rec.ActionType)
	require.Equal(t, "Acme v Globex", rec.Parties)
	require.Equal(t, "https://court.example/sites/default/files/decision_123.pdf", rec.DocumentURL)
	require.Equal(t, 7, rec.PageIndex)
	require.Empty(t, rec.LocalPath)
}

func TestExtractor_ShortRowIsDropped(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		fullRow("4 March 2024", "UPC_CFI_1/2024", "Court", "Action", "Parties"),
		fullRow("5 March 2024", "UPC_CFI_2/2024", "Court", "Action", "Parties", "Doc"),
	}

	records := extractor.Extract(rows, 0)
	require.Len(t, records, 1)
	require.Equal(t, []string{"UPC_CFI_2/2024"}, records[0].Registry)
}

func TestExtractor_UnparseableDateKeptVerbatim(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		fullRow("sometime in spring", "UPC_CFI_1/2024", "Court", "Action", "Parties", ""),
	}

	records := extractor.Extract(rows, 0)
	require.Len(t, records, 1)
	require.Equal(t, "sometime in spring", records[0].Date)
}

func TestExtractor_AbsoluteLinksLeftAlone(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		{
			Cells:        []string{"4 March 2024", "UPC_CFI_1/2024", "Court", "Action", "Parties", ""},
			DocumentHref: "https://cdn.example/decision.pdf",
		},
	}

	records := extractor.Extract(rows, 0)
	require.Equal(t, "https://cdn.example/decision.pdf", records[0].DocumentURL)
}

func TestExtractor_MissingLinksResolveEmpty(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		fullRow("4 March 2024", "UPC_CFI_1/2024", "Court", "Action", "Parties", ""),
	}

	records := extractor.Extract(rows, 0)
	require.Empty(t, records[0].FullDetailsURL)
	require.Empty(t, records[0].DocumentURL)
}

func TestExtractor_RegistryDropsBoilerplateAndBlanks(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(testBaseURL)
	rows := []RawRow{
		fullRow("4 March 2024", "\nUPC_CoA_9/2024\n  Full Details  \n\n", "Court", "Action", "Parties", ""),
	}

	records := extractor.Extract(rows, 0)
	require.Equal(t, []string{"UPC_CoA_9/2024"}, records[0].Registry)
}

func TestRecord_KeyDistinguishesDocumentURL(t *testing.T) {
	t.Parallel()

	a := Record{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/a.pdf"}
	b := Record{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/b.pdf"}
	c := Record{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/a.pdf", Parties: "differs"}

	require.NotEqual(t, a.Key(), b.Key())
	require.Equal(t, a.Key(), c.Key())
}

func TestDataset_StartPage(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Dataset{}.StartPage())

	d := Dataset{Records: []Record{
		{PageIndex: 0},
		{PageIndex: 4},
		{PageIndex: 2},
	}}
	require.Equal(t, 5, d.StartPage())
}
