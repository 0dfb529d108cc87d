package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pmercier/upc-harvester/internal/harvest"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "decisions.csv"), KeepFirst)
	require.NoError(t, err)
	return store
}

func TestNewFileStore_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("", KeepFirst)
	require.Error(t, err)

	_, err = NewFileStore("decisions.csv", DedupPolicy("bogus"))
	require.ErrorContains(t, err, "dedup policy")
}

func TestFileStore_LoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	d, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, d.Len())
	require.Equal(t, 0, d.StartPage())
}

func TestFileStore_PersistLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	want := harvest.Dataset{Records: []harvest.Record{
		{
			Date:           "04/03/2024",
			Registry:       []string{"UPC_CFI_123/2024", "UPC_CFI_456/2024"},
			FullDetailsURL: "https://court.example/en/node/123",
			Court:          "Court of First Instance - Munich",
			ActionType:     "Infringement Action",
			Parties:        "Acme v Globex",
			DocumentURL:    "https://court.example/files/decision_123.pdf",
			LocalPath:      "data/documents/decision_123.pdf",
			ContentSHA256:  "deadbeef",
			PageIndex:      3,
		},
		{
			Date:        "not a date",
			Registry:    []string{"UPC_CoA_9/2024"},
			DocumentURL: "https://court.example/files/order_9.pdf",
			PageIndex:   7,
		},
	}}

	require.NoError(t, store.Persist(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, 8, got.StartPage())
}

func TestFileStore_LoadsOlderFilesWithoutNewerColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "decisions.csv")
	legacy := strings.Join([]string{
		"date,registry,full_details,court,action_type,parties,document_url,page_index",
		`04/03/2024,UPC_CFI_1/2024,https://x/node/1,Court,Action,Parties,https://x/a.pdf,2`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	store, err := NewFileStore(path, KeepFirst)
	require.NoError(t, err)

	d, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	rec := d.Records[0]
	require.Equal(t, []string{"UPC_CFI_1/2024"}, rec.Registry)
	require.Empty(t, rec.LocalPath)
	require.Empty(t, rec.ContentSHA256)
	require.Equal(t, 2, rec.PageIndex)
}

func TestFileStore_PersistLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "decisions.csv"), KeepFirst)
	require.NoError(t, err)

	d := harvest.Dataset{Records: []harvest.Record{
		{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/a.pdf"},
	}}
	require.NoError(t, store.Persist(context.Background(), d))
	require.NoError(t, store.Persist(context.Background(), d))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "decisions.csv", entries[0].Name())
}

func TestFileStore_PersistCreatesParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "decisions.csv")
	store, err := NewFileStore(path, KeepFirst)
	require.NoError(t, err)

	require.NoError(t, store.Persist(context.Background(), harvest.Dataset{}))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFileStore_MultilineRegistrySurvivesRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	want := harvest.Dataset{Records: []harvest.Record{
		{
			Registry:    []string{"UPC_CFI_1/2024", "UPC_CFI_2/2024", "App_3/2024"},
			DocumentURL: "https://x/a.pdf",
		},
	}}

	require.NoError(t, store.Persist(context.Background(), want))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Records[0].Registry, got.Records[0].Registry)
}

func TestFileStore_MergeUsesConfiguredPolicy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "decisions.csv")
	store, err := NewFileStore(path, KeepLast)
	require.NoError(t, err)

	existing := harvest.Record{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/a.pdf", Parties: "old"}
	incoming := harvest.Record{Registry: []string{"UPC_CFI_1/2024"}, DocumentURL: "https://x/a.pdf", Parties: "new"}

	merged := store.Merge(harvest.Dataset{Records: []harvest.Record{existing}}, []harvest.Record{incoming})
	require.Equal(t, 1, merged.Len())
	require.Equal(t, "new", merged.Records[0].Parties)
}
