package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_CollapsesAcrossCaseWhitespaceAndDiacritics(t *testing.T) {
	records := []Record{
		{ID: "a:1", Source: SourceOpenLibrary, Title: "São Paulo", Authors: []string{"Ana"}},
		{ID: "b:1", Source: SourceInternetArchive, Title: "sao   paulo", Authors: []string{"ana"}},
	}

	merged := Merge(records)

	require.Len(t, merged, 1)
	assert.Equal(t, "a:1", merged[0].ID)
}

func TestMerge_PrefersActionableRecord(t *testing.T) {
	t.Run("later pdf replaces earlier non-pdf", func(t *testing.T) {
		merged := Merge([]Record{
			{ID: "a:1", Title: "Dom Casmurro", Authors: []string{"Machado de Assis"}},
			{ID: "b:1", Title: "dom casmurro", Authors: []string{"machado de assis"}, PDFURL: "http://b/x.pdf"},
		})
		require.Len(t, merged, 1)
		assert.Equal(t, "http://b/x.pdf", merged[0].PDFURL)
	})

	t.Run("first pdf is kept over later pdf", func(t *testing.T) {
		merged := Merge([]Record{
			{ID: "a:1", Title: "Dom Casmurro", Authors: []string{"Machado de Assis"}, PDFURL: "http://a/x.pdf"},
			{ID: "b:1", Title: "dom casmurro", Authors: []string{"machado de assis"}, PDFURL: "http://b/x.pdf", Cover: "http://b/c.jpg"},
		})
		require.Len(t, merged, 1)
		assert.Equal(t, "http://a/x.pdf", merged[0].PDFURL)
	})

	t.Run("first non-pdf is kept over later non-pdf", func(t *testing.T) {
		merged := Merge([]Record{
			{ID: "a:1", Title: "Dom Casmurro", Authors: []string{"Machado de Assis"}, ReadURL: "http://a"},
			{ID: "b:1", Title: "dom casmurro", Authors: []string{"machado de assis"}, ReadURL: "http://b"},
		})
		require.Len(t, merged, 1)
		assert.Equal(t, "a:1", merged[0].ID)
	})
}

func TestMerge_Idempotent(t *testing.T) {
	records := []Record{
		{ID: "a:1", Title: "Dom Casmurro", Authors: []string{"Machado de Assis"}},
		{ID: "a:2", Title: "Quincas Borba", Authors: []string{"Machado de Assis"}},
		{ID: "b:1", Title: "dom casmurro", Authors: []string{"Machado De Assis"}, PDFURL: "http://b/x.pdf"},
		{ID: "c:1", Title: "Memórias Póstumas", Authors: []string{"Machado de Assis"}},
	}

	once := Merge(records)
	twice := Merge(once)

	assert.Equal(t, once, twice)
}

func TestMerge_FirstSeenOrderOfDistinctKeys(t *testing.T) {
	records := []Record{
		{ID: "1", Title: "Beta", Authors: []string{"X"}},
		{ID: "2", Title: "Alpha", Authors: []string{"Y"}, PDFURL: "http://a.pdf"},
		{ID: "3", Title: "beta", Authors: []string{"x"}, PDFURL: "http://b.pdf"},
		{ID: "4", Title: "Gamma", Authors: []string{"Z"}},
	}

	merged := Merge(records)

	require.Len(t, merged, 3)
	// replacement by an actionable duplicate must not move the key
	assert.Equal(t, "3", merged[0].ID)
	assert.Equal(t, "2", merged[1].ID)
	assert.Equal(t, "4", merged[2].ID)
}

func TestMerge_EmptyTitlesCollideWhenAuthorsMatch(t *testing.T) {
	merged := Merge([]Record{
		{ID: "1", Title: "", Authors: []string{"Anon"}},
		{ID: "2", Title: "   ", Authors: []string{"anon"}},
		{ID: "3", Title: "", Authors: []string{"Someone Else"}},
	})

	assert.Len(t, merged, 2)
}

func TestMerge_DistinctFirstAuthorsStaySeparate(t *testing.T) {
	merged := Merge([]Record{
		{ID: "1", Title: "Poems", Authors: []string{"Ana"}},
		{ID: "2", Title: "Poems", Authors: []string{"Bruno"}},
	})

	assert.Len(t, merged, 2)
}

func TestFilterActionable(t *testing.T) {
	out := FilterActionable([]Record{
		{ID: "1", PDFURL: "http://a.pdf"},
		{ID: "2"},
		{ID: "3", ReadURL: "http://landing"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
}
