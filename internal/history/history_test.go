package history_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/history"
)

func report(score int) *analysis.Report {
	return &analysis.Report{
		Summary:      analysis.Summary{TotalRows: 10, TotalColumns: 2, Completeness: 95, DuplicateRows: 1},
		QualityScore: score,
	}
}

func stores(t *testing.T) map[string]history.Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := history.OpenSQLite(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]history.Store{
		"memory": history.NewMemoryStore(),
		"file":   history.NewFileStore(filepath.Join(dir, "sub", "history.json")),
		"sqlite": sqlite,
	}
}

func TestStoresKeepMostRecentFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			list, err := s.List()
			require.NoError(t, err)
			assert.Empty(t, list)

			for i := 0; i < 12; i++ {
				e, err := s.Record(fmt.Sprintf("f%d.csv", i), report(50+i))
				require.NoError(t, err)
				assert.NotEmpty(t, e.ID)
			}
			list, err = s.List()
			require.NoError(t, err)
			require.Len(t, list, history.MaxEntries)
			assert.Equal(t, "f11.csv", list[0].FileName)
			assert.Equal(t, 61, list[0].QualityScore)
			assert.Equal(t, "f2.csv", list[len(list)-1].FileName)
			assert.Equal(t, 10, list[0].Summary.TotalRows)
			assert.Equal(t, 95.0, list[0].Summary.Completeness)

			require.NoError(t, s.Clear())
			list, err = s.List()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestRecordRejectsNilReport(t *testing.T) {
	_, err := history.NewMemoryStore().Record("x.csv", nil)
	assert.Error(t, err)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	_, err := history.NewFileStore(path).Record("a.csv", report(80))
	require.NoError(t, err)

	list, err := history.NewFileStore(path).List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.csv", list[0].FileName)
}

func TestComputeTrend(t *testing.T) {
	assert.Nil(t, history.ComputeTrend(nil))
	assert.Nil(t, history.ComputeTrend([]history.Entry{{QualityScore: 90}}))

	entries := []history.Entry{
		{QualityScore: 90}, {QualityScore: 80}, {QualityScore: 70},
		{QualityScore: 60}, {QualityScore: 50}, {QualityScore: 10},
	}
	tr := history.ComputeTrend(entries)
	require.NotNil(t, tr)
	assert.Equal(t, 70.0, tr.AverageScore)
	assert.Equal(t, history.Improving, tr.Direction)
	assert.Equal(t, 6, tr.TotalAnalyses)

	tr = history.ComputeTrend([]history.Entry{{QualityScore: 70}, {QualityScore: 70}})
	assert.Equal(t, history.Declining, tr.Direction)
}

func TestOpen(t *testing.T) {
	s, err := history.Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &history.MemoryStore{}, s)

	_, err = history.Open(history.BackendFile, "")
	assert.Error(t, err)

	_, err = history.Open("redis", "x")
	assert.ErrorContains(t, err, "unknown history backend")

	s, err = history.Open(history.BackendFile, filepath.Join(t.TempDir(), "h.json"))
	require.NoError(t, err)
	assert.IsType(t, &history.FileStore{}, s)
}
