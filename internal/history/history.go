package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// MaxEntries bounds every store; older entries are dropped.
const MaxEntries = 10

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Summary is the slice of analysis.Summary kept per entry.
type Summary struct {
	TotalRows     int     `json:"totalRows"`
	TotalColumns  int     `json:"totalColumns"`
	Completeness  float64 `json:"completeness"`
	DuplicateRows int     `json:"duplicateRows"`
}

// Entry is one recorded analysis.
type Entry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"fileName"`
	Timestamp    time.Time `json:"timestamp"`
	QualityScore int       `json:"qualityScore"`
	Summary      Summary   `json:"summary"`
}

// Store keeps the most recent analyses, newest first.
type Store interface {
	Record(fileName string, rep *analysis.Report) (Entry, error)
	List() ([]Entry, error)
	Clear() error
}

// NewEntry builds an entry for rep stamped with the current time.
func NewEntry(fileName string, rep *analysis.Report) (Entry, error) {
	if rep == nil {
		return Entry{}, errors.New("nil report")
	}
	return Entry{
		ID:           uuid.NewString(),
		FileName:     fileName,
		Timestamp:    time.Now().UTC(),
		QualityScore: rep.QualityScore,
		Summary: Summary{
			TotalRows:     rep.Summary.TotalRows,
			TotalColumns:  rep.Summary.TotalColumns,
			Completeness:  rep.Summary.Completeness,
			DuplicateRows: rep.Summary.DuplicateRows,
		},
	}, nil
}

// prepend returns e followed by entries, cut to MaxEntries.
func prepend(e Entry, entries []Entry) []Entry {
	out := make([]Entry, 0, min(len(entries)+1, MaxEntries))
	out = append(out, e)
	for _, x := range entries {
		if len(out) == MaxEntries {
			break
		}
		out = append(out, x)
	}
	return out
}

// Trend summarizes recent scores.
type Trend struct {
	AverageScore  float64 `json:"averageScore"`
	Direction     string  `json:"trend"`
	TotalAnalyses int     `json:"totalAnalyses"`
}

const (
	Improving = "improving"
	Declining = "declining"
)

// ComputeTrend looks at the five most recent entries. It returns nil when
// fewer than two entries exist. Equal newest and oldest scores count as
// declining.
func ComputeTrend(entries []Entry) *Trend {
	if len(entries) < 2 {
		return nil
	}
	recent := entries[:min(len(entries), 5)]
	sum := 0
	for _, e := range recent {
		sum += e.QualityScore
	}
	dir := Declining
	if recent[0].QualityScore > recent[len(recent)-1].QualityScore {
		dir = Improving
	}
	return &Trend{
		AverageScore:  float64(sum) / float64(len(recent)),
		Direction:     dir,
		TotalAnalyses: len(entries),
	}
}

// Open returns the store for backend. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if path == "" {
			return nil, errors.New("history file path not set")
		}
		return NewFileStore(path), nil
	case BackendSQLite:
		if path == "" {
			return nil, errors.New("history database path not set")
		}
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown history backend %q (want memory, file or sqlite)", backend)
}
