package retrieval

import (
	"time"

	"github.com/google/uuid"
)

// Retrieval methods recorded in the trace.
const (
	MethodHybrid          = "hybrid"
	MethodKeywordFallback = "keyword_fallback"
	MethodSemanticOnly    = "semantic_only"
	MethodNone            = "none"
)

// TraceEntry is one returned entry with its final score.
type TraceEntry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Trace is the per-turn debug record. It is always produced, including
// for empty queries and fully degraded retrievals, so a turn can be
// explained after the fact.
type Trace struct {
	ID              string         `json:"id"`
	Query           string         `json:"query"`
	Timestamp       time.Time      `json:"timestamp"`
	RetrievalMethod string         `json:"retrieval_method"`
	ExecutionMs     int64          `json:"execution_ms"`
	Zone            Zone           `json:"zone,omitempty"`
	Sources         []SourceReport `json:"sources,omitempty"`
	Entries         []TraceEntry   `json:"entries,omitempty"`
}

func newTrace(query string) *Trace {
	return &Trace{
		ID:              uuid.NewString(),
		Query:           query,
		Timestamp:       time.Now().UTC(),
		RetrievalMethod: MethodNone,
	}
}

// methodFrom derives the retrieval method from which source kinds
// actually contributed hits. Semantic and lexical together is hybrid;
// lexical alone means the semantic branch degraded or was absent.
func methodFrom(reports []SourceReport) string {
	var semantic, lexical bool
	for _, r := range reports {
		if r.Err != "" || r.Hits == 0 {
			continue
		}
		switch r.Kind {
		case KindSemantic:
			semantic = true
		case KindLexical:
			lexical = true
		}
	}
	switch {
	case semantic && lexical:
		return MethodHybrid
	case lexical:
		return MethodKeywordFallback
	case semantic:
		return MethodSemanticOnly
	}
	return MethodNone
}
