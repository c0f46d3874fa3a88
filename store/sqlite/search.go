package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

// SearchKeywords finds ACTIVE entries whose content or keyword list
// matches any of the search terms, using the FTS5 index. Entries are
// returned newest first; relevance ranking happens upstream.
func (s *Store) SearchKeywords(ctx context.Context, p store.SearchParams) ([]*core.MemoryEntry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	match := ftsQuery(p.Keywords)
	if match == "" {
		return nil, nil
	}

	where := []string{"m.status = 'ACTIVE'"}
	args := []interface{}{match}

	if p.ProfileID != "" {
		where = append(where, "m.profile_id = ?")
		args = append(args, p.ProfileID)
	}
	if p.Source != "" {
		where = append(where, "m.source = ?")
		args = append(args, p.Source)
	}
	args = append(args, limit)

	query := fmt.Sprintf(selectCols("m")+`
		 FROM memory_entries m
		 JOIN entries_fts f ON f.rowid = m.rowid
		 WHERE entries_fts MATCH ? AND %s
		 ORDER BY m.created_at DESC, m.id
		 LIMIT ?`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ftsQuery builds an OR query over quoted terms. Quotes inside terms
// are doubled per FTS5 string syntax; empty terms are dropped.
func ftsQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(kw, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}
