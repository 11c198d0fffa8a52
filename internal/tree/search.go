package tree

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"reportstudio/internal/domain"
)

// Match is one search hit. BlockID is empty when the section title matched.
type Match struct {
	SectionID string `json:"sectionId"`
	BlockID   string `json:"blockId,omitempty"`
	Text      string `json:"text"`
	Distance  int    `json:"distance"`
}

// Search fuzzy-matches query against section titles and block text. Results
// are ordered by match distance, then document order. limit <= 0 means no
// limit.
func Search(t domain.ContentTree, query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var (
		targets []string
		refs    []Match
	)
	Walk(t, func(s *domain.Section, _ int) bool {
		if s.Title != "" {
			targets = append(targets, s.Title)
			refs = append(refs, Match{SectionID: s.ID, Text: s.Title})
		}
		for _, b := range s.Blocks {
			if text := b.Text(); text != "" {
				targets = append(targets, text)
				refs = append(refs, Match{SectionID: s.ID, BlockID: b.ID, Text: text})
			}
		}
		return true
	})

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]Match, 0, len(ranks))
	for _, r := range ranks {
		m := refs[r.OriginalIndex]
		m.Distance = r.Distance
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
