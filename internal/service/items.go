package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

const defaultSearchLimit = 20

// ItemSearch backs the item dropdowns. Results are cached per normalised query.
type ItemSearch struct {
	Items *repository.ItemRepo
	Cache *formstack.SearchCache[[]repository.Item]
	Limit int
}

// Get returns one item by number.
func (s *ItemSearch) Get(ctx context.Context, no string) (repository.Item, error) {
	return s.Items.Get(ctx, no)
}

// Search ranks items against query. A substring match is tried first; when it
// finds nothing the whole master is ranked by edit distance so typos still hit.
func (s *ItemSearch) Search(ctx context.Context, query string) ([]repository.Item, error) {
	key := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if s.Cache != nil {
		if hit, ok := s.Cache.Get(key); ok {
			return append([]repository.Item(nil), hit...), nil
		}
	}

	items, err := s.Items.Search(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	fuzzy := false
	if len(items) == 0 && key != "" {
		items, err = s.Items.Search(ctx, "", 0)
		if err != nil {
			return nil, err
		}
		fuzzy = true
	}
	ranked := rankItems(key, items, fuzzy)
	limit := s.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if s.Cache != nil {
		s.Cache.Set(key, append([]repository.Item(nil), ranked...))
	}
	return ranked, nil
}

// Invalidate drops cached results after the item master changes.
func (s *ItemSearch) Invalidate() {
	if s.Cache != nil {
		s.Cache.Clear()
	}
}

type scoredItem struct {
	item  repository.Item
	score float64
}

func rankItems(query string, items []repository.Item, fuzzy bool) []repository.Item {
	if query == "" {
		return items
	}
	scored := make([]scoredItem, 0, len(items))
	for _, it := range items {
		score := itemScore(query, it)
		if fuzzy && score > 0.5 {
			continue
		}
		scored = append(scored, scoredItem{item: it, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		return scored[i].item.No < scored[j].item.No
	})
	out := make([]repository.Item, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.item)
	}
	return out
}

// itemScore is the best normalised edit distance between the query and the
// item number or any description word. Zero is an exact hit.
func itemScore(query string, it repository.Item) float64 {
	no := strings.ToLower(it.No)
	if strings.HasPrefix(no, query) {
		return 0
	}
	best := distance(query, no)
	for _, qw := range strings.Fields(query) {
		for _, w := range strings.Fields(strings.ToLower(it.Description)) {
			if strings.HasPrefix(w, qw) {
				best = min(best, 0.1)
				continue
			}
			best = min(best, distance(qw, w))
		}
	}
	return best
}

// distance is the edit distance normalised by the longer word, both counted
// in runes.
func distance(a, b string) float64 {
	maxlen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxlen == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(maxlen)
}
