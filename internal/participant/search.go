package participant

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultSearchLimit caps interactive search results.
const DefaultSearchLimit = 50

// fold builds a new Caser per call; a Caser carries state and must not be
// shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// NormalizeQuery trims and case-folds a free-text query. An empty result
// means no search should run.
func NormalizeQuery(q string) string {
	q = collapseQuery(q)
	if q == "" {
		return ""
	}
	return fold(q)
}

func collapseQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Matches reports whether p contains the normalized query in its child name,
// parent name or email.
func Matches(p Participant, normalized string) bool {
	if normalized == "" {
		return false
	}
	for _, field := range []string{p.ChildName, p.ParentName, p.Email} {
		if strings.Contains(fold(field), normalized) {
			return true
		}
	}
	return false
}

// Search filters all by query and returns at most limit matches ordered by
// child name. A blank query returns an empty result rather than everything.
// It never modifies its input.
func Search(all []Participant, query string, limit int) []Participant {
	normalized := NormalizeQuery(query)
	out := []Participant{}
	if normalized == "" {
		return out
	}
	for _, p := range all {
		if Matches(p, normalized) {
			out = append(out, p.Clone())
		}
	}
	SortByName(out)
	return capResults(out, limit)
}

// SortByName orders participants by case-folded child name, then by creation
// time and id so that names equal up to case keep insertion order.
func SortByName(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if fa, fb := fold(a.ChildName), fold(b.ChildName); fa != fb {
			return fa < fb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortByRecent orders participants newest first.
func SortByRecent(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func capResults(ps []Participant, limit int) []Participant {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if len(ps) > limit {
		return ps[:limit]
	}
	return ps
}
