package store

import (
	"cmp"
	"slices"
	"strings"

	"interviewace/internal/utils/sort"
	"interviewace/schema"
)

// Leaderboard lists reviewable candidates, best score first.
func Leaderboard(state schema.AppState) []schema.Candidate {
	out := make([]schema.Candidate, 0, len(state.Candidates))
	for _, c := range state.Candidates {
		if c.Interview.Status.Reviewable() {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b schema.Candidate) int {
		if r := compareScore(b, a); r != 0 {
			return r
		}
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
	return out
}

var tableColumns = map[string]func(a, b schema.Candidate) int{
	"name": func(a, b schema.Candidate) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	"score":     compareScore,
	"createdAt": func(a, b schema.Candidate) int { return cmp.Compare(a.CreatedAt, b.CreatedAt) },
}

// compareScore orders missing scores below any recorded score.
func compareScore(a, b schema.Candidate) int {
	switch {
	case a.Score == nil && b.Score == nil:
		return 0
	case a.Score == nil:
		return -1
	case b.Score == nil:
		return 1
	}
	return cmp.Compare(*a.Score, *b.Score)
}

// Table returns the candidates whose name or email contains query,
// ordered by sorts. An empty sorts list orders by score, best first.
func Table(state schema.AppState, query string, sorts []sort.SortMethod) ([]schema.Candidate, error) {
	if len(sorts) == 0 {
		sorts = []sort.SortMethod{{Name: "score", Type: sort.SortTypeDesc}}
	}
	less, err := sort.GetSort(tableColumns, slices.Concat(sorts, []sort.SortMethod{{Name: "createdAt", Type: sort.SortTypeAsc}}))
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]schema.Candidate, 0, len(state.Candidates))
	for _, c := range state.Candidates {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Email), q) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, less)
	return out, nil
}

func TableColumns() []string {
	return []string{"name", "score", "createdAt"}
}

// AnswerFor returns the user message tagged with question index idx.
func AnswerFor(c schema.Candidate, idx int) (schema.ChatMessage, bool) {
	for _, m := range c.Interview.ChatHistory {
		if m.Role == schema.RoleUser && m.QuestionNumber != nil && *m.QuestionNumber == idx {
			return m, true
		}
	}
	return schema.ChatMessage{}, false
}

// Transcript renders the chat history as "role: content" lines.
func Transcript(c schema.Candidate) string {
	lines := make([]string, 0, len(c.Interview.ChatHistory))
	for _, m := range c.Interview.ChatHistory {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
