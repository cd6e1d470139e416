package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const maxSuggestions = 8

// Suggestion is one advisory recommendation. Type selects which of the
// optional fields are populated. Applying a suggestion is the caller's
// responsibility; the engine never mutates state.
type Suggestion struct {
	Type               string     `json:"type"`
	CardID             string     `json:"cardId,omitempty"`
	CardIDs            []string   `json:"cardIds,omitempty"`
	Message            string     `json:"message"`
	SuggestedDate      *time.Time `json:"suggestedDate,omitempty"`
	SuggestedListID    string     `json:"suggestedListId,omitempty"`
	SuggestedListTitle string     `json:"suggestedListTitle,omitempty"`
	SharedKeywords     []string   `json:"sharedKeywords,omitempty"`
}

const (
	SuggestionDueDate = "dueDate"
	SuggestionMove    = "move"
	SuggestionRelated = "related"
)

// The rule tables are ordered data: the first matching row wins, so the
// literal order below is load-bearing.

type dueDateRule struct {
	patterns []string
	days     int
}

var dueDateRules = []dueDateRule{
	{patterns: []string{"today", "urgent", "asap"}, days: 0},
	{patterns: []string{"tomorrow", "tmrw"}, days: 1},
	{patterns: []string{"review", "qa", "testing"}, days: 3},
	{patterns: []string{"next week", "week end", "weekly"}, days: 7},
	{patterns: []string{"next sprint", "next month", "later"}, days: 14},
}

type moveRule struct {
	keywords []string
	target   string
}

var moveRules = []moveRule{
	{keywords: []string{"start", "started", "starting", "working", "progress", "wip"}, target: "In Progress"},
	{keywords: []string{"blocked", "waiting", "review"}, target: "In Progress"},
	{keywords: []string{"complete", "completed", "done", "ship", "ready"}, target: "Done"},
}

// Recommender derives suggestions from a hydrated board snapshot. The clock
// is injected so due-date offsets stay deterministic under test.
type Recommender struct {
	now func() time.Time
}

func NewRecommender() Recommender { return Recommender{now: time.Now} }

// Recommend scans the board and returns at most eight suggestions: the
// per-card due-date and move suggestions in card creation order, followed by
// related-card pairs. Anything past the cap is silently dropped.
func (r Recommender) Recommend(hb HydratedBoard) []Suggestion {
	suggestions := []Suggestion{}
	for _, card := range hb.Cards {
		if s, ok := r.dueDateSuggestion(card); ok {
			suggestions = append(suggestions, s)
		}
		if s, ok := moveSuggestion(card, hb.Lists); ok {
			suggestions = append(suggestions, s)
		}
	}
	suggestions = append(suggestions, relatedSuggestions(hb.Cards)...)
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

func (r Recommender) dueDateSuggestion(card Card) (Suggestion, bool) {
	if card.DueDate != nil {
		return Suggestion{}, false
	}
	haystack := strings.ToLower(card.Title + " " + card.Description)
	for _, rule := range dueDateRules {
		for _, p := range rule.patterns {
			if strings.Contains(haystack, p) {
				due := r.now().AddDate(0, 0, rule.days)
				return Suggestion{
					Type:          SuggestionDueDate,
					CardID:        card.ID,
					Message:       fmt.Sprintf("Set a due date for %q based on its description", card.Title),
					SuggestedDate: &due,
				}, true
			}
		}
	}
	return Suggestion{}, false
}

func moveSuggestion(card Card, lists []HydratedList) (Suggestion, bool) {
	haystack := strings.ToLower(card.Title + " " + card.Description)
	for _, rule := range moveRules {
		if !containsAny(haystack, rule.keywords) {
			continue
		}
		target := listByTitle(lists, rule.target)
		if target == nil || target.ID == card.ListID {
			return Suggestion{}, false
		}
		return Suggestion{
			Type:               SuggestionMove,
			CardID:             card.ID,
			Message:            fmt.Sprintf("Move %q to %q", card.Title, target.Title),
			SuggestedListID:    target.ID,
			SuggestedListTitle: target.Title,
		}, true
	}
	return Suggestion{}, false
}

func containsAny(haystack string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

func listByTitle(lists []HydratedList, title string) *HydratedList {
	lowered := strings.ToLower(title)
	for i := range lists {
		if strings.ToLower(lists[i].Title) == lowered {
			return &lists[i]
		}
	}
	return nil
}

func relatedSuggestions(cards []Card) []Suggestion {
	type tokenized struct {
		card   Card
		tokens []string
		set    map[string]struct{}
	}
	entries := make([]tokenized, len(cards))
	for i, c := range cards {
		tokens := tokenize(c.Title + " " + c.Description)
		set := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			set[t] = struct{}{}
		}
		entries[i] = tokenized{card: c, tokens: tokens, set: set}
	}

	suggestions := []Suggestion{}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			shared := []string{}
			for _, t := range entries[i].tokens {
				if _, ok := entries[j].set[t]; ok {
					shared = append(shared, t)
				}
			}
			if len(shared) < 2 {
				continue
			}
			if len(shared) > 5 {
				shared = shared[:5]
			}
			suggestions = append(suggestions, Suggestion{
				Type:           SuggestionRelated,
				CardIDs:        []string{entries[i].card.ID, entries[j].card.ID},
				Message:        fmt.Sprintf("%q and %q both mention %s", entries[i].card.Title, entries[j].card.Title, strings.Join(shared[:2], ", ")),
				SharedKeywords: shared,
			})
		}
	}
	return suggestions
}

// tokenize lowercases the text, strips everything outside [a-z0-9] and
// whitespace, and splits into unique tokens in first-occurrence order.
func tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := fields[:0]
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
