package domain

import "sort"

// HydratedList is a list with its card references resolved to full records,
// in the stored sequence order.
type HydratedList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
	Cards []Card `json:"cards"`
}

// HydratedBoard is a read-optimized, fully independent view of a board.
// Cards holds the flat card set in creation order, which is the order the
// recommendation pass iterates.
type HydratedBoard struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Owner   string         `json:"owner"`
	Members []string       `json:"members"`
	Invites []string       `json:"invites"`
	Lists   []HydratedList `json:"lists"`
	Cards   []Card         `json:"-"`
}

// Hydrate assembles a board view from the raw board document and the full set
// of its cards. Lists are stable-sorted by order; card ids that no longer
// resolve are dropped rather than surfaced, so a reader never trips over a
// half-applied write. The result shares no memory with the inputs.
func Hydrate(board Board, cards []Card) HydratedBoard {
	flat := make([]Card, len(cards))
	for i, c := range cards {
		flat[i] = copyCard(c)
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].CreatedAt.Before(flat[j].CreatedAt) })

	byID := make(map[string]Card, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
	}

	lists := make([]List, len(board.Lists))
	copy(lists, board.Lists)
	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Order < lists[j].Order })

	hydrated := make([]HydratedList, 0, len(lists))
	for _, l := range lists {
		hl := HydratedList{ID: l.ID, Title: l.Title, Order: l.Order, Cards: []Card{}}
		for _, id := range l.Cards {
			if c, ok := byID[id]; ok {
				hl.Cards = append(hl.Cards, copyCard(c))
			}
		}
		hydrated = append(hydrated, hl)
	}

	return HydratedBoard{
		ID:      board.ID,
		Title:   board.Title,
		Owner:   board.Owner,
		Members: append([]string{}, board.Members...),
		Invites: append([]string{}, board.Invites...),
		Lists:   hydrated,
		Cards:   flat,
	}
}

func copyCard(c Card) Card {
	out := c
	out.Labels = append([]string{}, c.Labels...)
	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}
	return out
}
