package domain

import "slices"

// Reconcile rebuilds every list's card sequence from the card back-references,
// which are the authoritative side of the duplicated membership. Retained ids
// keep their relative order, duplicates and dangling references are dropped,
// and cards a sequence lost track of are appended in card order. Returns true
// when any sequence changed; callers persist the board only in that case.
//
// Cards pointing at a list id the board no longer embeds are left out of every
// sequence and surface again once their list reference is fixed.
func Reconcile(board *Board, cards []Card) bool {
	byID := make(map[string]Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	changed := false
	for i := range board.Lists {
		list := &board.Lists[i]
		seen := make(map[string]struct{}, len(list.Cards))
		rebuilt := make([]string, 0, len(list.Cards))
		for _, id := range list.Cards {
			c, ok := byID[id]
			if !ok || c.ListID != list.ID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rebuilt = append(rebuilt, id)
		}
		for _, c := range cards {
			if c.ListID != list.ID {
				continue
			}
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			rebuilt = append(rebuilt, c.ID)
		}
		if !slices.Equal(rebuilt, list.Cards) {
			changed = true
		}
		list.Cards = rebuilt
	}
	return changed
}
