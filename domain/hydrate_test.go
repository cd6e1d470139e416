package domain

import (
	"testing"
	"time"
)

func testBoard() Board {
	return Board{
		ID:      "b1",
		Title:   "Release",
		Owner:   "u1",
		Members: []string{"u1", "u2"},
		Invites: []string{},
		Lists: []List{
			{ID: "l1", Title: "To Do", Order: 0, Cards: []string{}},
			{ID: "l2", Title: "In Progress", Order: 1, Cards: []string{}},
			{ID: "l3", Title: "Done", Order: 2, Cards: []string{}},
		},
	}
}

func testCard(id, listID, title string, createdAt time.Time) Card {
	return Card{
		ID:        id,
		Title:     title,
		ListID:    listID,
		BoardID:   "b1",
		Labels:    []string{},
		CreatedBy: "u1",
		CreatedAt: createdAt,
	}
}

func TestHydrateResolvesCardsInSequenceOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	board := testBoard()
	board.Lists[0].Cards = []string{"c2", "c1"}
	cards := []Card{
		testCard("c1", "l1", "first", base),
		testCard("c2", "l1", "second", base.Add(time.Minute)),
	}

	hb := Hydrate(board, cards)

	if len(hb.Lists) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(hb.Lists))
	}
	got := hb.Lists[0].Cards
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("unexpected list order: %#v", got)
	}
	if len(hb.Cards) != 2 || hb.Cards[0].ID != "c1" || hb.Cards[1].ID != "c2" {
		t.Fatalf("expected flat cards in creation order, got %#v", hb.Cards)
	}
}

func TestHydrateDropsDanglingReferences(t *testing.T) {
	board := testBoard()
	board.Lists[0].Cards = []string{"c1", "gone", "c2"}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cards := []Card{
		testCard("c1", "l1", "one", base),
		testCard("c2", "l1", "two", base.Add(time.Second)),
	}

	hb := Hydrate(board, cards)

	got := hb.Lists[0].Cards
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("expected dangling id dropped, got %#v", got)
	}
}

func TestHydrateSortsListsByOrderStable(t *testing.T) {
	board := testBoard()
	board.Lists = []List{
		{ID: "l3", Title: "Later", Order: 2, Cards: []string{}},
		{ID: "l1", Title: "First tie", Order: 0, Cards: []string{}},
		{ID: "l2", Title: "Second tie", Order: 0, Cards: []string{}},
	}

	hb := Hydrate(board, nil)

	if hb.Lists[0].ID != "l1" || hb.Lists[1].ID != "l2" || hb.Lists[2].ID != "l3" {
		t.Fatalf("unexpected list order: %#v", hb.Lists)
	}
}

func TestHydrateReturnsIndependentCopy(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	due := base.Add(48 * time.Hour)
	board := testBoard()
	board.Lists[0].Cards = []string{"c1"}
	card := testCard("c1", "l1", "deep copy", base)
	card.DueDate = &due
	card.Labels = []string{"infra"}

	hb := Hydrate(board, []Card{card})

	hb.Lists[0].Cards[0].Labels[0] = "mutated"
	*hb.Lists[0].Cards[0].DueDate = base
	hb.Members[0] = "mutated"

	if card.Labels[0] != "infra" {
		t.Fatalf("labels aliased into hydrated view")
	}
	if !due.Equal(base.Add(48 * time.Hour)) {
		t.Fatalf("due date aliased into hydrated view")
	}
	if board.Members[0] != "u1" {
		t.Fatalf("members aliased into hydrated view")
	}
}
