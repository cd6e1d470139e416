package storage

import (
	"testing"
	"time"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

func TestBoardEntityRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	board := domain.Board{
		ID:      "b1",
		Title:   "Release",
		Owner:   "u1",
		Members: []string{"u1", "u2"},
		Invites: []string{"new@example.com"},
		Lists: []domain.List{
			{ID: "l1", Title: "To Do", Order: 0, Cards: []string{"c1", "c2"}},
			{ID: "l2", Title: "Done", Order: 1, Cards: []string{}},
		},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}

	payload, err := encodeBoardEntity(board)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeBoardEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "b1" || got.Title != "Release" || got.Owner != "u1" {
		t.Fatalf("unexpected board: %#v", got)
	}
	if len(got.Lists) != 2 || len(got.Lists[0].Cards) != 2 || got.Lists[0].Cards[1] != "c2" {
		t.Fatalf("list sequences lost: %#v", got.Lists)
	}
	if len(got.Invites) != 1 || got.Invites[0] != "new@example.com" {
		t.Fatalf("invites lost: %#v", got.Invites)
	}
	if !got.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Fatalf("timestamps lost: %#v", got.UpdatedAt)
	}
}

func TestDecodeBoardEntityToleratesEmptyProperties(t *testing.T) {
	data := []byte(`{"PartitionKey":"b1","RowKey":"b1","Title":"Bare"}`)
	got, err := decodeBoardEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Members == nil || got.Invites == nil || got.Lists == nil {
		t.Fatalf("expected empty slices, got %#v", got)
	}
}

func TestCardEntityRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	due := created.AddDate(0, 0, 3)
	card := domain.Card{
		ID:          "c1",
		Title:       "Fix login",
		Description: "token refresh races",
		ListID:      "l1",
		BoardID:     "b1",
		DueDate:     &due,
		Labels:      []string{"bug", "auth"},
		CreatedBy:   "u1",
		CreatedAt:   created,
	}

	payload, err := encodeCardEntity(card)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeCardEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "c1" || got.BoardID != "b1" || got.ListID != "l1" {
		t.Fatalf("unexpected card: %#v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date lost: %#v", got.DueDate)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "bug" {
		t.Fatalf("labels lost: %#v", got.Labels)
	}
}

func TestCardEntityWithoutDueDate(t *testing.T) {
	card := domain.Card{
		ID:        "c1",
		Title:     "No due",
		ListID:    "l1",
		BoardID:   "b1",
		Labels:    []string{},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	payload, err := encodeCardEntity(card)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeCardEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected empty due date, got %v", got.DueDate)
	}
}

func TestKeyFilterEscapesQuotes(t *testing.T) {
	if got := keyFilter("RowKey", "c1"); got != "RowKey eq 'c1'" {
		t.Fatalf("unexpected filter: %q", got)
	}
	got := keyFilter("RowKey", "x' or RowKey ne '")
	want := "RowKey eq 'x'' or RowKey ne '''"
	if got != want {
		t.Fatalf("expected quotes doubled, got %q", got)
	}
}
