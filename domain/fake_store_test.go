package domain

import (
	"context"
	"sort"
	"strings"
)

type fakeStore struct {
	boards map[string]Board
	cards  map[string]Card

	findBoardErr error
	findCardErr  error
	saveBoardErr error
	saveCardErr  error

	savedBoard Board
	savedCard  Card
	boardSaves int
	cardSaves  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{boards: map[string]Board{}, cards: map[string]Card{}}
}

func (f *fakeStore) putBoard(b Board) { f.boards[b.ID] = b }
func (f *fakeStore) putCard(c Card)   { f.cards[c.ID] = c }

func (f *fakeStore) FindBoard(ctx context.Context, boardID string) (*Board, error) {
	if f.findBoardErr != nil {
		return nil, f.findBoardErr
	}
	b, ok := f.boards[boardID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) SaveBoard(ctx context.Context, board Board) error {
	if f.saveBoardErr != nil {
		return f.saveBoardErr
	}
	f.boards[board.ID] = board
	f.savedBoard = board
	f.boardSaves++
	return nil
}

func (f *fakeStore) FindBoardsByMember(ctx context.Context, userID string) ([]Board, error) {
	out := []Board{}
	for _, b := range f.boards {
		if b.IsMember(userID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindBoardsByInvite(ctx context.Context, email string) ([]Board, error) {
	out := []Board{}
	for _, b := range f.boards {
		for _, invite := range b.Invites {
			if invite == strings.ToLower(email) {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindCard(ctx context.Context, cardID string) (*Card, error) {
	if f.findCardErr != nil {
		return nil, f.findCardErr
	}
	c, ok := f.cards[cardID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) SaveCard(ctx context.Context, card Card) error {
	if f.saveCardErr != nil {
		return f.saveCardErr
	}
	f.cards[card.ID] = card
	f.savedCard = card
	f.cardSaves++
	return nil
}

func (f *fakeStore) FindCardsByBoard(ctx context.Context, boardID string) ([]Card, error) {
	out := []Card{}
	for _, c := range f.cards {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type fakeNotifier struct {
	changed []string
}

func (f *fakeNotifier) NotifyBoardChanged(ctx context.Context, boardID string) {
	f.changed = append(f.changed, boardID)
}

type fakeRepairQueue struct {
	queued []string
	err    error
}

func (f *fakeRepairQueue) EnqueueRepair(ctx context.Context, boardID string) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, boardID)
	return nil
}
