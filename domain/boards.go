package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BoardService covers board lifecycle, sharing and the read path that feeds
// the recommendation engine.
type BoardService struct {
	store  Store
	notify Notifier
	rec    Recommender

	now   func() time.Time
	newID func() string
}

func NewBoardService(store Store, notifier Notifier) BoardService {
	return BoardService{
		store:  store,
		notify: notifier,
		rec:    NewRecommender(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateBoard creates a board owned by the caller, pre-populated with the
// default lists.
func (s BoardService) CreateBoard(ctx context.Context, userID, title string) (Board, error) {
	if strings.TrimSpace(title) == "" {
		return Board{}, ValidationError{Reason: "board title is required"}
	}
	board := NewBoard(title, userID, s.now())
	if err := s.store.SaveBoard(ctx, board); err != nil {
		return Board{}, err
	}
	return board, nil
}

// GetBoard returns the hydrated view plus the recommendations derived from it.
func (s BoardService) GetBoard(ctx context.Context, userID, boardID string) (HydratedBoard, []Suggestion, error) {
	board, err := s.loadAuthorizedBoard(ctx, userID, boardID)
	if err != nil {
		return HydratedBoard{}, nil, err
	}
	cards, err := s.store.FindCardsByBoard(ctx, board.ID)
	if err != nil {
		return HydratedBoard{}, nil, err
	}
	hydrated := Hydrate(*board, cards)
	return hydrated, s.rec.Recommend(hydrated), nil
}

// Recommendations recomputes suggestions without returning the board view.
func (s BoardService) Recommendations(ctx context.Context, userID, boardID string) ([]Suggestion, error) {
	_, suggestions, err := s.GetBoard(ctx, userID, boardID)
	return suggestions, err
}

// MyBoards lists boards the caller owns or is a member of.
func (s BoardService) MyBoards(ctx context.Context, userID string) ([]Board, error) {
	return s.store.FindBoardsByMember(ctx, userID)
}

// InvitedBoards lists boards holding a pending invite for the caller's email.
func (s BoardService) InvitedBoards(ctx context.Context, email string) ([]Board, error) {
	return s.store.FindBoardsByInvite(ctx, strings.ToLower(email))
}

// AddList appends a list to the board. The new list's order is the current
// list count; orders are never renumbered afterwards.
func (s BoardService) AddList(ctx context.Context, userID, boardID, title string) (List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return List{}, ValidationError{Reason: "list title is required"}
	}
	board, err := s.loadAuthorizedBoard(ctx, userID, boardID)
	if err != nil {
		return List{}, err
	}
	list := List{ID: s.newID(), Title: title, Order: len(board.Lists), Cards: []string{}}
	board.Lists = append(board.Lists, list)
	board.UpdatedAt = s.now()
	if err := s.store.SaveBoard(ctx, *board); err != nil {
		return List{}, err
	}
	s.notify.NotifyBoardChanged(ctx, board.ID)
	return list, nil
}

// Invite records a pending invite for the given email. Only the owner may
// invite; inviting an email twice is a no-op.
func (s BoardService) Invite(ctx context.Context, userID, userEmail, boardID, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ValidationError{Reason: "email is required"}
	}
	board, err := s.store.FindBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board == nil {
		return ErrNotFound
	}
	if board.Owner != userID {
		return ErrAccessDenied
	}
	if normalized == strings.ToLower(userEmail) {
		return ValidationError{Reason: "you cannot invite yourself"}
	}
	for _, invite := range board.Invites {
		if invite == normalized {
			return nil
		}
	}
	board.Invites = append(board.Invites, normalized)
	board.UpdatedAt = s.now()
	return s.store.SaveBoard(ctx, *board)
}

// AcceptInvite consumes a pending invite matching the caller's email and adds
// the caller to the member set. Adding an existing member is a no-op.
func (s BoardService) AcceptInvite(ctx context.Context, userID, userEmail, boardID string) error {
	board, err := s.store.FindBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board == nil {
		return ErrNotFound
	}
	normalized := strings.ToLower(userEmail)
	idx := -1
	for i, invite := range board.Invites {
		if invite == normalized {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	board.Invites = append(board.Invites[:idx], board.Invites[idx+1:]...)
	if !board.IsMember(userID) {
		board.Members = append(board.Members, userID)
	}
	board.UpdatedAt = s.now()
	if err := s.store.SaveBoard(ctx, *board); err != nil {
		return err
	}
	s.notify.NotifyBoardChanged(ctx, board.ID)
	return nil
}

func (s BoardService) loadAuthorizedBoard(ctx context.Context, userID, boardID string) (*Board, error) {
	board, err := s.store.FindBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrNotFound
	}
	if !board.IsMember(userID) {
		return nil, ErrAccessDenied
	}
	return board, nil
}
