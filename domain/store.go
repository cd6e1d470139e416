package domain

import "context"

// Store abstracts durable persistence for boards and cards. Implementations
// guarantee per-document atomicity only; nothing coordinates a board write
// with a card write.
//
// Find methods return (nil, nil) when the entity does not exist.
type Store interface {
	FindBoard(ctx context.Context, boardID string) (*Board, error)
	SaveBoard(ctx context.Context, board Board) error
	FindBoardsByMember(ctx context.Context, userID string) ([]Board, error)
	FindBoardsByInvite(ctx context.Context, email string) ([]Board, error)
	FindCard(ctx context.Context, cardID string) (*Card, error)
	SaveCard(ctx context.Context, card Card) error
	FindCardsByBoard(ctx context.Context, boardID string) ([]Card, error)
}

// Notifier fans out "board changed" signals to other viewers. Delivery is
// best effort; implementations log failures and never block the mutation.
type Notifier interface {
	NotifyBoardChanged(ctx context.Context, boardID string)
}

// RepairQueue accepts board ids whose card references need to be rebuilt
// out-of-band. Enqueue failures are logged by callers, never surfaced.
type RepairQueue interface {
	EnqueueRepair(ctx context.Context, boardID string) error
}
