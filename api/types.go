package api

import (
	"context"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

// Boards abstracts the board lifecycle and read path for handlers.
type Boards interface {
	CreateBoard(ctx context.Context, userID, title string) (domain.Board, error)
	MyBoards(ctx context.Context, userID string) ([]domain.Board, error)
	InvitedBoards(ctx context.Context, email string) ([]domain.Board, error)
	GetBoard(ctx context.Context, userID, boardID string) (domain.HydratedBoard, []domain.Suggestion, error)
	Recommendations(ctx context.Context, userID, boardID string) ([]domain.Suggestion, error)
	AddList(ctx context.Context, userID, boardID, title string) (domain.List, error)
	Invite(ctx context.Context, userID, userEmail, boardID, email string) error
	AcceptInvite(ctx context.Context, userID, userEmail, boardID string) error
}

// Cards abstracts the card consistency operations for handlers.
type Cards interface {
	CreateCard(ctx context.Context, userID, boardID, listID string, input domain.CardInput) (domain.Card, error)
	UpdateCard(ctx context.Context, userID, cardID string, patch map[string]any) (domain.Card, error)
	MoveCard(ctx context.Context, userID, boardID, sourceListID, destListID, cardID string) error
}

// Authenticator is implemented by types able to extract user claims from
// Authorization headers.
type Authenticator interface {
	ClaimsFromAuthHeader(string) (UserClaims, error)
}
