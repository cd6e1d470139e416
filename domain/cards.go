package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CardService executes the membership-changing card operations. Every
// operation verifies board membership before touching state. The board
// document and the card document are written separately; when one of the two
// writes fails the survivor is kept, a ConsistencyWarning is returned and the
// board is queued for reconciliation.
type CardService struct {
	store  Store
	notify Notifier
	repair RepairQueue

	now   func() time.Time
	newID func() string
}

func NewCardService(store Store, notifier Notifier, repair RepairQueue) CardService {
	return CardService{
		store:  store,
		notify: notifier,
		repair: repair,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateCard creates a card under the given list and appends its id to the
// list's sequence. The card insert commits first; if the board update then
// fails the orphan card is tolerated and repaired out-of-band.
func (s CardService) CreateCard(ctx context.Context, userID, boardID, listID string, input CardInput) (Card, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Card{}, ValidationError{Reason: "card title is required"}
	}
	board, err := s.loadAuthorizedBoard(ctx, userID, boardID)
	if err != nil {
		return Card{}, err
	}
	list := board.FindList(listID)
	if list == nil {
		return Card{}, ErrNotFound
	}

	card := Card{
		ID:          s.newID(),
		Title:       title,
		Description: input.Description,
		ListID:      list.ID,
		BoardID:     board.ID,
		DueDate:     input.DueDate,
		Labels:      normalizeLabels(input.Labels),
		CreatedBy:   userID,
		CreatedAt:   s.now(),
	}
	if err := s.store.SaveCard(ctx, card); err != nil {
		return Card{}, err
	}

	list.Cards = append(list.Cards, card.ID)
	board.UpdatedAt = s.now()
	if err := s.store.SaveBoard(ctx, *board); err != nil {
		s.requestRepair(ctx, board.ID)
		return card, ConsistencyWarning{BoardID: board.ID, CardID: card.ID, Err: err}
	}

	s.notify.NotifyBoardChanged(ctx, board.ID)
	return card, nil
}

// cardPatchFields is the allow-list of mutable card fields. Anything else in
// a patch is ignored without error.
var cardPatchFields = map[string]struct{}{
	"title":       {},
	"description": {},
	"dueDate":     {},
	"labels":      {},
}

// UpdateCard applies an allow-listed patch to an existing card. Membership is
// re-verified through the card's own board reference.
func (s CardService) UpdateCard(ctx context.Context, userID, cardID string, patch map[string]any) (Card, error) {
	card, err := s.store.FindCard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	if card == nil {
		return Card{}, ErrNotFound
	}
	if _, err := s.loadAuthorizedBoard(ctx, userID, card.BoardID); err != nil {
		return Card{}, err
	}

	for field, value := range patch {
		if _, ok := cardPatchFields[field]; !ok {
			continue
		}
		if err := applyCardField(card, field, value); err != nil {
			return Card{}, err
		}
	}

	if err := s.store.SaveCard(ctx, *card); err != nil {
		return Card{}, err
	}
	s.notify.NotifyBoardChanged(ctx, card.BoardID)
	return *card, nil
}

func applyCardField(card *Card, field string, value any) error {
	switch field {
	case "title":
		title, ok := value.(string)
		if !ok || strings.TrimSpace(title) == "" {
			return ValidationError{Reason: "card title is required"}
		}
		card.Title = strings.TrimSpace(title)
	case "description":
		desc, ok := value.(string)
		if !ok {
			return ValidationError{Reason: "description must be a string"}
		}
		card.Description = desc
	case "dueDate":
		due, err := parseDueDate(value)
		if err != nil {
			return err
		}
		card.DueDate = due
	case "labels":
		labels, err := parseLabels(value)
		if err != nil {
			return err
		}
		card.Labels = labels
	}
	return nil
}

func parseDueDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, ValidationError{Reason: "dueDate must be an RFC 3339 timestamp"}
		}
		return &t, nil
	default:
		return nil, ValidationError{Reason: "dueDate must be an RFC 3339 timestamp"}
	}
}

func parseLabels(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return normalizeLabels(v), nil
	case []any:
		labels := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ValidationError{Reason: "labels must be strings"}
			}
			labels = append(labels, s)
		}
		return normalizeLabels(labels), nil
	default:
		return nil, ValidationError{Reason: "labels must be strings"}
	}
}

// MoveCard removes the card id from the source list, appends it to the
// destination list and repoints the card's back-reference. The board and card
// writes are issued together without any cross-document lock; two racing
// moves of the same card can leave both destinations referencing it, which
// the reconciliation pass detects and repairs.
func (s CardService) MoveCard(ctx context.Context, userID, boardID, sourceListID, destListID, cardID string) error {
	if _, err := uuid.Parse(cardID); err != nil {
		return ValidationError{Reason: "invalid card id"}
	}

	type cardResult struct {
		card *Card
		err  error
	}
	cardCh := make(chan cardResult, 1)
	go func() {
		c, err := s.store.FindCard(ctx, cardID)
		cardCh <- cardResult{card: c, err: err}
	}()

	board, err := s.loadAuthorizedBoard(ctx, userID, boardID)
	res := <-cardCh
	if err != nil {
		return err
	}
	if res.err != nil {
		return res.err
	}
	card := res.card
	if card == nil || card.BoardID != board.ID {
		return ErrNotFound
	}

	source := board.FindList(sourceListID)
	dest := board.FindList(destListID)
	if source == nil || dest == nil {
		return ErrNotFound
	}

	source.RemoveCard(cardID)
	// The destination sequence must hold the id exactly once, even on a
	// repeat move or when a prior race left a stale reference behind.
	dest.RemoveCard(cardID)
	dest.Cards = append(dest.Cards, cardID)
	card.ListID = dest.ID
	board.UpdatedAt = s.now()

	boardErrCh := make(chan error, 1)
	go func() { boardErrCh <- s.store.SaveBoard(ctx, *board) }()
	cardErr := s.store.SaveCard(ctx, *card)
	boardErr := <-boardErrCh

	switch {
	case boardErr != nil && cardErr != nil:
		return boardErr
	case boardErr != nil:
		s.requestRepair(ctx, board.ID)
		s.notify.NotifyBoardChanged(ctx, board.ID)
		return ConsistencyWarning{BoardID: board.ID, CardID: card.ID, Err: boardErr}
	case cardErr != nil:
		s.requestRepair(ctx, board.ID)
		s.notify.NotifyBoardChanged(ctx, board.ID)
		return ConsistencyWarning{BoardID: board.ID, CardID: card.ID, Err: cardErr}
	}

	s.notify.NotifyBoardChanged(ctx, board.ID)
	return nil
}

func (s CardService) loadAuthorizedBoard(ctx context.Context, userID, boardID string) (*Board, error) {
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

func (s CardService) requestRepair(ctx context.Context, boardID string) {
	if s.repair == nil {
		return
	}
	if err := s.repair.EnqueueRepair(ctx, boardID); err != nil {
		log.WithError(err).WithField("board", boardID).Error("failed to queue board repair")
	}
}
