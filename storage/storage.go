package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

// Storage persists boards and cards in Azure Table Storage and exposes the
// repair queue used by the reconciliation worker. Boards are single entities
// (lists embedded as a JSON property); cards are partitioned by board id.
type Storage struct {
	boardTable  *aztables.Client
	cardTable   *aztables.Client
	repairQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, boardsTable, cardsTable, repairQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	bt := svc.NewClient(boardsTable)
	ct := svc.NewClient(cardsTable)
	rq, err := azqueue.NewQueueClientFromConnectionString(connStr, repairQueue, nil)
	if err != nil {
		return nil, err
	}
	return &Storage{boardTable: bt, cardTable: ct, repairQueue: rq}, nil
}

type boardEntity struct {
	aztables.Entity
	Title     string `json:"Title"`
	Owner     string `json:"Owner"`
	Members   string `json:"Members"`
	Invites   string `json:"Invites"`
	Lists     string `json:"Lists"`
	CreatedAt string `json:"CreatedAt"`
	UpdatedAt string `json:"UpdatedAt"`
}

type cardEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	ListId      string `json:"ListId"`
	DueDate     string `json:"DueDate"`
	Labels      string `json:"Labels"`
	CreatedBy   string `json:"CreatedBy"`
	CreatedAt   string `json:"CreatedAt"`
}

func encodeBoardEntity(b domain.Board) ([]byte, error) {
	members, err := json.Marshal(b.Members)
	if err != nil {
		return nil, err
	}
	invites, err := json.Marshal(b.Invites)
	if err != nil {
		return nil, err
	}
	lists, err := json.Marshal(b.Lists)
	if err != nil {
		return nil, err
	}
	ent := boardEntity{
		Entity:    aztables.Entity{PartitionKey: b.ID, RowKey: b.ID},
		Title:     b.Title,
		Owner:     b.Owner,
		Members:   string(members),
		Invites:   string(invites),
		Lists:     string(lists),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(ent)
}

func decodeBoardEntity(data []byte) (domain.Board, error) {
	var ent boardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Board{}, err
	}
	board := domain.Board{
		ID:      ent.RowKey,
		Title:   ent.Title,
		Owner:   ent.Owner,
		Members: []string{},
		Invites: []string{},
		Lists:   []domain.List{},
	}
	if ent.Members != "" {
		if err := json.Unmarshal([]byte(ent.Members), &board.Members); err != nil {
			return domain.Board{}, err
		}
	}
	if ent.Invites != "" {
		if err := json.Unmarshal([]byte(ent.Invites), &board.Invites); err != nil {
			return domain.Board{}, err
		}
	}
	if ent.Lists != "" {
		if err := json.Unmarshal([]byte(ent.Lists), &board.Lists); err != nil {
			return domain.Board{}, err
		}
	}
	board.CreatedAt = parseEntityTime(ent.CreatedAt)
	board.UpdatedAt = parseEntityTime(ent.UpdatedAt)
	return board, nil
}

func encodeCardEntity(c domain.Card) ([]byte, error) {
	labels, err := json.Marshal(c.Labels)
	if err != nil {
		return nil, err
	}
	ent := cardEntity{
		Entity:      aztables.Entity{PartitionKey: c.BoardID, RowKey: c.ID},
		Title:       c.Title,
		Description: c.Description,
		ListId:      c.ListID,
		Labels:      string(labels),
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.DueDate != nil {
		ent.DueDate = c.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(ent)
}

func decodeCardEntity(data []byte) (domain.Card, error) {
	var ent cardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Card{}, err
	}
	card := domain.Card{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		ListID:      ent.ListId,
		BoardID:     ent.PartitionKey,
		Labels:      []string{},
		CreatedBy:   ent.CreatedBy,
		CreatedAt:   parseEntityTime(ent.CreatedAt),
	}
	if ent.Labels != "" {
		if err := json.Unmarshal([]byte(ent.Labels), &card.Labels); err != nil {
			return domain.Card{}, err
		}
	}
	if ent.DueDate != "" {
		due, err := time.Parse(time.RFC3339Nano, ent.DueDate)
		if err != nil {
			return domain.Card{}, err
		}
		card.DueDate = &due
	}
	return card, nil
}

func parseEntityTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FindBoard retrieves a board document, or (nil, nil) when absent.
func (s *Storage) FindBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	ent, err := s.boardTable.GetEntity(ctx, boardID, boardID, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}
	board, err := decodeBoardEntity(ent.Value)
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// SaveBoard replaces the board document.
func (s *Storage) SaveBoard(ctx context.Context, board domain.Board) error {
	payload, err := encodeBoardEntity(board)
	if err != nil {
		return err
	}
	_, err = s.boardTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// FindBoardsByMember scans the boards table for boards the user owns or is a
// member of. Board counts per deployment are small enough for a table scan.
func (s *Storage) FindBoardsByMember(ctx context.Context, userID string) ([]domain.Board, error) {
	return s.scanBoards(ctx, func(b *domain.Board) bool { return b.IsMember(userID) })
}

// FindBoardsByInvite scans the boards table for boards holding a pending
// invite for the given (already lowercased) email.
func (s *Storage) FindBoardsByInvite(ctx context.Context, email string) ([]domain.Board, error) {
	return s.scanBoards(ctx, func(b *domain.Board) bool {
		for _, invite := range b.Invites {
			if invite == email {
				return true
			}
		}
		return false
	})
}

func (s *Storage) scanBoards(ctx context.Context, keep func(*domain.Board) bool) ([]domain.Board, error) {
	pager := s.boardTable.NewListEntitiesPager(nil)
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			board, err := decodeBoardEntity(e)
			if err != nil {
				return nil, err
			}
			if keep(&board) {
				boards = append(boards, board)
			}
		}
	}
	sort.SliceStable(boards, func(i, j int) bool { return boards[i].UpdatedAt.After(boards[j].UpdatedAt) })
	return boards, nil
}

// keyFilter builds an OData equality filter. Single quotes are doubled per
// the OData escaping rules; ids reach this from raw path parameters.
func keyFilter(key, value string) string {
	return key + " eq '" + strings.ReplaceAll(value, "'", "''") + "'"
}

// FindCard locates a card by id across board partitions, or (nil, nil) when
// absent.
func (s *Storage) FindCard(ctx context.Context, cardID string) (*domain.Card, error) {
	filter := keyFilter("RowKey", cardID)
	pager := s.cardTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			card, err := decodeCardEntity(e)
			if err != nil {
				return nil, err
			}
			return &card, nil
		}
	}
	return nil, nil
}

// SaveCard replaces the card document inside its board partition.
func (s *Storage) SaveCard(ctx context.Context, card domain.Card) error {
	payload, err := encodeCardEntity(card)
	if err != nil {
		return err
	}
	_, err = s.cardTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// FindCardsByBoard retrieves all cards of a board in creation order.
func (s *Storage) FindCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error) {
	filter := keyFilter("PartitionKey", boardID)
	pager := s.cardTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			card, err := decodeCardEntity(e)
			if err != nil {
				return nil, err
			}
			cards = append(cards, card)
		}
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return cards, nil
}

// EnqueueRepair queues a board id for the out-of-band reconciliation pass.
func (s *Storage) EnqueueRepair(ctx context.Context, boardID string) error {
	_, err := s.repairQueue.EnqueueMessage(ctx, boardID, nil)
	return err
}

// DequeueRepair retrieves a single queued repair request, or nil when the
// queue is empty.
func (s *Storage) DequeueRepair(ctx context.Context) (*azqueue.DequeuedMessage, error) {
	resp, err := s.repairQueue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages[0], nil
}

// DeleteRepair removes a processed repair request from the queue.
func (s *Storage) DeleteRepair(ctx context.Context, id, receipt string) error {
	_, err := s.repairQueue.DeleteMessage(ctx, id, receipt, nil)
	return err
}
