package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

type stubStore struct {
	findBoardFn        func(ctx context.Context, boardID string) (*domain.Board, error)
	saveBoardFn        func(ctx context.Context, board domain.Board) error
	findCardsByBoardFn func(ctx context.Context, boardID string) ([]domain.Card, error)
	saveCardFn         func(ctx context.Context, card domain.Card) error
}

func (s *stubStore) FindBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	if s.findBoardFn == nil {
		return nil, errors.New("unexpected FindBoard call")
	}
	return s.findBoardFn(ctx, boardID)
}

func (s *stubStore) SaveBoard(ctx context.Context, board domain.Board) error {
	if s.saveBoardFn == nil {
		return errors.New("unexpected SaveBoard call")
	}
	return s.saveBoardFn(ctx, board)
}

func (s *stubStore) FindBoardsByMember(context.Context, string) ([]domain.Board, error) {
	return nil, nil
}

func (s *stubStore) FindBoardsByInvite(context.Context, string) ([]domain.Board, error) {
	return nil, nil
}

func (s *stubStore) FindCard(context.Context, string) (*domain.Card, error) { return nil, nil }

func (s *stubStore) SaveCard(ctx context.Context, card domain.Card) error {
	if s.saveCardFn == nil {
		return errors.New("unexpected SaveCard call")
	}
	return s.saveCardFn(ctx, card)
}

func (s *stubStore) FindCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error) {
	if s.findCardsByBoardFn == nil {
		return nil, errors.New("unexpected FindCardsByBoard call")
	}
	return s.findCardsByBoardFn(ctx, boardID)
}

func newCacheFixture(t *testing.T, base domain.Store) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(base, client, time.Minute), mr
}

func TestCacheFindBoardMissThenHit(t *testing.T) {
	var calls int
	base := &stubStore{
		findBoardFn: func(ctx context.Context, boardID string) (*domain.Board, error) {
			calls++
			return &domain.Board{ID: boardID, Title: "cached"}, nil
		},
	}
	cache, mr := newCacheFixture(t, base)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		board, err := cache.FindBoard(ctx, "b1")
		if err != nil {
			t.Fatalf("find board: %v", err)
		}
		if board == nil || board.Title != "cached" {
			t.Fatalf("unexpected board: %#v", board)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}
	if ttl := mr.TTL(boardCachePrefix + "b1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestCacheSaveBoardEvicts(t *testing.T) {
	var calls int
	base := &stubStore{
		findBoardFn: func(ctx context.Context, boardID string) (*domain.Board, error) {
			calls++
			return &domain.Board{ID: boardID}, nil
		},
		saveBoardFn: func(ctx context.Context, board domain.Board) error { return nil },
		findCardsByBoardFn: func(ctx context.Context, boardID string) ([]domain.Card, error) {
			return []domain.Card{}, nil
		},
	}
	cache, mr := newCacheFixture(t, base)
	ctx := context.Background()

	if _, err := cache.FindBoard(ctx, "b1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := cache.FindCardsByBoard(ctx, "b1"); err != nil {
		t.Fatalf("warm cards cache: %v", err)
	}
	if err := cache.SaveBoard(ctx, domain.Board{ID: "b1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists(boardCachePrefix + "b1") {
		t.Fatalf("board cache entry not evicted")
	}
	if mr.Exists(cardsCachePrefix + "b1") {
		t.Fatalf("cards cache entry not evicted")
	}
	if _, err := cache.FindBoard(ctx, "b1"); err != nil {
		t.Fatalf("refill: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after eviction, got %d calls", calls)
	}
}

func TestCacheSaveCardEvictsBoardEntries(t *testing.T) {
	base := &stubStore{
		findCardsByBoardFn: func(ctx context.Context, boardID string) ([]domain.Card, error) {
			return []domain.Card{{ID: "c1", BoardID: boardID}}, nil
		},
		saveCardFn: func(ctx context.Context, card domain.Card) error { return nil },
	}
	cache, mr := newCacheFixture(t, base)
	ctx := context.Background()

	if _, err := cache.FindCardsByBoard(ctx, "b1"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if !mr.Exists(cardsCachePrefix + "b1") {
		t.Fatalf("cards not cached")
	}
	if err := cache.SaveCard(ctx, domain.Card{ID: "c1", BoardID: "b1"}); err != nil {
		t.Fatalf("save card: %v", err)
	}
	if mr.Exists(cardsCachePrefix + "b1") {
		t.Fatalf("cards cache entry not evicted after card write")
	}
}

func TestCacheSaveErrorSkipsEviction(t *testing.T) {
	saveErr := errors.New("save failed")
	base := &stubStore{
		saveBoardFn: func(ctx context.Context, board domain.Board) error { return saveErr },
	}
	cache, _ := newCacheFixture(t, base)

	if err := cache.SaveBoard(context.Background(), domain.Board{ID: "b1"}); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}
