package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// BoardBroker fans board-change signals out to the SSE streams watching
// each board. Signals carry no payload; streams re-read the board on
// wakeup so every client converges on the stored state.
type BoardBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBoardBroker() *BoardBroker {
	return &BoardBroker{subs: map[string]map[chan struct{}]struct{}{}}
}

func (b *BoardBroker) Subscribe(boardID string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{}, 1)
	if b.subs[boardID] == nil {
		b.subs[boardID] = make(map[chan struct{}]struct{})
	}
	b.subs[boardID][ch] = struct{}{}
	return ch
}

func (b *BoardBroker) Unsubscribe(boardID string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[boardID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(b.subs, boardID)
		}
	}
}

func (b *BoardBroker) Notify(boardID string) {
	b.mu.Lock()
	subs := b.subs[boardID]
	b.mu.Unlock()
	for ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func streamBoard(boards Boards, auth Authenticator, broker *BoardBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			if token := c.QueryParam("token"); token != "" {
				header = "Bearer " + token
			}
		}
		claims, err := auth.ClaimsFromAuthHeader(header)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("id")
		ctx := c.Request().Context()
		if _, _, err := boards.GetBoard(ctx, claims.ID, boardID); err != nil {
			return writeError(c, err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		// Write an initial comment to ensure headers are flushed to the client.
		if _, err := c.Response().Write([]byte(":ok\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		ch := broker.Subscribe(boardID)
		defer broker.Unsubscribe(boardID, ch)
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ch:
				hb, suggestions, err := boards.GetBoard(ctx, claims.ID, boardID)
				if err != nil {
					return nil
				}
				data, err := sonic.ConfigStd.Marshal(boardResponse{HydratedBoard: hb, Recommendations: suggestions})
				if err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ticker.C:
				// Send a comment as a heartbeat to keep the connection alive.
				if _, err := c.Response().Write([]byte(":keepalive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ctx.Done():
				return nil
			}
		}
	}
}
