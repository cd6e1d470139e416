package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Krishna-R-Sonar/smart-trello/api"
	"github.com/Krishna-R-Sonar/smart-trello/domain"
	"github.com/Krishna-R-Sonar/smart-trello/notify"
	"github.com/Krishna-R-Sonar/smart-trello/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	boardsTable := os.Getenv("BOARDS_TABLE")
	cardsTable := os.Getenv("CARDS_TABLE")
	repairQueue := os.Getenv("REPAIR_QUEUE")
	if connStr == "" || boardsTable == "" || cardsTable == "" || repairQueue == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, boardsTable, cardsTable, repairQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)
	ttl := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		ttl = d
	}
	cached := storage.NewCache(store, rc, ttl)

	channel := os.Getenv("BOARD_UPDATES_CHANNEL")
	if channel == "" {
		channel = "board-updates"
	}
	publisher := notify.NewPublisher(rc, channel)

	boards := domain.NewBoardService(cached, publisher)
	cards := domain.NewCardService(cached, publisher, cached)

	testMode := os.Getenv("AUTH_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domainName := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domainName == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domainName+"/")
	}

	ctx := context.Background()
	broker := api.NewBoardBroker()
	go notify.Subscribe(ctx, rc, channel, broker.Notify)
	go repairLoop(ctx, store, cached, publisher)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, boards, cards, auth, broker)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// repairLoop drains the repair queue and reconciles each referenced board.
// Writes go through the cache so stale entries are evicted, and watchers are
// notified whenever a reconciliation changed the board.
func repairLoop(ctx context.Context, store *storage.Storage, cached *storage.Cache, notifier domain.Notifier) {
	for {
		msg, err := store.DequeueRepair(ctx)
		if err != nil {
			log.WithError(err).Error("repair dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			time.Sleep(time.Second)
			continue
		}
		if msg.MessageID == nil || msg.PopReceipt == nil {
			log.Warn("discarding repair message without id or receipt")
			continue
		}
		boardID := ""
		if msg.MessageText != nil {
			boardID = strings.TrimSpace(*msg.MessageText)
		}
		if err := repairBoard(ctx, cached, notifier, boardID); err != nil {
			log.WithError(err).WithField("board", boardID).Error("board repair failed")
			// Leave the message; it becomes visible again after the
			// visibility timeout and the repair is retried.
			continue
		}
		if err := store.DeleteRepair(ctx, *msg.MessageID, *msg.PopReceipt); err != nil {
			log.WithError(err).WithField("board", boardID).Error("repair delete failed")
		}
	}
}

func repairBoard(ctx context.Context, store domain.Store, notifier domain.Notifier, boardID string) error {
	board, err := store.FindBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board == nil {
		log.WithField("board", boardID).Warn("repair requested for unknown board")
		return nil
	}
	cards, err := store.FindCardsByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if !domain.Reconcile(board, cards) {
		return nil
	}
	board.UpdatedAt = time.Now().UTC()
	if err := store.SaveBoard(ctx, *board); err != nil {
		return err
	}
	log.WithField("board", boardID).Info("board reconciled")
	notifier.NotifyBoardChanged(ctx, boardID)
	return nil
}
