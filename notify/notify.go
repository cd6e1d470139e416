// Package notify fans out board change events over redis pub/sub. Publishing
// is best effort: a dropped message only delays other viewers' refresh.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type boardChangedEvent struct {
	BoardID string `json:"boardId"`
}

// Publisher publishes board change events to a redis channel.
type Publisher struct {
	rc      *redis.Client
	channel string
}

func NewPublisher(rc *redis.Client, channel string) *Publisher {
	return &Publisher{rc: rc, channel: channel}
}

// NotifyBoardChanged publishes the board id. Errors are logged, never
// returned: notification must not fail the mutation that triggered it.
func (p *Publisher) NotifyBoardChanged(ctx context.Context, boardID string) {
	if p == nil || p.rc == nil {
		return
	}
	payload, err := json.Marshal(boardChangedEvent{BoardID: boardID})
	if err != nil {
		log.WithError(err).WithField("board", boardID).Error("failed to marshal board change event")
		return
	}
	if err := p.rc.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.WithError(err).WithField("board", boardID).Error("failed to publish board change event")
	}
}

// Subscribe listens for board change events and invokes onChange for each
// one. It reconnects when the pub/sub channel closes and returns once ctx is
// cancelled.
func Subscribe(ctx context.Context, rc *redis.Client, channel string, onChange func(boardID string)) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev boardChangedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).Error("unable to parse board change event")
					continue
				}
				if ev.BoardID == "" {
					continue
				}
				onChange(ev.BoardID)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("board updates channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
