package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"tictactoe_live/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

// FinishedEvent is the payload published on the finished-games channel.
type FinishedEvent struct {
	Game       *domain.Snapshot `json:"game"`
	Recipients []string         `json:"recipients"`
}

// RedisNotifier publishes finished games to a Redis channel where mail
// workers pick them up.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) NotifyGameFinished(ctx context.Context, snap *domain.Snapshot, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	payload, err := json.Marshal(FinishedEvent{Game: snap, Recipients: recipients})
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish finished game %d: %w", snap.GameID, err)
	}
	return nil
}
