package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultCallQueue is the redis list drained by the AI outbound-call worker.
	DefaultCallQueue = "cadenza:calls"

	// DefaultCampaignQueue is the redis list drained by the nurture-campaign
	// worker.
	DefaultCampaignQueue = "cadenza:campaigns"

	redisConnectTimeout = 5 * time.Second
)

// RedisQueueConfig configures the redis hand-off client.
type RedisQueueConfig struct {
	Addr          string
	Password      string
	DB            int
	CallQueue     string
	CampaignQueue string
}

// handOff is the JSON payload pushed onto the hand-off lists. Downstream
// workers own the schema from here.
type handOff struct {
	OwnerID    string `json:"owner_id"`
	ContactID  string `json:"contact_id"`
	CampaignID string `json:"campaign_id,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// RedisQueueService hands contacts off to the out-of-process services behind
// trigger_service actions: outbound calls and nurture campaigns. Each hand-off
// is one LPUSH; there is no acknowledgement path back.
type RedisQueueService struct {
	client        redis.UniversalClient
	callQueue     string
	campaignQueue string
	logger        *slog.Logger
	now           func() time.Time
}

// NewRedisQueueService connects to redis and verifies the connection before
// returning the service.
func NewRedisQueueService(ctx context.Context, config RedisQueueConfig, logger *slog.Logger) (*RedisQueueService, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	if config.CallQueue == "" {
		config.CallQueue = DefaultCallQueue
	}

	if config.CampaignQueue == "" {
		config.CampaignQueue = DefaultCampaignQueue
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueueService{
		client:        client,
		callQueue:     config.CallQueue,
		campaignQueue: config.CampaignQueue,
		logger:        logger.With("module", "redis_queue"),
		now:           time.Now,
	}, nil
}

// EnqueueCall queues an AI outbound call for the contact.
func (s *RedisQueueService) EnqueueCall(ctx context.Context, ownerID, contactID, campaignID string) error {
	return s.push(ctx, s.callQueue, ownerID, contactID, campaignID)
}

// Enroll queues a nurture-campaign enrollment for the contact.
func (s *RedisQueueService) Enroll(ctx context.Context, ownerID, contactID, campaignID string) error {
	return s.push(ctx, s.campaignQueue, ownerID, contactID, campaignID)
}

func (s *RedisQueueService) push(ctx context.Context, queue, ownerID, contactID, campaignID string) error {
	payload, err := json.Marshal(handOff{
		OwnerID:    ownerID,
		ContactID:  contactID,
		CampaignID: campaignID,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode hand-off payload: %w", err)
	}

	if err := s.client.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	s.logger.Info("queued hand-off", "queue", queue, "owner_id", ownerID, "contact_id", contactID)

	return nil
}

func (s *RedisQueueService) Close() error {
	return s.client.Close()
}
