package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/data/redisStore"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var ErrUnknownChat = errors.New("unknown chat id")

// A chat is a marker key plus a list of JSON encoded messages. The marker lets an
// empty conversation exist, which a bare Redis list cannot.
func chatMarkerKey(id string) string  { return "chat:" + id }
func chatHistoryKey(id string) string { return "chat:" + id + ":messages" }

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
	window int64
	ttl    time.Duration
}

func GetRedisMessageStore(ctx context.Context, settings config.RedisSettings) (*RedisMessageStore, error) {
	s, err := redisStore.GetRedisStore(ctx, redisStore.Options{
		Addr:     settings.Addr,
		Password: settings.Password,
		DB:       config.RedisMessageStore,
	})
	if err != nil {
		return nil, err
	}
	return newRedisMessageStore(s, "MessageStore"), nil
}

func newRedisMessageStore(s *redisStore.Store, component string) *RedisMessageStore {
	return &RedisMessageStore{
		store:  s,
		logger: logger_i.NewLogger(component),
		window: config.ChatHistoryWindow,
		ttl:    config.RedisMessageStoreTTL,
	}
}

func TestMessageStore(store *redisStore.Store) *RedisMessageStore {
	return newRedisMessageStore(store, "test redis")
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.WithContext(ctx).With("chatId", chatId)
	isFound, err := s.store.Exists(ctx, chatMarkerKey(chatId))
	if err != nil {
		log.Error("Failed to check if chatId exists", "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.WithContext(ctx).With("chatId", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, chatHistoryKey(id)); err != nil {
		log.Error("Error clearing chat history", "error", err)
		return err
	}
	return s.store.Set(ctx, chatMarkerKey(id), time.Now().UTC().Format(time.RFC3339), s.ttl)
}

func (s *RedisMessageStore) AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error {
	log := s.logger.WithContext(ctx).With("chatId", id)
	if !s.ValidateChatId(ctx, id) {
		return fmt.Errorf("chat %s: %w", id, ErrUnknownChat)
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := s.store.ListAppend(ctx, chatHistoryKey(id), s.window, s.ttl, values...); err != nil {
		log.Error("Error saving chat", "error", err)
		return err
	}
	if err := s.store.Expire(ctx, chatMarkerKey(id), s.ttl); err != nil {
		log.Warn("Error refreshing chat ttl", "error", err)
	}
	log.Debug("Saved chat successfully", "count", len(messages))
	return nil
}

// GetMessageHistory returns the newest messages of the chat, oldest first.
func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ChatMessage, error) {
	log := s.logger.WithContext(ctx).With("chatId", chatId)
	if !s.ValidateChatId(ctx, chatId) {
		return nil, fmt.Errorf("chat %s: %w", chatId, ErrUnknownChat)
	}

	raw, err := s.store.ListTail(ctx, chatHistoryKey(chatId), s.window)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	history := make([]commonModels.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m commonModels.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			log.Warn("Skipping malformed history entry", "error", err)
			continue
		}
		history = append(history, m)
	}
	return history, nil
}
