package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// InMemoryMessageStore keeps the newest history entries per chat for single instance deployments.
type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]commonModels.ChatMessage
	window   int
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]commonModels.ChatMessage),
		window:   config.ChatHistoryWindow,
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]commonModels.ChatMessage, 0, store.window)
	return nil
}

func (store *InMemoryMessageStore) AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	history, ok := store.chatMap[id]
	if !ok {
		return fmt.Errorf("chat %s: %w", id, ErrUnknownChat)
	}
	history = append(history, messages...)
	if over := len(history) - store.window; over > 0 {
		history = append([]commonModels.ChatMessage(nil), history[over:]...)
	}
	store.chatMap[id] = history
	inMemLogger.WithContext(ctx).Debug("Saved messages to chat store", "chatId", id, "count", len(messages))
	return nil
}

func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ChatMessage, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	history, ok := store.chatMap[chatId]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatId, ErrUnknownChat)
	}
	out := make([]commonModels.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}
