package chat

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"roulette_service/internal/apperr"
	"roulette_service/internal/broadcast"
)

const FeedLimit = 30

type Service struct {
	repo      Repository
	publisher broadcast.Publisher
}

func NewService(repo Repository, publisher broadcast.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Post(ctx context.Context, author Author, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperr.New(apperr.KindInvalidRequest, "message must be 1 to 200 characters")
	}

	m := &Message{
		MessageID: uuid.New().String(),
		UserID:    author.UserID,
		Username:  author.Username,
		Avatar:    author.Avatar,
		Role:      author.Role,
		Message:   text,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	log.Printf("Chat message posted: user=%s length=%d", author.UserID, utf8.RuneCountInString(text))
	s.publisher.Publish(broadcast.TopicNewChatMessage, m)
	return m, nil
}

// Recent returns the latest messages oldest first, ready to render.
func (s *Service) Recent(ctx context.Context) ([]Message, error) {
	msgs, err := s.repo.Recent(ctx, FeedLimit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
