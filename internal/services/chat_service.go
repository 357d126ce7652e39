package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// ErrChatNotFound is returned when the conversation is not visible to the caller.
var ErrChatNotFound = errors.New("chat: not found")

const (
	maxChatMessageLength = 4000
	defaultChatPageSize  = 50
	maxChatPageSize      = 200
)

// ChatService persists relation conversations and tracks read receipts.
type ChatService struct {
	db        *gorm.DB
	relations *RelationService
	pageSize  int
	now       func() time.Time
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, relations *RelationService, pageSize int) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	if relations == nil {
		return nil, errors.New("chat service: relation service is required")
	}
	if pageSize <= 0 || pageSize > maxChatPageSize {
		pageSize = defaultChatPageSize
	}
	return &ChatService{
		db:        db,
		relations: relations,
		pageSize:  pageSize,
		now:       time.Now,
	}, nil
}

// Post appends a message to a relation's conversation.
func (s *ChatService) Post(ctx context.Context, userID, relationID, body string) (*models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrChatNotFound)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("chat service: message body is required")
	}
	if utf8.RuneCountInString(body) > maxChatMessageLength {
		return nil, errors.New("chat service: message body exceeds maximum length")
	}

	message := models.ChatMessage{
		RelationID: relationID,
		SenderID:   userID,
		Body:       body,
	}

	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("chat service: create message: %w", err)
	}

	metrics.ChatMessages.Inc()
	return &message, nil
}

// List returns a page of messages in chronological order. A zero `before`
// fetches the newest page; passing the oldest timestamp of the previous page
// walks history backwards.
func (s *ChatService) List(ctx context.Context, userID, relationID string, limit int, before time.Time) ([]models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrChatNotFound)
	}

	if limit <= 0 || limit > maxChatPageSize {
		limit = s.pageSize
	}

	query := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("relation_id = ?", relationID).
		Order("created_at DESC").
		Limit(limit)

	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var rows []models.ChatMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chat service: list messages: %w", err)
	}

	// Reverse to chronological order
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return rows, nil
}

// MarkRead stamps every unread message addressed to the caller in the
// relation and returns how many were receipted.
func (s *ChatService) MarkRead(ctx context.Context, userID, relationID string) (int64, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return 0, mapRelationErr(err, ErrChatNotFound)
	}

	result := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("relation_id = ? AND sender_id <> ? AND read_at IS NULL", relationID, userID).
		Update("read_at", s.now())
	if result.Error != nil {
		return 0, fmt.Errorf("chat service: mark read: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// UnreadCount aggregates one relation's unread messages for the caller.
type UnreadCount struct {
	RelationID string `json:"relation_id"`
	Count      int64  `json:"count"`
}

// UnreadCounts returns per-relation unread totals across the caller's live
// relations. Relations with no unread messages are omitted.
func (s *ChatService) UnreadCounts(ctx context.Context, userID string) ([]UnreadCount, error) {
	ctx = ensureContext(ctx)

	var counts []UnreadCount
	err := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Select("relation_id, COUNT(*) AS count").
		Where("relation_id IN (?)", liveRelationIDs(s.db, userID)).
		Where("sender_id <> ? AND read_at IS NULL", userID).
		Group("relation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("chat service: unread counts: %w", err)
	}

	if counts == nil {
		counts = []UnreadCount{}
	}
	return counts, nil
}
