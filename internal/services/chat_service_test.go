package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
)

func TestChatServicePostAndList(t *testing.T) {
	db := openChatTestDB(t)
	relations, err := NewRelationService(db)
	require.NoError(t, err)
	svc, err := NewChatService(db, relations, 50)
	require.NoError(t, err)

	teacher := createRelationTestUser(t, db, "chat-teach")
	student := createRelationTestUser(t, db, "chat-study")
	outsider := createRelationTestUser(t, db, "chat-out")
	relation := seedRelation(t, db, teacher.ID, student.ID, models.RelationActive, false)

	first, err := svc.Post(context.Background(), teacher.ID, relation.ID, "  hello there  ")
	require.NoError(t, err)
	require.Equal(t, "hello there", first.Body)
	require.Nil(t, first.ReadAt)

	_, err = svc.Post(context.Background(), student.ID, relation.ID, "hi!")
	require.NoError(t, err)

	messages, err := svc.List(context.Background(), teacher.ID, relation.ID, 0, time.Time{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello there", messages[0].Body)
	require.Equal(t, "hi!", messages[1].Body)

	// Outsiders read the conversation as missing.
	_, err = svc.Post(context.Background(), outsider.ID, relation.ID, "let me in")
	require.ErrorIs(t, err, ErrChatNotFound)
	_, err = svc.List(context.Background(), outsider.ID, relation.ID, 0, time.Time{})
	require.ErrorIs(t, err, ErrChatNotFound)

	// Empty and oversized bodies are rejected.
	_, err = svc.Post(context.Background(), teacher.ID, relation.ID, "   ")
	require.Error(t, err)
	_, err = svc.Post(context.Background(), teacher.ID, relation.ID, strings.Repeat("x", maxChatMessageLength+1))
	require.Error(t, err)
}

func TestChatServiceMarkReadAndUnreadCounts(t *testing.T) {
	db := openChatTestDB(t)
	relations, err := NewRelationService(db)
	require.NoError(t, err)
	svc, err := NewChatService(db, relations, 50)
	require.NoError(t, err)

	teacher := createRelationTestUser(t, db, "rc-teach")
	student := createRelationTestUser(t, db, "rc-study")
	relation := seedRelation(t, db, teacher.ID, student.ID, models.RelationActive, false)

	_, err = svc.Post(context.Background(), teacher.ID, relation.ID, "homework for monday")
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), teacher.ID, relation.ID, "and a reminder")
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), student.ID, relation.ID, "got it")
	require.NoError(t, err)

	counts, err := svc.UnreadCounts(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, relation.ID, counts[0].RelationID)
	require.Equal(t, int64(2), counts[0].Count)

	// The sender's own messages never count as unread for them.
	counts, err = svc.UnreadCounts(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, int64(1), counts[0].Count)

	receipted, err := svc.MarkRead(context.Background(), student.ID, relation.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), receipted)

	// Marking again is a no-op.
	receipted, err = svc.MarkRead(context.Background(), student.ID, relation.ID)
	require.NoError(t, err)
	require.Zero(t, receipted)

	counts, err = svc.UnreadCounts(context.Background(), student.ID)
	require.NoError(t, err)
	require.Empty(t, counts)

	messages, err := svc.List(context.Background(), student.ID, relation.ID, 0, time.Time{})
	require.NoError(t, err)
	for _, message := range messages {
		if message.SenderID == teacher.ID {
			require.NotNil(t, message.ReadAt)
		} else {
			require.Nil(t, message.ReadAt)
		}
	}
}

func TestChatServiceListPagination(t *testing.T) {
	db := openChatTestDB(t)
	relations, err := NewRelationService(db)
	require.NoError(t, err)
	svc, err := NewChatService(db, relations, 2)
	require.NoError(t, err)

	teacher := createRelationTestUser(t, db, "pg-teach")
	student := createRelationTestUser(t, db, "pg-study")
	relation := seedRelation(t, db, teacher.ID, student.ID, models.RelationActive, false)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, body := range []string{"one", "two", "three"} {
		message := models.ChatMessage{
			RelationID: relation.ID,
			SenderID:   teacher.ID,
			Body:       body,
		}
		require.NoError(t, db.Create(&message).Error)
		require.NoError(t, db.Model(&message).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, err := svc.List(context.Background(), student.ID, relation.ID, 0, time.Time{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "two", page[0].Body)
	require.Equal(t, "three", page[1].Body)

	older, err := svc.List(context.Background(), student.ID, relation.ID, 0, page[0].CreatedAt)
	require.NoError(t, err)
	require.Len(t, older, 1)
	require.Equal(t, "one", older[0].Body)
}

func openChatTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Relation{}, &models.ChatMessage{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
