package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
)

// ErrBoardNotFound is returned when no board is visible to the caller.
var ErrBoardNotFound = errors.New("board: not found")

const maxBoardContentBytes = 4 << 20

// BoardService manages shared whiteboards.
type BoardService struct {
	db        *gorm.DB
	relations *RelationService
}

// NewBoardService constructs a BoardService.
func NewBoardService(db *gorm.DB, relations *RelationService) (*BoardService, error) {
	if db == nil {
		return nil, errors.New("board service: db is required")
	}
	if relations == nil {
		return nil, errors.New("board service: relation service is required")
	}
	return &BoardService{db: db, relations: relations}, nil
}

// CreateBoardInput carries the payload for creating a board.
type CreateBoardInput struct {
	RelationID string
	LessonID   *string
	Title      string
	Content    json.RawMessage
}

// Create adds a board to a relation the caller participates in.
func (s *BoardService) Create(ctx context.Context, userID string, input CreateBoardInput) (*models.Board, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, input.RelationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrBoardNotFound)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("board service: title is required")
	}

	content, err := normaliseBoardContent(input.Content)
	if err != nil {
		return nil, err
	}

	board := models.Board{
		RelationID: input.RelationID,
		LessonID:   input.LessonID,
		Title:      title,
		Content:    content,
	}

	if err := s.db.WithContext(ctx).Create(&board).Error; err != nil {
		return nil, fmt.Errorf("board service: create board: %w", err)
	}

	return &board, nil
}

// Get fetches a board visible to the caller.
func (s *BoardService) Get(ctx context.Context, boardID, userID string) (*models.Board, error) {
	ctx = ensureContext(ctx)

	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return nil, ErrBoardNotFound
	}

	var board models.Board
	err := s.db.WithContext(ctx).
		Where("id = ?", boardID).
		Where("relation_id IN (?)", liveRelationIDs(s.db, userID)).
		First(&board).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("board service: find board: %w", err)
	}

	return &board, nil
}

// ListForRelation returns a relation's boards, newest first.
func (s *BoardService) ListForRelation(ctx context.Context, relationID, userID string) ([]models.Board, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrBoardNotFound)
	}

	var boards []models.Board
	err := s.db.WithContext(ctx).
		Where("relation_id = ?", relationID).
		Order("created_at DESC").
		Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("board service: list boards: %w", err)
	}
	return boards, nil
}

// UpdateContent replaces the board document. The server stores the client's
// element/stroke JSON verbatim; it only checks size and well-formedness.
func (s *BoardService) UpdateContent(ctx context.Context, boardID, userID string, content json.RawMessage) (*models.Board, error) {
	board, err := s.Get(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}

	normalised, err := normaliseBoardContent(content)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(board).Update("content", normalised).Error; err != nil {
		return nil, fmt.Errorf("board service: update content: %w", err)
	}

	board.Content = normalised
	return board, nil
}

// Rename changes the board title.
func (s *BoardService) Rename(ctx context.Context, boardID, userID, title string) (*models.Board, error) {
	board, err := s.Get(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("board service: title is required")
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(board).Update("title", title).Error; err != nil {
		return nil, fmt.Errorf("board service: rename board: %w", err)
	}

	board.Title = title
	return board, nil
}

// Delete removes a board visible to the caller.
func (s *BoardService) Delete(ctx context.Context, boardID, userID string) error {
	board, err := s.Get(ctx, boardID, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ensureContext(ctx)).Delete(board).Error; err != nil {
		return fmt.Errorf("board service: delete board: %w", err)
	}
	return nil
}

func normaliseBoardContent(content json.RawMessage) (datatypes.JSON, error) {
	if len(content) == 0 {
		return datatypes.JSON([]byte("{}")), nil
	}
	if len(content) > maxBoardContentBytes {
		return nil, errors.New("board service: content too large")
	}
	if !json.Valid(content) {
		return nil, errors.New("board service: content is not valid JSON")
	}
	return datatypes.JSON(content), nil
}
