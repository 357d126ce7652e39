package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
)

// ErrLessonNotFound is returned when no lesson is visible to the caller.
var ErrLessonNotFound = errors.New("lesson: not found")

// LessonService schedules and manages lessons inside relations.
type LessonService struct {
	db        *gorm.DB
	relations *RelationService
	now       func() time.Time
}

// NewLessonService constructs a LessonService.
func NewLessonService(db *gorm.DB, relations *RelationService) (*LessonService, error) {
	if db == nil {
		return nil, errors.New("lesson service: db is required")
	}
	if relations == nil {
		return nil, errors.New("lesson service: relation service is required")
	}
	return &LessonService{db: db, relations: relations, now: time.Now}, nil
}

// ScheduleLessonInput carries the payload for creating a lesson.
type ScheduleLessonInput struct {
	RelationID      string
	Title           string
	StartsAt        time.Time
	DurationMinutes int
	Notes           string
}

// Schedule creates a lesson in a relation the caller participates in.
func (s *LessonService) Schedule(ctx context.Context, userID string, input ScheduleLessonInput) (*models.Lesson, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, input.RelationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrLessonNotFound)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("lesson service: title is required")
	}
	if input.StartsAt.IsZero() {
		return nil, errors.New("lesson service: start time is required")
	}

	duration := input.DurationMinutes
	if duration <= 0 {
		duration = 60
	}

	lesson := models.Lesson{
		RelationID:      input.RelationID,
		Title:           title,
		StartsAt:        input.StartsAt,
		DurationMinutes: duration,
		Status:          models.LessonScheduled,
		Notes:           strings.TrimSpace(input.Notes),
	}

	if err := s.db.WithContext(ctx).Create(&lesson).Error; err != nil {
		return nil, fmt.Errorf("lesson service: create lesson: %w", err)
	}

	return &lesson, nil
}

// ListForRelation returns a relation's lessons ordered by start time.
func (s *LessonService) ListForRelation(ctx context.Context, relationID, userID string) ([]models.Lesson, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrLessonNotFound)
	}

	var lessons []models.Lesson
	err := s.db.WithContext(ctx).
		Where("relation_id = ?", relationID).
		Order("starts_at ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("lesson service: list lessons: %w", err)
	}
	return lessons, nil
}

// ListUpcoming returns the caller's scheduled lessons across all live
// relations, soonest first.
func (s *LessonService) ListUpcoming(ctx context.Context, userID string) ([]models.Lesson, error) {
	ctx = ensureContext(ctx)

	var lessons []models.Lesson
	err := s.db.WithContext(ctx).
		Where("relation_id IN (?)", liveRelationIDs(s.db, userID)).
		Where("status = ? AND starts_at > ?", models.LessonScheduled, s.now()).
		Order("starts_at ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("lesson service: list upcoming: %w", err)
	}
	return lessons, nil
}

// LessonPatch is the allow-listed set of updatable lesson fields.
type LessonPatch struct {
	Title           *string              `json:"title"`
	StartsAt        *time.Time           `json:"starts_at"`
	DurationMinutes *int                 `json:"duration_minutes"`
	Notes           *string              `json:"notes"`
	Status          *models.LessonStatus `json:"status"`
}

// Update applies a patch to a lesson the caller can see.
func (s *LessonService) Update(ctx context.Context, lessonID, userID string, patch LessonPatch) (*models.Lesson, error) {
	lesson, err := s.getForParticipant(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, errors.New("lesson service: title cannot be empty")
		}
		updates["title"] = title
		lesson.Title = title
	}
	if patch.StartsAt != nil {
		updates["starts_at"] = *patch.StartsAt
		lesson.StartsAt = *patch.StartsAt
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes > 0 {
		updates["duration_minutes"] = *patch.DurationMinutes
		lesson.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Notes != nil {
		updates["notes"] = strings.TrimSpace(*patch.Notes)
		lesson.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.LessonScheduled, models.LessonCompleted, models.LessonCancelled:
			updates["status"] = *patch.Status
			lesson.Status = *patch.Status
		default:
			return nil, fmt.Errorf("lesson service: unknown status %q", *patch.Status)
		}
	}

	if len(updates) == 0 {
		return lesson, nil
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(lesson).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("lesson service: update lesson: %w", err)
	}

	return lesson, nil
}

// Cancel marks a lesson cancelled.
func (s *LessonService) Cancel(ctx context.Context, lessonID, userID string) (*models.Lesson, error) {
	status := models.LessonCancelled
	return s.Update(ctx, lessonID, userID, LessonPatch{Status: &status})
}

func (s *LessonService) getForParticipant(ctx context.Context, lessonID, userID string) (*models.Lesson, error) {
	ctx = ensureContext(ctx)

	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil, ErrLessonNotFound
	}

	var lesson models.Lesson
	err := s.db.WithContext(ctx).
		Where("id = ?", lessonID).
		Where("relation_id IN (?)", liveRelationIDs(s.db, userID)).
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("lesson service: find lesson: %w", err)
	}

	return &lesson, nil
}

// mapRelationErr converts relation lookups into the caller's not-found
// sentinel while passing unexpected errors through.
func mapRelationErr(err, notFound error) error {
	if errors.Is(err, ErrRelationNotFound) {
		return notFound
	}
	return err
}
