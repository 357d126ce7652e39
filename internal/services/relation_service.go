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

// ErrRelationNotFound is returned when no relation exists for the caller.
// It also covers relations the caller is not a participant of, so outsiders
// cannot probe for relation IDs.
var ErrRelationNotFound = errors.New("relation: not found")

// RelationService reads and mutates teacher-student relations.
type RelationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRelationService constructs a RelationService.
func NewRelationService(db *gorm.DB) (*RelationService, error) {
	if db == nil {
		return nil, errors.New("relation service: db is required")
	}
	return &RelationService{db: db, now: time.Now}, nil
}

// RelationPatch is the allow-listed set of updatable relation fields. Either
// participant may set any of them; absent fields are left untouched.
type RelationPatch struct {
	TeacherName  *string `json:"teacher_name"`
	StudentName  *string `json:"student_name"`
	TeacherNotes *string `json:"teacher_notes"`
	StudentNotes *string `json:"student_notes"`
}

// RelationListing groups a user's live relations by the role they hold.
type RelationListing struct {
	AsTeacher []models.Relation `json:"as_teacher"`
	AsStudent []models.Relation `json:"as_student"`
}

// ListForUser returns the caller's live relations split by role, newest first.
func (s *RelationService) ListForUser(ctx context.Context, userID string) (*RelationListing, error) {
	ctx = ensureContext(ctx)

	listing := &RelationListing{
		AsTeacher: []models.Relation{},
		AsStudent: []models.Relation{},
	}

	err := s.liveScope(ctx).
		Where("teacher_id = ?", userID).
		Order("created_at DESC").
		Preload("Student").
		Find(&listing.AsTeacher).Error
	if err != nil {
		return nil, fmt.Errorf("relation service: list as teacher: %w", err)
	}

	err = s.liveScope(ctx).
		Where("student_id = ?", userID).
		Order("created_at DESC").
		Preload("Teacher").
		Find(&listing.AsStudent).Error
	if err != nil {
		return nil, fmt.Errorf("relation service: list as student: %w", err)
	}

	return listing, nil
}

// GetLive fetches a relation the user participates in, requiring it to be
// active and not soft-deleted.
func (s *RelationService) GetLive(ctx context.Context, relationID, userID string) (*models.Relation, error) {
	relation, err := s.getForParticipant(ctx, relationID, userID)
	if err != nil {
		return nil, err
	}
	if !relation.IsLive() {
		return nil, ErrRelationNotFound
	}
	return relation, nil
}

// Update applies an allow-listed patch to a relation. The caller must be a
// live participant; non-participants and blocked relations read as not found.
func (s *RelationService) Update(ctx context.Context, relationID, userID string, patch RelationPatch) (*models.Relation, error) {
	relation, err := s.GetLive(ctx, relationID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.TeacherName != nil {
		updates["teacher_name"] = normaliseNote(patch.TeacherName)
	}
	if patch.StudentName != nil {
		updates["student_name"] = normaliseNote(patch.StudentName)
	}
	if patch.TeacherNotes != nil {
		updates["teacher_notes"] = normaliseNote(patch.TeacherNotes)
	}
	if patch.StudentNotes != nil {
		updates["student_notes"] = normaliseNote(patch.StudentNotes)
	}

	if len(updates) == 0 {
		return relation, nil
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(relation).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("relation service: update: %w", err)
	}

	if patch.TeacherName != nil {
		relation.TeacherName = normaliseNote(patch.TeacherName)
	}
	if patch.StudentName != nil {
		relation.StudentName = normaliseNote(patch.StudentName)
	}
	if patch.TeacherNotes != nil {
		relation.TeacherNotes = normaliseNote(patch.TeacherNotes)
	}
	if patch.StudentNotes != nil {
		relation.StudentNotes = normaliseNote(patch.StudentNotes)
	}

	return relation, nil
}

// SoftDelete marks a relation blocked. Any participant may trigger it, even
// on an already blocked relation; re-deleting overwrites the deletion time.
// The row survives for audit and for reactivation via a future invite.
func (s *RelationService) SoftDelete(ctx context.Context, relationID, userID string) (*models.Relation, error) {
	relation, err := s.getForParticipant(ctx, relationID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]any{
		"status":     models.RelationBlocked,
		"deleted_at": now,
	}
	if err := s.db.WithContext(ensureContext(ctx)).Model(relation).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("relation service: soft delete: %w", err)
	}

	relation.Status = models.RelationBlocked
	relation.DeletedAt = &now
	return relation, nil
}

// getForParticipant fetches a relation by ID regardless of status, failing
// with ErrRelationNotFound when the user is not on either side.
func (s *RelationService) getForParticipant(ctx context.Context, relationID, userID string) (*models.Relation, error) {
	ctx = ensureContext(ctx)

	relationID = strings.TrimSpace(relationID)
	userID = strings.TrimSpace(userID)
	if relationID == "" || userID == "" {
		return nil, ErrRelationNotFound
	}

	var relation models.Relation
	err := s.db.WithContext(ctx).
		Where("id = ? AND (teacher_id = ? OR student_id = ?)", relationID, userID, userID).
		First(&relation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRelationNotFound
		}
		return nil, fmt.Errorf("relation service: find relation: %w", err)
	}

	return &relation, nil
}

func (s *RelationService) liveScope(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ensureContext(ctx)).
		Model(&models.Relation{}).
		Where("status = ? AND deleted_at IS NULL", models.RelationActive)
}

// normaliseNote maps empty strings to NULL so clearing a field and omitting
// it remain distinguishable in the database.
func normaliseNote(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// liveRelationIDs builds a subquery of relation IDs the user participates in,
// reused by lesson, board, attachment, and chat scoping.
func liveRelationIDs(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Relation{}).
		Select("id").
		Where("(teacher_id = ? OR student_id = ?) AND status = ? AND deleted_at IS NULL",
			userID, userID, models.RelationActive)
}
