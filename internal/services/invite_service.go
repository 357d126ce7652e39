package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
	"github.com/studyhall-app/studyhall/pkg/crypto"
)

const (
	defaultInviteExpiry    = 24 * time.Hour
	defaultInviteCodeBytes = 24
	maxInviteExpiry        = 90 * 24 * time.Hour
)

var (
	// ErrInviteNotFound covers missing, expired, and already consumed codes.
	// The three cases are deliberately indistinguishable so codes cannot be
	// enumerated.
	ErrInviteNotFound = errors.New("invite: not found")
	// ErrInviteSelfAccept signals a user trying to accept their own invite.
	ErrInviteSelfAccept = errors.New("invite: cannot accept own invite")
	// ErrInviteInvalidType signals an unknown invite direction.
	ErrInviteInvalidType = errors.New("invite: unknown invite type")
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteExpiry overrides the default invite lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteCodeSize adjusts the random code length in bytes.
func WithInviteCodeSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.codeLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InviteService issues, resolves, and activates invite codes.
type InviteService struct {
	db         *gorm.DB
	expiry     time.Duration
	codeLength int
	now        func() time.Time
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:         db,
		expiry:     defaultInviteExpiry,
		codeLength: defaultInviteCodeBytes,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueInviteInput carries the parameters for creating a new invite.
type IssueInviteInput struct {
	CreatedByID string
	Type        models.InviteType
	Message     string
	ExpiresIn   time.Duration
}

// Issue persists a new invite link and returns its code. The code is the only
// value shared with the caller; the row itself stays server-side.
func (s *InviteService) Issue(ctx context.Context, input IssueInviteInput) (string, error) {
	ctx = ensureContext(ctx)

	createdBy := strings.TrimSpace(input.CreatedByID)
	if createdBy == "" {
		return "", errors.New("invite service: creator id is required")
	}

	inviteType := input.Type
	if inviteType == "" {
		inviteType = models.InviteStudentToTeacher
	}
	if !inviteType.Valid() {
		return "", ErrInviteInvalidType
	}

	expiresIn := input.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = s.expiry
	}
	if expiresIn > maxInviteExpiry {
		expiresIn = maxInviteExpiry
	}

	code, err := crypto.GenerateToken(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("invite service: generate code: %w", err)
	}

	invite := models.InviteLink{
		Code:        code,
		Type:        inviteType,
		Message:     strings.TrimSpace(input.Message),
		ExpiresAt:   s.now().Add(expiresIn),
		IsActive:    true,
		CreatedByID: createdBy,
	}

	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return "", fmt.Errorf("invite service: create invite: %w", err)
	}

	return code, nil
}

// Resolve looks up an invite by code, requiring it to be active and unexpired,
// and attaches the creator. Missing, expired, and consumed codes all resolve
// to ErrInviteNotFound.
func (s *InviteService) Resolve(ctx context.Context, code string) (*models.InviteLink, error) {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInviteNotFound
	}

	var invite models.InviteLink
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ? AND expires_at > ?", code, true, s.now()).
		Preload("CreatedBy").
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}

	return &invite, nil
}

// Activate redeems a valid invite for the acting user: it claims the code,
// derives teacher/student roles from the invite direction, creates or revives
// the relation, and records the use. The whole sequence runs in one
// transaction so a crash can never leave a revived relation behind a still
// active code.
func (s *InviteService) Activate(ctx context.Context, userID, code string) (*models.Relation, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("invite service: user id is required")
	}

	invite, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.CreatedByID == userID {
		return nil, ErrInviteSelfAccept
	}

	teacherID, studentID, err := deriveRoles(invite.Type, userID, invite.CreatedByID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var relation models.Relation

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update is the serialization point: of two concurrent
		// acceptances only one flips is_active and proceeds. The creator
		// exclusion keeps a racing self-accept from burning the code.
		claim := tx.Model(&models.InviteLink{}).
			Where("code = ? AND is_active = ? AND expires_at > ? AND created_by_id <> ?",
				invite.Code, true, now, userID).
			Update("is_active", false)
		if claim.Error != nil {
			return fmt.Errorf("claim invite: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrInviteNotFound
		}

		err := tx.Where("teacher_id = ? AND student_id = ?", teacherID, studentID).
			First(&relation).Error
		switch {
		case err == nil:
			// Reactivation wipes the previous customization on both sides.
			updates := map[string]any{
				"status":        models.RelationActive,
				"deleted_at":    nil,
				"teacher_name":  nil,
				"student_name":  nil,
				"teacher_notes": nil,
				"student_notes": nil,
			}
			if err := tx.Model(&relation).Updates(updates).Error; err != nil {
				return fmt.Errorf("reactivate relation: %w", err)
			}
			relation.Status = models.RelationActive
			relation.DeletedAt = nil
			relation.TeacherName = nil
			relation.StudentName = nil
			relation.TeacherNotes = nil
			relation.StudentNotes = nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			relation = models.Relation{
				TeacherID: teacherID,
				StudentID: studentID,
				Status:    models.RelationActive,
			}
			if err := tx.Create(&relation).Error; err != nil {
				return fmt.Errorf("create relation: %w", err)
			}
		default:
			return fmt.Errorf("find relation: %w", err)
		}

		use := models.InviteUse{
			InviteID: invite.ID,
			UserID:   userID,
			UsedAt:   now,
		}
		if err := tx.Create(&use).Error; err != nil {
			return fmt.Errorf("record invite use: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	return &relation, nil
}

// ListCreatedBy returns the invites issued by a user, newest first.
func (s *InviteService) ListCreatedBy(ctx context.Context, userID string) ([]models.InviteLink, error) {
	ctx = ensureContext(ctx)

	var invites []models.InviteLink
	err := s.db.WithContext(ctx).
		Where("created_by_id = ?", userID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}
	return invites, nil
}

// DeactivateExpired flips is_active off for invites past their expiry.
// Called by the maintenance sweep; redundant with the expires_at check in
// Resolve but keeps the table tidy.
func (s *InviteService) DeactivateExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.InviteLink{}).
		Where("is_active = ? AND expires_at <= ?", true, s.now()).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("invite service: deactivate expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// deriveRoles maps the invite direction onto the (teacher, student) pair.
// STUDENT_TO_TEACHER means the creator is a student inviting the acting user
// to become their teacher; TEACHER_TO_STUDENT inverts the mapping.
func deriveRoles(t models.InviteType, actorID, creatorID string) (teacherID, studentID string, err error) {
	switch t {
	case models.InviteStudentToTeacher:
		return actorID, creatorID, nil
	case models.InviteTeacherToStudent:
		return creatorID, actorID, nil
	default:
		return "", "", ErrInviteInvalidType
	}
}
