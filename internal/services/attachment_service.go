package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
)

var (
	// ErrAttachmentNotFound is returned when no attachment is visible to the caller.
	ErrAttachmentNotFound = errors.New("attachment: not found")
	// ErrAttachmentTooLarge is returned when an upload exceeds the configured cap.
	ErrAttachmentTooLarge = errors.New("attachment: file too large")
)

const defaultMaxAttachmentBytes = 32 << 20

// AttachmentService stores uploaded files on disk and their metadata rows in
// the database.
type AttachmentService struct {
	db        *gorm.DB
	relations *RelationService
	dir       string
	maxBytes  int64
}

// NewAttachmentService constructs an AttachmentService rooted at dir.
func NewAttachmentService(db *gorm.DB, relations *RelationService, dir string, maxBytes int64) (*AttachmentService, error) {
	if db == nil {
		return nil, errors.New("attachment service: db is required")
	}
	if relations == nil {
		return nil, errors.New("attachment service: relation service is required")
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "./data/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment service: create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxAttachmentBytes
	}

	return &AttachmentService{
		db:        db,
		relations: relations,
		dir:       dir,
		maxBytes:  maxBytes,
	}, nil
}

// SaveAttachmentInput carries upload metadata and the content stream.
type SaveAttachmentInput struct {
	RelationID  string
	LessonID    *string
	Filename    string
	ContentType string
	Reader      io.Reader
}

// Save streams an upload to disk and records its metadata. Uploads above the
// size cap are rejected and the partial file removed.
func (s *AttachmentService) Save(ctx context.Context, userID string, input SaveAttachmentInput) (*models.Attachment, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, input.RelationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrAttachmentNotFound)
	}

	filename := sanitiseFilename(input.Filename)
	if filename == "" {
		return nil, errors.New("attachment service: filename is required")
	}
	if input.Reader == nil {
		return nil, errors.New("attachment service: no content")
	}

	storageName := uuid.NewString()
	path := filepath.Join(s.dir, storageName)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("attachment service: create file: %w", err)
	}

	// LimitReader with one extra byte so an oversized upload is detectable.
	written, err := io.Copy(file, io.LimitReader(input.Reader, s.maxBytes+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("attachment service: write file: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return nil, ErrAttachmentTooLarge
	}

	attachment := models.Attachment{
		RelationID:  input.RelationID,
		LessonID:    input.LessonID,
		UploaderID:  userID,
		Filename:    filename,
		Size:        written,
		ContentType: strings.TrimSpace(input.ContentType),
		StoragePath: path,
	}

	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("attachment service: create record: %w", err)
	}

	return &attachment, nil
}

// Get fetches attachment metadata visible to the caller.
func (s *AttachmentService) Get(ctx context.Context, attachmentID, userID string) (*models.Attachment, error) {
	ctx = ensureContext(ctx)

	attachmentID = strings.TrimSpace(attachmentID)
	if attachmentID == "" {
		return nil, ErrAttachmentNotFound
	}

	var attachment models.Attachment
	err := s.db.WithContext(ctx).
		Where("id = ?", attachmentID).
		Where("relation_id IN (?)", liveRelationIDs(s.db, userID)).
		First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("attachment service: find attachment: %w", err)
	}

	return &attachment, nil
}

// ListForRelation returns a relation's attachments, newest first.
func (s *AttachmentService) ListForRelation(ctx context.Context, relationID, userID string) ([]models.Attachment, error) {
	ctx = ensureContext(ctx)

	if _, err := s.relations.GetLive(ctx, relationID, userID); err != nil {
		return nil, mapRelationErr(err, ErrAttachmentNotFound)
	}

	var attachments []models.Attachment
	err := s.db.WithContext(ctx).
		Where("relation_id = ?", relationID).
		Order("created_at DESC").
		Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("attachment service: list attachments: %w", err)
	}
	return attachments, nil
}

// Delete removes an attachment. Only the uploader may delete; other
// participants read it as not found.
func (s *AttachmentService) Delete(ctx context.Context, attachmentID, userID string) error {
	attachment, err := s.Get(ctx, attachmentID, userID)
	if err != nil {
		return err
	}
	if attachment.UploaderID != userID {
		return ErrAttachmentNotFound
	}

	if err := s.db.WithContext(ensureContext(ctx)).Delete(attachment).Error; err != nil {
		return fmt.Errorf("attachment service: delete record: %w", err)
	}

	if err := os.Remove(attachment.StoragePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("attachment service: remove file: %w", err)
	}
	return nil
}

// PruneOrphans removes metadata rows whose backing file has disappeared.
// Called by the maintenance sweep.
func (s *AttachmentService) PruneOrphans(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var attachments []models.Attachment
	if err := s.db.WithContext(ctx).Find(&attachments).Error; err != nil {
		return 0, fmt.Errorf("attachment service: list for prune: %w", err)
	}

	var pruned int64
	for i := range attachments {
		if _, err := os.Stat(attachments[i].StoragePath); os.IsNotExist(err) {
			if err := s.db.WithContext(ctx).Delete(&attachments[i]).Error; err != nil {
				return pruned, fmt.Errorf("attachment service: prune record: %w", err)
			}
			pruned++
		}
	}
	return pruned, nil
}

func sanitiseFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
