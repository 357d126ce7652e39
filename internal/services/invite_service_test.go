package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/models"
	"github.com/studyhall-app/studyhall/pkg/crypto"
)

func TestInviteServiceIssueAndResolve(t *testing.T) {
	db := openInviteTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	creator := createInviteTestUser(t, db, "alice")

	svc, err := NewInviteService(db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(24*time.Hour),
	)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{
		CreatedByID: creator.ID,
		Type:        models.InviteStudentToTeacher,
		Message:     "please be my teacher",
	})
	require.NoError(t, err)
	require.NotEmpty(t, code)

	invite, err := svc.Resolve(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, models.InviteStudentToTeacher, invite.Type)
	require.Equal(t, "please be my teacher", invite.Message)
	require.WithinDuration(t, current.Add(24*time.Hour), invite.ExpiresAt, time.Second)
	require.NotNil(t, invite.CreatedBy)
	require.Equal(t, creator.Username, invite.CreatedBy.Username)

	_, err = svc.Resolve(context.Background(), "no-such-code")
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceIssueDefaultsAndInvalidType(t *testing.T) {
	db := openInviteTestDB(t)
	creator := createInviteTestUser(t, db, "bob")

	svc, err := NewInviteService(db)
	require.NoError(t, err)

	// Empty type falls back to the student-to-teacher direction.
	code, err := svc.Issue(context.Background(), IssueInviteInput{CreatedByID: creator.ID})
	require.NoError(t, err)

	invite, err := svc.Resolve(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, models.InviteStudentToTeacher, invite.Type)

	_, err = svc.Issue(context.Background(), IssueInviteInput{
		CreatedByID: creator.ID,
		Type:        models.InviteType("SIDEWAYS"),
	})
	require.ErrorIs(t, err, ErrInviteInvalidType)
}

func TestInviteServiceResolveExpired(t *testing.T) {
	db := openInviteTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	creator := createInviteTestUser(t, db, "carol")

	svc, err := NewInviteService(db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(time.Hour),
	)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{CreatedByID: creator.ID})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, err = svc.Resolve(context.Background(), code)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceActivateStudentToTeacher(t *testing.T) {
	db := openInviteTestDB(t)

	student := createInviteTestUser(t, db, "student")
	teacher := createInviteTestUser(t, db, "teacher")

	svc, err := NewInviteService(db)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{
		CreatedByID: student.ID,
		Type:        models.InviteStudentToTeacher,
	})
	require.NoError(t, err)

	relation, err := svc.Activate(context.Background(), teacher.ID, code)
	require.NoError(t, err)
	require.Equal(t, teacher.ID, relation.TeacherID)
	require.Equal(t, student.ID, relation.StudentID)
	require.Equal(t, models.RelationActive, relation.Status)
	require.Nil(t, relation.DeletedAt)

	var use models.InviteUse
	require.NoError(t, db.Where("user_id = ?", teacher.ID).First(&use).Error)

	// The code is consumed: nobody can resolve or accept it again.
	_, err = svc.Resolve(context.Background(), code)
	require.ErrorIs(t, err, ErrInviteNotFound)

	other := createInviteTestUser(t, db, "latecomer")
	_, err = svc.Activate(context.Background(), other.ID, code)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceActivateTeacherToStudent(t *testing.T) {
	db := openInviteTestDB(t)

	teacher := createInviteTestUser(t, db, "mentor")
	student := createInviteTestUser(t, db, "learner")

	svc, err := NewInviteService(db)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{
		CreatedByID: teacher.ID,
		Type:        models.InviteTeacherToStudent,
	})
	require.NoError(t, err)

	relation, err := svc.Activate(context.Background(), student.ID, code)
	require.NoError(t, err)
	require.Equal(t, teacher.ID, relation.TeacherID)
	require.Equal(t, student.ID, relation.StudentID)
}

func TestInviteServiceSelfAcceptLeavesInviteUntouched(t *testing.T) {
	db := openInviteTestDB(t)

	creator := createInviteTestUser(t, db, "loner")

	svc, err := NewInviteService(db)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{CreatedByID: creator.ID})
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), creator.ID, code)
	require.ErrorIs(t, err, ErrInviteSelfAccept)

	// The failed attempt must not consume the code or create anything.
	invite, err := svc.Resolve(context.Background(), code)
	require.NoError(t, err)
	require.True(t, invite.IsActive)

	var relationCount, useCount int64
	require.NoError(t, db.Model(&models.Relation{}).Count(&relationCount).Error)
	require.NoError(t, db.Model(&models.InviteUse{}).Count(&useCount).Error)
	require.Zero(t, relationCount)
	require.Zero(t, useCount)

	// Someone else can still accept afterwards.
	other := createInviteTestUser(t, db, "joiner")
	_, err = svc.Activate(context.Background(), other.ID, code)
	require.NoError(t, err)
}

func TestInviteServiceActivateExpiredCode(t *testing.T) {
	db := openInviteTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	creator := createInviteTestUser(t, db, "issuer")
	acceptor := createInviteTestUser(t, db, "acceptor")

	svc, err := NewInviteService(db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(time.Hour),
	)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), IssueInviteInput{CreatedByID: creator.ID})
	require.NoError(t, err)

	current = current.Add(90 * time.Minute)

	_, err = svc.Activate(context.Background(), acceptor.ID, code)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceReactivationWipesAnnotations(t *testing.T) {
	db := openInviteTestDB(t)

	student := createInviteTestUser(t, db, "pupil")
	teacher := createInviteTestUser(t, db, "prof")

	invites, err := NewInviteService(db)
	require.NoError(t, err)
	relations, err := NewRelationService(db)
	require.NoError(t, err)

	code, err := invites.Issue(context.Background(), IssueInviteInput{
		CreatedByID: student.ID,
		Type:        models.InviteStudentToTeacher,
	})
	require.NoError(t, err)

	relation, err := invites.Activate(context.Background(), teacher.ID, code)
	require.NoError(t, err)

	name := "Mr. Smith"
	notes := "meets on thursdays"
	_, err = relations.Update(context.Background(), relation.ID, student.ID, RelationPatch{
		TeacherName:  &name,
		StudentNotes: &notes,
	})
	require.NoError(t, err)

	_, err = relations.SoftDelete(context.Background(), relation.ID, student.ID)
	require.NoError(t, err)

	// A fresh invite between the same pair revives the same row and clears the
	// old customization.
	code, err = invites.Issue(context.Background(), IssueInviteInput{
		CreatedByID: teacher.ID,
		Type:        models.InviteTeacherToStudent,
	})
	require.NoError(t, err)

	revived, err := invites.Activate(context.Background(), student.ID, code)
	require.NoError(t, err)
	require.Equal(t, relation.ID, revived.ID)
	require.Equal(t, models.RelationActive, revived.Status)
	require.Nil(t, revived.DeletedAt)
	require.Nil(t, revived.TeacherName)
	require.Nil(t, revived.StudentName)
	require.Nil(t, revived.TeacherNotes)
	require.Nil(t, revived.StudentNotes)

	var count int64
	require.NoError(t, db.Model(&models.Relation{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestInviteServiceDeactivateExpired(t *testing.T) {
	db := openInviteTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	creator := createInviteTestUser(t, db, "sweeper")

	svc, err := NewInviteService(db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(time.Hour),
	)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), IssueInviteInput{CreatedByID: creator.ID})
	require.NoError(t, err)
	fresh, err := svc.Issue(context.Background(), IssueInviteInput{
		CreatedByID: creator.ID,
		ExpiresIn:   48 * time.Hour,
	})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	swept, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), swept)

	_, err = svc.Resolve(context.Background(), fresh)
	require.NoError(t, err)
}

func createInviteTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("Sup3rSecret!")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func openInviteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.InviteLink{},
		&models.InviteUse{},
		&models.Relation{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
