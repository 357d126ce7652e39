package models

import "time"

// InviteType encodes the direction of an invite: who is inviting whom into
// which role.
type InviteType string

const (
	// InviteStudentToTeacher is created by a student looking for a teacher;
	// the accepting user becomes the teacher.
	InviteStudentToTeacher InviteType = "STUDENT_TO_TEACHER"
	// InviteTeacherToStudent is created by a teacher looking for a student;
	// the accepting user becomes the student.
	InviteTeacherToStudent InviteType = "TEACHER_TO_STUDENT"
)

// Valid reports whether the invite type is one of the known directions.
func (t InviteType) Valid() bool {
	return t == InviteStudentToTeacher || t == InviteTeacherToStudent
}

// InviteLink is a time-limited, single-use code authorizing one user to form
// a teacher-student relation with its creator. Consumption flips IsActive to
// false; rows are never deleted by the acceptance flow.
type InviteLink struct {
	BaseModel

	Code        string     `gorm:"uniqueIndex;not null" json:"code"`
	Type        InviteType `gorm:"not null" json:"type"`
	Message     string     `json:"message"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
	CreatedByID string     `gorm:"type:uuid;not null;index" json:"created_by_id"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// InviteUse is an append-only audit record of a successful acceptance.
type InviteUse struct {
	BaseModel

	InviteID string    `gorm:"type:uuid;not null;index" json:"invite_id"`
	UserID   string    `gorm:"type:uuid;not null;index" json:"user_id"`
	UsedAt   time.Time `gorm:"not null" json:"used_at"`

	Invite *InviteLink `gorm:"foreignKey:InviteID" json:"invite,omitempty"`
	User   *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
