package models

import "time"

// RelationStatus is the lifecycle state of a teacher-student pair.
type RelationStatus string

const (
	RelationActive  RelationStatus = "ACTIVE"
	RelationBlocked RelationStatus = "BLOCKED"
)

// Relation links one teacher and one student. At most one logical relation
// exists per (teacher, student) pair; uniqueness is enforced by the
// lookup-before-create inside the activation transaction rather than a
// database constraint, so blocked rows can be revived in place.
type Relation struct {
	BaseModel

	TeacherID string `gorm:"type:uuid;not null;index" json:"teacher_id"`
	StudentID string `gorm:"type:uuid;not null;index" json:"student_id"`

	Status    RelationStatus `gorm:"not null;default:ACTIVE" json:"status"`
	DeletedAt *time.Time     `gorm:"index" json:"deleted_at,omitempty"`

	// Per-side annotations. All four are wiped on reactivation.
	TeacherName  *string `json:"teacher_name,omitempty"`
	StudentName  *string `json:"student_name,omitempty"`
	TeacherNotes *string `json:"teacher_notes,omitempty"`
	StudentNotes *string `json:"student_notes,omitempty"`

	Teacher *User `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// IsLive reports whether the relation is active and not soft-deleted.
func (r *Relation) IsLive() bool {
	return r != nil && r.Status == RelationActive && r.DeletedAt == nil
}

// HasParticipant reports whether the user is on either side of the relation.
func (r *Relation) HasParticipant(userID string) bool {
	return r != nil && (r.TeacherID == userID || r.StudentID == userID)
}
