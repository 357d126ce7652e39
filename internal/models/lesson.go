package models

import "time"

// LessonStatus is the scheduling state of a lesson.
type LessonStatus string

const (
	LessonScheduled LessonStatus = "SCHEDULED"
	LessonCompleted LessonStatus = "COMPLETED"
	LessonCancelled LessonStatus = "CANCELLED"
)

// Lesson is a scheduled session between the two participants of a relation.
type Lesson struct {
	BaseModel

	RelationID string `gorm:"type:uuid;not null;index" json:"relation_id"`

	Title           string       `gorm:"not null" json:"title"`
	StartsAt        time.Time    `gorm:"index;not null" json:"starts_at"`
	DurationMinutes int          `gorm:"default:60" json:"duration_minutes"`
	Status          LessonStatus `gorm:"not null;default:SCHEDULED" json:"status"`
	Notes           string       `json:"notes"`

	Relation *Relation `gorm:"foreignKey:RelationID" json:"relation,omitempty"`
}
