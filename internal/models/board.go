package models

import "gorm.io/datatypes"

// Board is a shared whiteboard scoped to a relation and optionally pinned to
// a lesson. Content holds the client-side element/stroke document as JSON;
// the server treats it as opaque.
type Board struct {
	BaseModel

	RelationID string  `gorm:"type:uuid;not null;index" json:"relation_id"`
	LessonID   *string `gorm:"type:uuid;index" json:"lesson_id,omitempty"`

	Title   string         `gorm:"not null" json:"title"`
	Content datatypes.JSON `json:"content"`

	Relation *Relation `gorm:"foreignKey:RelationID" json:"relation,omitempty"`
	Lesson   *Lesson   `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}
