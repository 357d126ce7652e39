package models

// Attachment records a file uploaded into a relation, optionally tied to a
// lesson. The bytes live on disk at StoragePath; the row carries metadata.
type Attachment struct {
	BaseModel

	RelationID string  `gorm:"type:uuid;not null;index" json:"relation_id"`
	LessonID   *string `gorm:"type:uuid;index" json:"lesson_id,omitempty"`
	UploaderID string  `gorm:"type:uuid;not null;index" json:"uploader_id"`

	Filename    string `gorm:"not null" json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	StoragePath string `gorm:"not null" json:"-"`

	Relation *Relation `gorm:"foreignKey:RelationID" json:"relation,omitempty"`
	Uploader *User     `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
}
