package models

import "time"

// ChatMessage is one message inside a relation's conversation. ReadAt doubles
// as the read receipt: nil until the recipient marks the conversation read.
type ChatMessage struct {
	BaseModel

	RelationID string `gorm:"type:uuid;not null;index" json:"relation_id"`
	SenderID   string `gorm:"type:uuid;not null;index" json:"sender_id"`

	Body   string     `gorm:"not null" json:"body"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	Relation *Relation `gorm:"foreignKey:RelationID" json:"relation,omitempty"`
	Sender   *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
