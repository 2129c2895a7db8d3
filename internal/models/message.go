package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength is the upper bound on trimmed message content, in characters.
const MaxMessageLength = 10000

// Message 代表存储在数据库中的私聊消息。
// Only ReadAt changes after creation.
type Message struct {
	BaseModel
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1" json:"receiver_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	ReadAt     *time.Time `gorm:"index:idx_messages_unread,priority:2" json:"read_at"`
}

// TableName 指定 Message 模型的表名。
func (Message) TableName() string {
	return "messages"
}
