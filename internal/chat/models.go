package chat

import "time"

const MaxMessageLength = 200

type Message struct {
	MessageID string    `gorm:"column:message_id;primaryKey;type:uuid" json:"messageId"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null" json:"-"`
	Username  string    `gorm:"column:username;type:varchar(50);not null" json:"username"`
	Avatar    string    `gorm:"column:avatar;type:varchar(255);not null;default:''" json:"avatar"`
	Role      string    `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Message   string    `gorm:"column:message;type:varchar(200);not null" json:"message"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index" json:"createdAt"`
}

func (Message) TableName() string {
	return "chat_messages"
}

// Author is the authenticated sender of a message.
type Author struct {
	UserID   string
	Username string
	Avatar   string
	Role     string
}
