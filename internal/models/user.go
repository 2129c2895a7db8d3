package models

import "time"

// User presence values stored on the row. Live presence comes from the connection registry.
const (
	UserStatusOnline  = "online"
	UserStatusOffline = "offline"
)

// User 代表系统中的用户。
type User struct {
	BaseModel
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FriendCode   string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"friend_code"`
	AvatarURL    *string   `gorm:"type:varchar(255)" json:"avatar_url"`
	Status       string    `gorm:"type:varchar(20);default:'offline'" json:"status"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}

// UserBasicInfo holds the public part of a user.
type UserBasicInfo struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	FriendCode string  `json:"friend_code"`
	AvatarURL  *string `json:"avatar_url"`
	Status     string  `json:"status"`
}

// BasicInfo projects u onto its public fields.
func (u *User) BasicInfo() *UserBasicInfo {
	return &UserBasicInfo{
		ID:         u.ID.String(),
		Username:   u.Username,
		FriendCode: u.FriendCode,
		AvatarURL:  u.AvatarURL,
		Status:     u.Status,
	}
}
