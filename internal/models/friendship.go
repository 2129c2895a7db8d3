package models

import "github.com/google/uuid"

// FriendshipStatus is the state of one directed edge.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	// FriendshipBlocked is a legal stored value that no operation produces or honours yet.
	FriendshipBlocked FriendshipStatus = "blocked"
)

// Friendship is a directed edge owner -> peer.
// An accepted relationship is two accepted edges, one per direction; a pending one is a
// single requester -> target edge. (owner, peer) is unique.
type Friendship struct {
	BaseModel
	UserID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_edge" json:"user_id"`
	FriendID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_edge;index" json:"friend_id"`
	Status   FriendshipStatus `gorm:"type:varchar(20);not null;index" json:"status"`
}

// TableName 指定 Friendship 模型的表名。
func (Friendship) TableName() string {
	return "friendships"
}

// FriendWithUser is a friendship edge joined with the other party's public profile.
type FriendWithUser struct {
	UserBasicInfo
	FriendshipStatus FriendshipStatus `json:"friendship_status"`
}
