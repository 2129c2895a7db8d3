package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/imtypes"
	"github.com/ChrisKp1710/gamecall/internal/kafka"
	"github.com/ChrisKp1710/gamecall/internal/metrics"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

// MessageCreatedRecord is published to KAFKA.MESSAGES_TOPIC after a message is stored.
type MessageCreatedRecord struct {
	Event      string    `json:"event"`
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

const messageCreatedEvent = "message.created"

// MessageRouter 负责私聊消息的校验、持久化与实时投递。
type MessageRouter struct {
	messages    storage.MessageRepository
	friendships storage.FriendshipRepository
	notifier    LiveNotifier
	producer    kafka.MessageProducer
	cfg         config.Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewMessageRouter creates a MessageRouter. notifier and producer may be nil.
func NewMessageRouter(
	messages storage.MessageRepository,
	friendships storage.FriendshipRepository,
	notifier LiveNotifier,
	producer kafka.MessageProducer,
	cfg config.Config,
	logger *zap.Logger,
) *MessageRouter {
	return &MessageRouter{
		messages:    messages,
		friendships: friendships,
		notifier:    notifier,
		producer:    producer,
		cfg:         cfg,
		logger:      logger.Named("messages"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores a message from sender to receiver and pushes it to the receiver if connected.
// The sender must hold an accepted edge towards the receiver.
func (r *MessageRouter) SendMessage(ctx context.Context, sender, receiver uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		return nil, ErrEmptyMessage
	case n > models.MaxMessageLength:
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		return nil, ErrMessageTooLong
	}

	ok, err := r.friendships.IsAccepted(ctx, sender, receiver)
	if err != nil {
		metrics.MessagesRejected.WithLabelValues("storage").Inc()
		return nil, storageErr("check friendship", err)
	}
	if !ok {
		metrics.MessagesRejected.WithLabelValues("forbidden").Inc()
		return nil, ErrNotFriends
	}

	msg := &models.Message{SenderID: sender, ReceiverID: receiver, Content: content}
	if err := r.messages.Create(ctx, msg); err != nil {
		metrics.MessagesRejected.WithLabelValues("storage").Inc()
		return nil, storageErr("insert message", err)
	}
	metrics.MessagesPersisted.Inc()

	if r.notifier != nil {
		r.notifier.SendTo(receiver, imtypes.MessageReceived{
			MessageID: msg.ID,
			SenderID:  sender,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}
	r.publish(ctx, msg)

	return msg, nil
}

// publish 将 message.created 记录写入 Kafka；失败只记录日志。
func (r *MessageRouter) publish(ctx context.Context, msg *models.Message) {
	if r.producer == nil {
		return
	}
	payload, err := json.Marshal(MessageCreatedRecord{
		Event:      messageCreatedEvent,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		r.logger.Warn("marshal message.created record", zap.Error(err))
		return
	}
	topic := r.cfg.Kafka.MessagesTopic
	if err := r.producer.SendMessage(ctx, topic, []byte(msg.ReceiverID.String()), payload); err != nil {
		r.logger.Warn("publish message.created failed",
			zap.String("topic", topic), zap.Stringer("message_id", msg.ID), zap.Error(err))
	}
}

// GetMessages returns the conversation between requester and contact, newest first.
// limit <= 0 selects the default page size; larger values are capped.
func (r *MessageRouter) GetMessages(ctx context.Context, requester, contact uuid.UUID, limit int, before *time.Time) ([]*models.Message, error) {
	ok, err := r.friendships.IsAccepted(ctx, requester, contact)
	if err != nil {
		return nil, storageErr("check friendship", err)
	}
	if !ok {
		return nil, ErrNotFriends
	}

	messages, err := r.messages.ListBetween(ctx, requester, contact, r.pageSize(limit), before)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return messages, nil
}

func (r *MessageRouter) pageSize(limit int) int {
	defaultSize, maxSize := r.cfg.Messages.DefaultPageSize, r.cfg.Messages.MaxPageSize
	if defaultSize <= 0 {
		defaultSize = 50
	}
	if maxSize <= 0 {
		maxSize = 200
	}
	if limit <= 0 {
		return defaultSize
	}
	if limit > maxSize {
		return maxSize
	}
	return limit
}

// MarkAsRead stamps every unread message from contact to requester and returns how many changed.
func (r *MessageRouter) MarkAsRead(ctx context.Context, requester, contact uuid.UUID) (int64, error) {
	n, err := r.messages.MarkRead(ctx, requester, contact, r.now())
	if err != nil {
		return 0, storageErr("mark messages read", err)
	}
	return n, nil
}

// GetUnreadCounts 按发送者统计发给 requester 的未读消息数。
func (r *MessageRouter) GetUnreadCounts(ctx context.Context, requester uuid.UUID) (map[uuid.UUID]int64, error) {
	counts, err := r.messages.CountUnreadBySender(ctx, requester)
	if err != nil {
		return nil, storageErr("count unread messages", err)
	}
	return counts, nil
}
