package kafkahandlers

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/imtypes"
)

// LiveEventRecord is the value format of KAFKA.LIVE_EVENTS_TOPIC. Records without
// to_user_id are broadcast to every connected user.
type LiveEventRecord struct {
	ToUserID *uuid.UUID     `json:"to_user_id,omitempty"`
	Event    json.RawMessage `json:"event"`
}

// LiveDispatcher delivers events to connected users. The websocket registry implements it.
type LiveDispatcher interface {
	SendTo(user uuid.UUID, ev imtypes.Event)
	Broadcast(ev imtypes.Event)
}

// LiveEventConsumerLogic relays events published by other services to live sessions.
type LiveEventConsumerLogic struct {
	dispatcher LiveDispatcher
	logger     *zap.Logger
}

// NewLiveEventConsumerLogic creates a new instance of LiveEventConsumerLogic.
func NewLiveEventConsumerLogic(dispatcher LiveDispatcher, logger *zap.Logger) *LiveEventConsumerLogic {
	return &LiveEventConsumerLogic{dispatcher: dispatcher, logger: logger.Named("live-events")}
}

// HandleLiveEvent is the kafka.MessageHandler for the live events topic.
// Undecodable records are skipped and committed; retrying them would never succeed.
func (h *LiveEventConsumerLogic) HandleLiveEvent(_ context.Context, msg *kafka.Message) error {
	var record LiveEventRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		h.logger.Warn("skipping undecodable record", zap.Error(err), zap.Any("offset", msg.TopicPartition.Offset))
		return nil
	}

	ev, err := imtypes.Decode(record.Event)
	if err != nil {
		h.logger.Warn("skipping malformed event", zap.Error(err), zap.Any("offset", msg.TopicPartition.Offset))
		return nil
	}
	switch e := ev.(type) {
	case imtypes.Unknown:
		h.logger.Debug("skipping unknown event type", zap.String("type", string(e.Type)))
		return nil
	case imtypes.WebRTCSignal:
		// 信令只能由会话转发，发送方取自连接身份；记录中没有可信的发送方
		h.logger.Warn("skipping webrtc_signal record", zap.Any("offset", msg.TopicPartition.Offset))
		return nil
	}

	if record.ToUserID != nil {
		h.dispatcher.SendTo(*record.ToUserID, ev)
		return nil
	}
	h.dispatcher.Broadcast(ev)
	return nil
}
