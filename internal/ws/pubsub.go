package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bridgeChannel = "realtime:rooms"

// bridgeFrame is one room event crossing instances. Instance tags the sender
// so a hub never re-delivers its own frames.
type bridgeFrame struct {
	Instance  string          `json:"instance"`
	ProjectID uuid.UUID       `json:"projectId"`
	Data      json.RawMessage `json:"data"`
}

// Bridge mirrors room broadcasts over Redis Pub/Sub so clients of the same
// project connected to different instances still see each other's events.
// Sender exclusion stays local: the excluded connection only ever lives on
// the publishing instance.
type Bridge struct {
	rdb        *redis.Client
	instanceID string
	log        *zap.Logger
}

func NewBridge(redisURL string, log *zap.Logger) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Bridge{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		log:        log,
	}, nil
}

// Publish is fire-and-forget, matching local delivery semantics.
func (b *Bridge) Publish(projectID uuid.UUID, data []byte) {
	frame, err := json.Marshal(bridgeFrame{
		Instance:  b.instanceID,
		ProjectID: projectID,
		Data:      data,
	})
	if err != nil {
		b.log.Error("failed to encode bridge frame", zap.Error(err))
		return
	}
	go func() {
		if err := b.rdb.Publish(context.Background(), bridgeChannel, frame).Err(); err != nil {
			b.log.Warn("bridge publish failed", zap.Error(err))
		}
	}()
}

// Listen forwards frames from other instances into local room delivery.
// Runs on its own goroutine for the life of the process.
func (b *Bridge) Listen(hub *Hub) {
	pubsub := b.rdb.Subscribe(context.Background(), bridgeChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var frame bridgeFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			b.log.Warn("dropping malformed bridge frame", zap.Error(err))
			continue
		}
		if frame.Instance == b.instanceID {
			continue
		}
		hub.injectRemote(frame.ProjectID, frame.Data)
	}
}
