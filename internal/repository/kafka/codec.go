package kafka

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// EncodeNotification converts n into the structpb form carried on the wire.
func EncodeNotification(n notification.Notification) (*structpb.Struct, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flatten notification: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return st, nil
}

func DecodeNotification(st *structpb.Struct) (notification.Notification, error) {
	var n notification.Notification
	raw, err := st.MarshalJSON()
	if err != nil {
		return n, fmt.Errorf("struct to json: %w", err)
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return n, fmt.Errorf("unmarshal notification: %w", err)
	}
	if n.ID == "" || n.RecipientID == "" {
		return n, fmt.Errorf("notification without id or recipient")
	}
	return n, nil
}

// UnmarshalNotification decodes a raw Kafka value.
func UnmarshalNotification(value []byte) (notification.Notification, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(value, st); err != nil {
		return notification.Notification{}, fmt.Errorf("proto unmarshal: %w", err)
	}
	return DecodeNotification(st)
}
