package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPushChannel_GroupStableAcrossResubscribe(t *testing.T) {
	p := NewPushChannel(PushChannelConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())

	first := p.groupID("alice")
	assert.Equal(t, first, p.groupID("alice"))
	assert.Contains(t, first, "inbox-alice-")
	assert.NotEqual(t, first, p.groupID("bob"))

	other := NewPushChannel(PushChannelConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())
	assert.NotEqual(t, first, other.groupID("alice"))
}
