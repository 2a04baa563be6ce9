package pubsub

import (
	"fmt"
	"strings"
)

const (
	// ChannelChatNotifications carries message.sent events to the email notifier.
	ChannelChatNotifications = "chat:notifications"

	EventMessageSent = "message.sent"
)

// ChannelToTopic derives a Kafka topic from a "{domain}:{stream}" channel,
// so "chat:new_messages" becomes "chat-new-messages".
func ChannelToTopic(channel string) (string, error) {
	segments := strings.Split(channel, ":")
	if len(segments) < 2 || strings.Contains(channel, "::") ||
		strings.HasPrefix(channel, ":") || strings.HasSuffix(channel, ":") {
		return "", fmt.Errorf("pubsub: channel %q is not in {domain}:{stream} form", channel)
	}
	topic := strings.Join(segments, "-")
	return strings.ReplaceAll(topic, "_", "-"), nil
}
