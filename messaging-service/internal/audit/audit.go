// Package audit writes who-did-what records through the request logger.
// Entries carry log_type=audit so they can be routed apart from
// operational logs.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/pkg/log"
)

const (
	ActionCreateConversation  = "conversation.create"
	ActionSendMessage         = "message.send"
	ActionReadMessage         = "message.read"
	ActionReadConversation    = "conversation.read"
	ActionUpdatePreference    = "preference.update"
	ActionNotificationSent    = "notification.sent"
	ActionNotificationSkipped = "notification.skipped"
	ActionNotificationFailed  = "notification.failed"
)

const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

func entry(ctx context.Context, level zerolog.Level, action, actorID, targetID string) *zerolog.Event {
	l := log.Ctx(ctx)
	evt := l.WithLevel(level).
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID)
	if targetID != "" {
		evt = evt.Str(FieldTargetID, targetID)
	}
	return evt
}

// LogTarget records actorID performing action on targetID, a conversation
// or message ID.
func LogTarget(ctx context.Context, action, actorID, targetID, msg string) {
	entry(ctx, zerolog.InfoLevel, action, actorID, targetID).Msg(msg)
}

// LogWithDetail is LogTarget with a free-form detail such as a reason code.
func LogWithDetail(ctx context.Context, action, actorID, targetID, detail, msg string) {
	entry(ctx, zerolog.InfoLevel, action, actorID, targetID).Str(FieldDetail, detail).Msg(msg)
}

// LogFailure records a failed action at warn level.
func LogFailure(ctx context.Context, action, actorID, targetID string, err error, msg string) {
	entry(ctx, zerolog.WarnLevel, action, actorID, targetID).Err(err).Msg(msg)
}
