package notification

import (
	"context"
	"errors"

	"github.com/campusmarket/marketplace/messaging-service/internal/audit"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/listing"
	"github.com/campusmarket/marketplace/messaging-service/internal/mailer"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/pkg/log"
)

// EmailNotifier emails the recipient of a message, honouring their preference.
type EmailNotifier struct {
	users    repository.UserRepository
	prefs    repository.PreferenceRepository
	listings listing.Lookup
	sender   mailer.Sender
	enabled  bool
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(
	users repository.UserRepository,
	prefs repository.PreferenceRepository,
	listings listing.Lookup,
	sender mailer.Sender,
	enabled bool,
) *EmailNotifier {
	return &EmailNotifier{
		users:    users,
		prefs:    prefs,
		listings: listings,
		sender:   sender,
		enabled:  enabled,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, event *domain.MessageSentEvent) {
	l := log.Ctx(ctx)

	if !n.enabled {
		l.Debug().Str(log.FieldMessageID, event.MessageID).Msg("email notifications disabled globally")
		return
	}

	recipientID := event.RecipientID
	if recipientID == "" {
		conv := domain.Conversation{BuyerID: event.BuyerID, SellerID: event.SellerID}
		recipientID = conv.OtherParticipant(event.SenderID)
	}
	if recipientID == "" || recipientID == event.SenderID {
		l.Warn().Str(log.FieldConversationID, event.ConversationID).Msg("could not determine notification recipient")
		return
	}

	profile, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			l.Warn().Str(log.FieldRecipientID, recipientID).Msg("notification recipient has no profile")
		} else {
			l.Error().Err(err).Str(log.FieldRecipientID, recipientID).Msg("failed to load notification recipient")
		}
		return
	}

	pref, err := n.prefs.GetByUserID(ctx, recipientID)
	if err != nil {
		if !errors.Is(err, repository.ErrPreferenceNotFound) {
			l.Error().Err(err).Str(log.FieldRecipientID, recipientID).Msg("failed to load notification preference")
			return
		}
		pref = nil
	}

	settings := domain.ResolveEffectiveSettings(pref, profile)
	if !settings.Enabled {
		audit.LogWithDetail(ctx, audit.ActionNotificationSkipped, recipientID, event.MessageID, "disabled", "email notification skipped")
		return
	}
	if settings.Email == "" {
		l.Warn().Str(log.FieldRecipientID, recipientID).Msg("notification recipient has no email address")
		audit.LogWithDetail(ctx, audit.ActionNotificationSkipped, recipientID, event.MessageID, "no_email", "email notification skipped")
		return
	}

	senderName := fallbackSenderName
	if sender, err := n.users.GetByID(ctx, event.SenderID); err == nil {
		senderName = sender.DisplayName(fallbackSenderName)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		l.Warn().Err(err).Str(log.FieldUserID, event.SenderID).Msg("failed to load sender profile")
	}

	title := ""
	if lst, err := n.listings.GetListing(ctx, event.ListingID); err == nil {
		title = lst.Title
	} else {
		l.Warn().Err(err).Str(log.FieldListingID, event.ListingID).Msg("listing title unavailable for notification")
	}

	msg := NewMessageEmail{
		To:           settings.Email,
		FirstName:    settings.FirstName,
		SenderName:   senderName,
		ListingTitle: title,
		Content:      event.Content,
	}.Render()

	if err := n.sender.Send(ctx, msg); err != nil {
		audit.LogFailure(ctx, audit.ActionNotificationFailed, recipientID, event.MessageID, err, "email notification failed")
		return
	}
	audit.LogTarget(ctx, audit.ActionNotificationSent, recipientID, event.MessageID, "email notification sent")
}
