package notification

import (
	"fmt"
	"strings"

	"github.com/campusmarket/marketplace/messaging-service/internal/mailer"
)

const (
	fallbackGreeting   = "there"
	fallbackSenderName = "Someone"
)

// NewMessageEmail holds what the new-message email needs to render.
type NewMessageEmail struct {
	To           string
	FirstName    string
	SenderName   string
	ListingTitle string
	Content      string
}

// Render builds the subject and body. An unknown listing title switches the
// wording to name the sender instead.
func (e NewMessageEmail) Render() *mailer.Message {
	greeting := strings.TrimSpace(e.FirstName)
	if greeting == "" {
		greeting = fallbackGreeting
	}
	sender := strings.TrimSpace(e.SenderName)
	if sender == "" {
		sender = fallbackSenderName
	}
	title := strings.TrimSpace(e.ListingTitle)

	var subject, intro string
	if title != "" {
		subject = fmt.Sprintf("New message about your %s listing", title)
		intro = fmt.Sprintf("You have received a new message from %s about your %s listing:", sender, title)
	} else {
		subject = fmt.Sprintf("New message from %s", sender)
		intro = fmt.Sprintf("You have received a new message from %s:", sender)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greeting)
	b.WriteString(intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", e.Content)
	b.WriteString("You can reply to this message by visiting the conversation in the Campus Marketplace.\n\n")
	b.WriteString("Best regards,\nCampus Marketplace Team\n")

	return &mailer.Message{
		To:      e.To,
		Subject: subject,
		Body:    b.String(),
	}
}
