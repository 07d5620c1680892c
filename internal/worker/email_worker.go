package worker

// email_worker.go
// Processes email jobs from QueueEmail: the welcome mail carrying the
// attendee's badge PDF, and the confirmation sent after a check-in.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"confcheckin/internal/infra"

	"github.com/rs/zerolog/log"
)

const (
	EmailWelcome   = "welcome"
	EmailCheckedIn = "checked_in"
)

// EmailJobPayload is the job body sent to QueueEmail.
type EmailJobPayload struct {
	Kind        string     `json:"kind"`
	ToEmail     string     `json:"to_email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	EventName   string     `json:"event_name"`
	QRToken     string     `json:"qr_token"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Send(msg infra.Message) error
}

// EmailWorker renders and sends email jobs.
type EmailWorker struct {
	mailer      MailSender
	storagePath string
}

// NewEmailWorker creates an EmailWorker. Badges are written under storagePath.
func NewEmailWorker(mailer MailSender, storagePath string) *EmailWorker {
	return &EmailWorker{mailer: mailer, storagePath: storagePath}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// retrying cannot fix a bad payload
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	msg, err := w.compose(payload)
	if err != nil {
		return err
	}

	err = w.mailer.Send(msg)
	switch {
	case errors.Is(err, infra.ErrMailDisabled):
		log.Debug().Str("to", payload.ToEmail).Str("kind", payload.Kind).Msg("email_worker: mail disabled, dropping")
		return nil
	case err != nil:
		return fmt.Errorf("email_worker: send %s: %w", payload.Kind, err)
	}
	log.Info().Str("to", payload.ToEmail).Str("kind", payload.Kind).Msg("email_worker: sent")
	return nil
}

func (w *EmailWorker) compose(p EmailJobPayload) (infra.Message, error) {
	switch p.Kind {
	case EmailWelcome:
		path, err := infra.GenerateBadgePDF(infra.Badge{
			EventName: p.EventName,
			Name:      p.Name,
			Email:     p.ToEmail,
			Role:      p.Role,
			QRToken:   p.QRToken,
		}, w.storagePath)
		if err != nil {
			return infra.Message{}, err
		}
		return infra.Message{
			To:      p.ToEmail,
			Subject: fmt.Sprintf("Your badge for %s", p.EventName),
			Body: fmt.Sprintf("Hi %s,\n\nYou are registered for %s. Your badge is attached; "+
				"show its QR code at the entrance.\n\nBadge code: %s\n", p.Name, p.EventName, p.QRToken),
			AttachmentPath: path,
		}, nil
	case EmailCheckedIn:
		at := "now"
		if p.CheckedInAt != nil {
			at = p.CheckedInAt.UTC().Format("15:04 MST, 02 Jan 2006")
		}
		return infra.Message{
			To:      p.ToEmail,
			Subject: fmt.Sprintf("Welcome to %s", p.EventName),
			Body:    fmt.Sprintf("Hi %s,\n\nYou were checked in to %s at %s. Enjoy the event.\n", p.Name, p.EventName, at),
		}, nil
	default:
		return infra.Message{}, fmt.Errorf("email_worker: unknown kind %q", p.Kind)
	}
}
