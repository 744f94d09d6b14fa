package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"

	"github.com/turyasin/Proposal-App-Live/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending proposal emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// Mailer delivers emails over SMTP. An empty host disables delivery and the
// worker only logs the message, which keeps local development mail-free.
type Mailer struct {
	Addr   string
	From   string
	Logger *slog.Logger
}

func (m Mailer) send(payload SendEmailPayload) error {
	if m.Addr == "" {
		if m.Logger != nil {
			m.Logger.Info("email delivery disabled",
				slog.String("to", payload.To),
				slog.String("subject", payload.Subject))
		}
		return nil
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.From, payload.To, payload.Subject, payload.Body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{payload.To}, []byte(msg))
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks through the mailer.
func NewSendEmailHandler(mailer Mailer, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.RecordJob(TaskTypeSendEmail, "skipped")
			return asynq.SkipRetry
		}
		if err := mailer.send(payload); err != nil {
			metrics.RecordJob(TaskTypeSendEmail, "error")
			if logger != nil {
				logger.Error("send email failed", slog.String("to", payload.To), slog.Any("error", err))
			}
			return err
		}
		metrics.RecordJob(TaskTypeSendEmail, "ok")
		if logger != nil {
			logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		}
		return nil
	}
}
