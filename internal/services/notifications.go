package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jobfinder/apiserver/internal/mailer"
	"github.com/jobfinder/apiserver/internal/mq"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/samber/oops"
)

// NotificationHandler turns queued events into emails.
type NotificationHandler struct {
	users     UserRepository
	jobs      JobRepository
	companies CompanyRepository
	mail      Mailer
	logger    *slog.Logger
}

func NewNotificationHandler(users UserRepository, jobs JobRepository, companies CompanyRepository, mail Mailer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{users: users, jobs: jobs, companies: companies, mail: mail, logger: logger}
}

// Handle processes one message. Malformed events and events referring to
// deleted records are dropped; delivery failures are returned so the
// broker can redeliver.
func (h *NotificationHandler) Handle(ctx context.Context, msg mq.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		h.logger.Warn("dropping malformed notification", "message_id", msg.ID, "error", err)
		return nil
	}

	var (
		out mailer.Message
		err error
	)
	switch event.Type {
	case EventUserRegistered:
		out, err = h.welcome(ctx, event)
	case EventApplicationCreated:
		out, err = h.applicationCreated(ctx, event)
	case EventApplicationStatusUpdated:
		out, err = h.statusUpdated(ctx, event)
	default:
		h.logger.Debug("ignoring notification", "message_id", msg.ID, "type", event.Type)
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Info("dropping notification for missing record", "message_id", msg.ID, "type", event.Type)
		return nil
	}
	if err != nil {
		return oops.Code("notification_prepare_failed").With("type", event.Type).Wrap(err)
	}

	if err := h.mail.Send(ctx, out); err != nil {
		return oops.Code("notification_send_failed").
			With("type", event.Type).
			With("message_id", msg.ID).
			Wrap(err)
	}
	h.logger.Info("notification sent", "message_id", msg.ID, "type", event.Type)
	return nil
}

func (h *NotificationHandler) welcome(ctx context.Context, event Event) (mailer.Message, error) {
	user, err := h.users.GetByID(ctx, event.UserID)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Welcome(user.Email, user.FullName)
}

// applicationCreated notifies the job's creator.
func (h *NotificationHandler) applicationCreated(ctx context.Context, event Event) (mailer.Message, error) {
	job, err := h.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		return mailer.Message{}, err
	}
	owner, err := h.users.GetByID(ctx, job.CreatedBy)
	if err != nil {
		return mailer.Message{}, err
	}
	applicant, err := h.users.GetByID(ctx, event.UserID)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.ApplicationCreated(owner.Email, owner.FullName, applicant.FullName, job.Title)
}

// statusUpdated notifies the applicant.
func (h *NotificationHandler) statusUpdated(ctx context.Context, event Event) (mailer.Message, error) {
	applicant, err := h.users.GetByID(ctx, event.UserID)
	if err != nil {
		return mailer.Message{}, err
	}
	job, err := h.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		return mailer.Message{}, err
	}
	company, err := h.companies.GetByID(ctx, job.CompanyID)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.StatusUpdated(applicant.Email, applicant.FullName, job.Title, company.CompanyName, event.Status)
}
