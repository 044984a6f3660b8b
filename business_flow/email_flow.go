package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/utils"
)

// Email templates
const (
	EmailTemplateWelcomeLandlord = "welcome_landlord"
	EmailTemplateWelcomeTenant   = "welcome_tenant"
)

// EmailMessage is one transactional email
type EmailMessage struct {
	Recipient string
	Subject   string
	Body      string
	Template  string
	EntityID  *string
}

// EmailFlow sends transactional email and keeps the delivery log
type EmailFlow interface {
	// Send delivers msg and records the attempt. The returned error is the delivery error, if any.
	Send(ctx context.Context, msg EmailMessage) error
	SendWelcome(ctx context.Context, template, recipient, fullName, entityID string)
	List(ctx context.Context, req *dto.ListEmailLogsRequest) (*dto.ListEmailLogsResponse, error)
}

type EmailFlowImpl struct {
	notifier services.NotificationService
	logRepo  repository.EmailLogRepository
}

func NewEmailFlow(notifier services.NotificationService, logRepo repository.EmailLogRepository) EmailFlow {
	return &EmailFlowImpl{
		notifier: notifier,
		logRepo:  logRepo,
	}
}

func (f *EmailFlowImpl) Send(ctx context.Context, msg EmailMessage) error {
	sendErr := f.notifier.SendEmail(msg.Recipient, msg.Subject, msg.Body)

	entry := &models.EmailLog{
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Template:  msg.Template,
		EntityID:  msg.EntityID,
		Status:    models.EmailStatusSent,
		SentAt:    utils.UTCNow(),
	}
	if sendErr != nil {
		entry.Status = models.EmailStatusFailed
		entry.Error = utils.ToPtr(sendErr.Error())
	}

	// The log row is written outside any caller transaction
	if err := f.logRepo.Save(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("failed to record email to %s: %v", msg.Recipient, err)
	}
	return sendErr
}

// SendWelcome greets a newly created party. Failures are logged and never reach the caller.
func (f *EmailFlowImpl) SendWelcome(ctx context.Context, template, recipient, fullName, entityID string) {
	msg := EmailMessage{
		Recipient: recipient,
		Subject:   "Welcome to EstateDesk",
		Body:      fmt.Sprintf("Hello %s,\n\nYour profile has been created. Your reference number is %s.", fullName, entityID),
		Template:  template,
		EntityID:  &entityID,
	}
	if err := f.Send(ctx, msg); err != nil {
		log.Printf("welcome email for %s failed: %v", entityID, err)
	}
}

func (f *EmailFlowImpl) List(ctx context.Context, req *dto.ListEmailLogsRequest) (*dto.ListEmailLogsResponse, error) {
	if req == nil {
		req = &dto.ListEmailLogsRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}

	filter := models.EmailLogFilter{
		Recipient: trimmedPtr(req.Recipient),
		Status:    trimmedPtr(req.Status),
		EntityID:  trimmedPtr(req.EntityID),
	}
	total, err := f.logRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("EMAIL_LOG_COUNT_FAILED", "Failed to count email logs", err)
	}
	rows, err := f.logRepo.ByFilter(ctx, filter, "sent_at DESC, id DESC", size, offset)
	if err != nil {
		return nil, NewBusinessError("EMAIL_LOG_LIST_FAILED", "Failed to list email logs", err)
	}

	items := make([]dto.EmailLogDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToEmailLogDTO(*r))
	}
	return &dto.ListEmailLogsResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}
