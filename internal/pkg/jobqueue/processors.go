package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
)

// providerJobTimeout bounds a single provider job; the client timeout applies per request.
const providerJobTimeout = 30 * time.Second

// BillingOps is the part of the billing service the workers call.
type BillingOps interface {
	ProvisionCustomer(ctx context.Context, userID uint, email string) (*models.Subscriber, error)
	PushLocalState(ctx context.Context, userID uint) error
}

func (q *Queue) handle(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeCreateCustomer:
		return q.createCustomer(ctx, job)
	case JobTypePushLocalState:
		return q.pushLocalState(ctx, job)
	case JobTypeSendMail:
		return q.sendMail(job)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (q *Queue) createCustomer(ctx context.Context, job *Job) error {
	if q.billing == nil {
		return errors.New("billing service not configured")
	}
	p, err := decodePayload[CreateCustomerPayload](job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, providerJobTimeout)
	defer cancel()

	sub, err := q.billing.ProvisionCustomer(ctx, p.UserID, p.Email)
	if errors.Is(err, billing.ErrNotFound) {
		// The user is gone; retrying cannot help.
		log.Warnf("[JobQueue] create_customer: no subscriber for user %d, dropping job %s", p.UserID, job.ID)
		return nil
	}
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Provider customer %s ready for user %d", sub.CustomerID(), p.UserID)
	return nil
}

func (q *Queue) pushLocalState(ctx context.Context, job *Job) error {
	if q.billing == nil {
		return errors.New("billing service not configured")
	}
	p, err := decodePayload[PushLocalStatePayload](job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, providerJobTimeout)
	defer cancel()

	err = q.billing.PushLocalState(ctx, p.UserID)
	if errors.Is(err, billing.ErrNotFound) {
		log.Warnf("[JobQueue] push_local_state: no subscriber for user %d, dropping job %s", p.UserID, job.ID)
		return nil
	}
	return err
}

func (q *Queue) sendMail(job *Job) error {
	if q.mailer == nil {
		return errors.New("mailer not configured")
	}
	p, err := decodePayload[SendMailPayload](job)
	if err != nil {
		return err
	}
	if len(p.To) == 0 {
		log.Warnf("[JobQueue] send_mail job %s has no recipients, skipping", job.ID)
		return nil
	}
	return q.mailer.Send(p.To, p.Subject, p.Body)
}
