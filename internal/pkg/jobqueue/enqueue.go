package jobqueue

// Enqueuer is used by HTTP handlers to schedule background work.
type Enqueuer interface {
	EnqueueCreateCustomer(userID uint, email string) error
	EnqueuePushLocalState(userID uint) error
	EnqueueSendMail(to []string, subject, body string) error
}

var _ Enqueuer = (*Queue)(nil)

func (q *Queue) EnqueueCreateCustomer(userID uint, email string) error {
	_, err := q.EnqueueJob(JobTypeCreateCustomer, CreateCustomerPayload{UserID: userID, Email: email})
	return err
}

func (q *Queue) EnqueuePushLocalState(userID uint) error {
	_, err := q.EnqueueJob(JobTypePushLocalState, PushLocalStatePayload{UserID: userID})
	return err
}

// EnqueueSendMail is a no-op without recipients.
func (q *Queue) EnqueueSendMail(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	_, err := q.EnqueueJob(JobTypeSendMail, SendMailPayload{To: to, Subject: subject, Body: body})
	return err
}
