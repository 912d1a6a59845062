package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/pkg/jobs"
	"github.com/swiftdrive/driveschool-api/pkg/mailer"
)

const (
	jobWelcomeEmail = "welcome_email"
	jobReceiptEmail = "receipt_email"
)

// NotificationService sends transactional email off the request path. Each
// call enqueues a job; a worker pool delivers with retries. Students with
// no email address are skipped silently.
type NotificationService struct {
	sender mailer.Sender
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its delivery queue. Call
// Start before use and Stop on shutdown.
func NewNotificationService(sender mailer.Sender, opts jobs.Options, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, logger: logger}
	s.queue = jobs.New("notifications", s.deliver, opts)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains and stops the delivery workers.
func (s *NotificationService) Stop() { s.queue.Stop() }

// StudentRegistered queues a welcome email for a newly enrolled student.
func (s *NotificationService) StudentRegistered(student *models.Student, courseName string) {
	if student.Email == "" {
		return
	}
	msg := mailer.Message{
		ToName:  student.FirstName + " " + student.LastName,
		ToEmail: student.Email,
		Subject: "Welcome to your driving course",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYou are enrolled in %s. Your course fee is KES %d. We look forward to your first lesson.\n",
			student.FirstName, courseName, student.CourseFee,
		),
	}
	s.enqueue(jobWelcomeEmail, msg)
}

// PaymentReceived queues a receipt email after a payment is applied.
func (s *NotificationService) PaymentReceived(student *models.StudentDetail, payment *models.Payment, balance int64) {
	if student.Email == "" {
		return
	}
	msg := mailer.Message{
		ToName:  student.FirstName + " " + student.LastName,
		ToEmail: student.Email,
		Subject: "Payment received — " + payment.ReceiptNumber,
		Text: fmt.Sprintf(
			"Hi %s,\n\nWe received your payment of KES %d (receipt %s). Your remaining balance is KES %d.\n",
			student.FirstName, payment.Amount, payment.ReceiptNumber, balance,
		),
	}
	s.enqueue(jobReceiptEmail, msg)
}

func (s *NotificationService) enqueue(kind string, msg mailer.Message) {
	err := s.queue.Enqueue(jobs.Job{Type: kind, Payload: msg})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("type", kind),
			zap.String("to", msg.ToEmail),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("notification job has unexpected payload", zap.String("type", job.Type))
		return nil
	}
	return s.sender.Send(msg)
}
