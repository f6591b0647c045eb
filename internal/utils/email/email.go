package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/edupay/agency-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendJobFailureAlert notifies the ops address that a job run finished
// with at least one failed agency
func (s *Sender) SendJobFailureAlert(to, runID, errorMessage string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Detection Job Failed"

	body := fmt.Sprintf(
		"The installment overdue-detection job finished with failures.\n\n"+
			"Run ID: %s\n"+
			"Time: %s\n"+
			"Details: %s\n\n"+
			"Successful agencies were still processed; failed agencies will be\n"+
			"re-evaluated on the next scheduled run.\n",
		runID, time.Now().UTC().Format(time.RFC3339), errorMessage,
	)
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send job failure alert to %s: %v", to, err)
		return fmt.Errorf("failed to send job failure alert: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendOverdueDigest sends an agency a summary of installments that moved
// to overdue plus the count coming due within its reminder window
func (s *Sender) SendOverdueDigest(to, agencyName string, cutoffDate time.Time, overdueCount, dueSoonCount int64) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Installments Summary"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"%d installment(s) due on or before %s have been marked overdue.\n",
		agencyName, overdueCount, cutoffDate.Format("2006-01-02"),
	)
	if dueSoonCount > 0 {
		body += fmt.Sprintf(
			"%d further installment(s) are coming due within your reminder window.\n",
			dueSoonCount,
		)
	}
	body += "\nBest regards,\nAgency Service"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send overdue digest to %s: %v", to, err)
		return fmt.Errorf("failed to send overdue digest: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	return e.Send(addr, auth)
}
