package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
)

type emailService struct {
	apiKey   string
	from     string
	fromName string
}

func NewEmailService(apiKey, from, fromName string) EmailService {
	return &emailService{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
	}
}

func (s *emailService) send(ctx context.Context, to, toName, subject, body string) error {
	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)

	from := mail.NewEmail(s.fromName, s.from)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) SendLoanApplicationConfirmation(ctx context.Context, app *domain.LoanApplication) error {
	subject := fmt.Sprintf("Loan application %s received", app.ApplicationNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour loan application %s for %s to %s has been received and will be routed for approval.\n\nTotal value: %d\n\nBest regards,\nThe Loandesk Team",
		app.ApplicantName, app.ApplicationNumber,
		app.StartDate.Format("2006-01-02"), app.EndDate.Format("2006-01-02"),
		app.TotalValueCents)
	return s.send(ctx, app.ApplicantEmail, app.ApplicantName, subject, body)
}

func (s *emailService) SendLoanStatusUpdate(ctx context.Context, app *domain.LoanApplication, previousStatus domain.ApplicationStatus) error {
	subject := fmt.Sprintf("Loan application %s: %s", app.ApplicationNumber, app.Status)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour loan application %s moved from %s to %s.",
		app.ApplicantName, app.ApplicationNumber, previousStatus, app.Status)
	if app.Status == domain.StatusRejected && app.RejectionReason != "" {
		body += fmt.Sprintf("\n\nReason: %s", app.RejectionReason)
	}
	body += "\n\nBest regards,\nThe Loandesk Team"
	return s.send(ctx, app.ApplicantEmail, app.ApplicantName, subject, body)
}

func (s *emailService) SendApprovalRequest(ctx context.Context, app *domain.LoanApplication, approver *domain.User, link string) error {
	subject := fmt.Sprintf("Approval needed: loan application %s", app.ApplicationNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\n%s (grade %d) requests assets valued at %d for %s to %s.\n\nReview and decide here (the link is valid for 7 days):\n\n%s\n\nBest regards,\nThe Loandesk Team",
		approver.Name, app.ApplicantName, app.ApplicantGrade, app.TotalValueCents,
		app.StartDate.Format("2006-01-02"), app.EndDate.Format("2006-01-02"), link)
	return s.send(ctx, approver.Email, approver.Name, subject, body)
}

func (s *emailService) SendReturnReminder(ctx context.Context, app *domain.LoanApplication) error {
	subject := fmt.Sprintf("Return overdue: loan application %s", app.ApplicationNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\nThe assets on loan application %s were due back on %s. Please arrange their return at %s.\n\nBest regards,\nThe Loandesk Team",
		app.ApplicantName, app.ApplicationNumber,
		app.EndDate.Format("2006-01-02"), app.ReturnLocation)
	return s.send(ctx, app.ApplicantEmail, app.ApplicantName, subject, body)
}

func (s *emailService) SendSubmissionClaimed(ctx context.Context, email, name, reference string) error {
	subject := fmt.Sprintf("Submission %s linked to your account", reference)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour guest submission %s is now linked to your account and visible in the portal.\n\nBest regards,\nThe Loandesk Team",
		name, reference)
	return s.send(ctx, email, name, subject, body)
}
