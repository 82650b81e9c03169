package jobs

import (
	"context"
	"fmt"
	"time"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
)

// SendApprovalReminders re-sends the approval link for applications still
// under review whose token expires within the next day.
func (jr *JobRunner) SendApprovalReminders() {
	jr.runWithRecovery("SendApprovalReminders", func() {
		ctx := context.Background()
		deadline := time.Now().Add(24 * time.Hour)

		apps, err := jr.store.ListUnderReviewExpiringBefore(ctx, deadline)
		if err != nil {
			logger.Error("Failed to list expiring reviews", "error", err)
			return
		}

		count := 0
		for i := range apps {
			app := &apps[i]
			if app.ApproverID == nil {
				continue
			}
			approver, err := jr.store.UserRepository.GetByID(ctx, *app.ApproverID)
			if err != nil {
				logger.Error("Failed to load approver",
					"application", app.ApplicationNumber, "approver_id", *app.ApproverID, "error", err)
				continue
			}
			link := fmt.Sprintf("%s/approval/%s", jr.config.Approval.LinkBaseURL, app.ApprovalToken)
			if err := jr.services.Email.SendApprovalRequest(ctx, app, approver, link); err != nil {
				logger.Error("Failed to send approval reminder",
					"application", app.ApplicationNumber, "error", err)
				continue
			}
			count++
		}

		logger.Info("Sent approval reminders", "count", count)
	})
}

// SendReturnReminders notifies applicants whose loans are past the agreed
// end date and still in use.
func (jr *JobRunner) SendReturnReminders() {
	jr.runWithRecovery("SendReturnReminders", func() {
		ctx := context.Background()

		apps, err := jr.store.ListInUsePastEndDate(ctx, time.Now())
		if err != nil {
			logger.Error("Failed to list overdue loans", "error", err)
			return
		}

		count := 0
		for i := range apps {
			app := &apps[i]
			if err := jr.services.Email.SendReturnReminder(ctx, app); err != nil {
				logger.Error("Failed to send return reminder",
					"application", app.ApplicationNumber, "error", err)
				continue
			}
			if userID, ok := app.Applicant.UserID(); ok {
				note := &domain.Notification{
					UserID:  userID,
					Title:   "Return overdue",
					Message: fmt.Sprintf("Loan application %s is past its end date %s", app.ApplicationNumber, app.EndDate.Format("2006-01-02")),
					Attributes: map[string]string{
						"type":           "RETURN_OVERDUE",
						"application_id": fmt.Sprintf("%d", app.ID),
					},
				}
				_ = jr.store.NotificationRepository.Create(ctx, note)
			}
			count++
		}

		logger.Info("Sent return reminders", "count", count)
	})
}

// ReleaseStaleReservations frees assets stuck in RESERVED after their
// application left the approval pipeline without an explicit release.
func (jr *JobRunner) ReleaseStaleReservations() {
	jr.runWithRecovery("ReleaseStaleReservations", func() {
		ctx := context.Background()

		assetIDs, err := jr.store.ListReservedWithoutActiveApplication(ctx)
		if err != nil {
			logger.Error("Failed to list stale reservations", "error", err)
			return
		}

		count := 0
		for _, id := range assetIDs {
			ok, err := jr.services.Availability.ReleaseReservation(ctx, id, 0)
			if err != nil {
				logger.Error("Failed to release stale reservation", "asset_id", id, "error", err)
				continue
			}
			if ok {
				count++
			}
		}

		logger.Info("Released stale reservations", "count", count, "candidates", len(assetIDs))
	})
}
