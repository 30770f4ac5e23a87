package services

import (
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"
)

// DeriveStatus вычисляет статус обязательства по дате.
// Терминальные статусы (CLOSED, PAID_BY_TENANT, WRITTEN_OFF) не меняются.
// Поступления не учитываются: правило для PARTIAL не определено.
func DeriveStatus(current models.ObligationStatus, dueDate, today time.Time) models.ObligationStatus {
	if current.IsTerminal() {
		return current
	}

	due := utils.DateOnly(dueDate)
	now := utils.DateOnly(today)

	switch {
	case now.Before(due):
		return models.ObligationStatusPlanned
	case now.Equal(due):
		return models.ObligationStatusDue
	default:
		return models.ObligationStatusOverdue
	}
}
