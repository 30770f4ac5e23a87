package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"

	"gorm.io/gorm"
)

// SweepResult - итог одного прохода планировщика
type SweepResult struct {
	Today              time.Time `json:"today"`
	ContractsProcessed int       `json:"contracts_processed"`
	ObligationsCreated int       `json:"obligations_created"`
	StatusesChanged    int       `json:"statuses_changed"`
	BecameOverdue      int       `json:"became_overdue"`
	NotificationsSent  int       `json:"notifications_sent"`
}

// ObligationSweepService периодически достраивает окна обязательств по
// активным договорам до текущего месяца и пересчитывает статусы по
// наступившим срокам. Просрочки рассылаются ответственным.
type ObligationSweepService struct {
	db          *gorm.DB
	obligations *ObligationService
	clock       utils.Clock
	notifier    Notifier
	metrics     *utils.Metrics
	monthsAhead int
}

// NewObligationSweepService создает новый экземпляр ObligationSweepService.
// notifier может быть nil, тогда письма не отправляются.
func NewObligationSweepService(db *gorm.DB, obligations *ObligationService, clock utils.Clock, notifier Notifier, metrics *utils.Metrics, monthsAhead int) *ObligationSweepService {
	if metrics == nil {
		metrics = utils.NewMetrics()
	}
	return &ObligationSweepService{
		db:          db,
		obligations: obligations,
		clock:       clock,
		notifier:    notifier,
		metrics:     metrics,
		monthsAhead: monthsAhead,
	}
}

// Start запускает проходы с интервалом interval до отмены ctx
func (s *ObligationSweepService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					utils.LogError("Ошибка при обработке обязательств: %v", err)
				}
			}
		}
	}()
}

// RunOnce выполняет один проход на дату, которую возвращают часы сервиса.
// Ошибка по одному договору или обязательству не останавливает проход.
func (s *ObligationSweepService) RunOnce(ctx context.Context) (*SweepResult, error) {
	startTime := time.Now()
	today := s.clock.Today()
	result := &SweepResult{Today: today}

	var errs []error
	if err := s.ensureWindows(ctx, today, result); err != nil {
		errs = append(errs, err)
	}
	if err := s.recomputeDue(ctx, today, result); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	s.metrics.RecordSweep()
	utils.LogOperation("obligation_sweep", startTime, err)
	utils.LogInfo("Проход за %s: договоров %d, создано %d, статусов изменено %d, просрочено %d, писем %d",
		today.Format(time.DateOnly), result.ContractsProcessed, result.ObligationsCreated,
		result.StatusesChanged, result.BecameOverdue, result.NotificationsSent)
	return result, err
}

// ensureWindows достраивает окно для каждого активного договора в своей транзакции
func (s *ObligationSweepService) ensureWindows(ctx context.Context, today time.Time, result *SweepResult) error {
	var contracts []models.LeaseContract
	if err := s.db.WithContext(ctx).
		Select("id", "start_date", "end_date", "due_day").
		Where("status = ?", models.ContractStatusActive).
		Order("id ASC").
		Find(&contracts).Error; err != nil {
		return fmt.Errorf("ошибка при получении активных договоров: %w", err)
	}

	var errs []error
	for i := range contracts {
		c := &contracts[i]
		n, err := s.obligations.EnsureObligationsWindow(ctx, c.ID, RollingWindow(c, today, s.monthsAhead))
		if err != nil {
			errs = append(errs, fmt.Errorf("договор %d: %w", c.ID, err))
			continue
		}
		result.ContractsProcessed++
		result.ObligationsCreated += n
	}
	return errors.Join(errs...)
}

// RollingWindow возвращает длину окна, которое покрывает период today и
// monthsAhead-1 следующих, но не дальше периода окончания договора.
// Окно никогда не короче monthsAhead.
func RollingWindow(c *models.LeaseContract, today time.Time, monthsAhead int) int {
	first := utils.FirstDuePeriod(c.StartDate, c.DueDay)
	last := utils.AddMonths(utils.PeriodOf(today), monthsAhead-1)
	if c.EndDate != nil {
		if end := utils.PeriodOf(*c.EndDate); end.Before(last) {
			last = end
		}
	}

	n := utils.MonthsBetween(first, last) + 1
	if n < monthsAhead {
		return monthsAhead
	}
	return n
}

// recomputeDue пересчитывает статусы, которые зависят только от даты:
// PLANNED и DUE со сроком не позже today. Статусы, выставленные вручную
// (PARTIAL, DISPUTED), планировщик не трогает.
func (s *ObligationSweepService) recomputeDue(ctx context.Context, today time.Time, result *SweepResult) error {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.PaymentObligation{}).
		Where("status IN ? AND due_date <= ?", []models.ObligationStatus{models.ObligationStatusPlanned, models.ObligationStatusDue}, today).
		Order("due_date ASC, id ASC").
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("ошибка при получении обязательств к пересчету: %w", err)
	}

	var errs []error
	for _, id := range ids {
		change, err := s.obligations.RecomputeStatus(ctx, id, today)
		if err != nil {
			errs = append(errs, fmt.Errorf("обязательство %d: %w", id, err))
			continue
		}
		if !change.Changed() {
			continue
		}
		result.StatusesChanged++

		if change.To != models.ObligationStatusOverdue {
			continue
		}
		result.BecameOverdue++

		sent, err := s.notifyOverdue(ctx, id)
		if err != nil {
			// Письмо не критично: статус уже сохранен
			utils.LogError("Не удалось отправить уведомление по обязательству %d: %v", id, err)
			continue
		}
		if sent {
			result.NotificationsSent++
		}
	}
	return errors.Join(errs...)
}

// notifyOverdue отправляет письмо ответственному по обязательству.
// Возвращает false, если отправлять некому.
func (s *ObligationSweepService) notifyOverdue(ctx context.Context, obligationID uint) (bool, error) {
	if s.notifier == nil {
		return false, nil
	}

	var o models.PaymentObligation
	if err := s.db.WithContext(ctx).
		Preload("ResponsibleUser").
		Preload("Contract.Property").
		Preload("Contract.Tenant").
		First(&o, obligationID).Error; err != nil {
		return false, notFound(err, "обязательство")
	}
	if o.ResponsibleUser == nil || o.ResponsibleUser.Email == "" {
		return false, nil
	}

	notice := OverdueNotice{
		To:           o.ResponsibleUser.Email,
		Recipient:    o.ResponsibleUser.FullName(),
		ObligationID: o.ID,
		ContractID:   o.ContractID,
		PropertyName: o.Contract.Property.Name,
		TenantName:   o.Contract.Tenant.Name,
		Period:       o.Period().String(),
		DueDate:      o.DueDate,
		AmountDue:    o.AmountDue,
	}
	if err := s.notifier.SendOverdueNotification(notice); err != nil {
		return false, err
	}
	return true, nil
}
