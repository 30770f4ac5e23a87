package services

import (
	"context"
	"fmt"
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ObligationFilter задает условия выборки обязательств
type ObligationFilter struct {
	ContractID        *uint
	Status            models.ObligationStatus
	ResponsibleUserID *uint
	PeriodYear        *int
	PeriodMonth       *int
	DueOnOrBefore     *time.Time
}

// StatusChange описывает результат пересчета статуса
type StatusChange struct {
	ObligationID uint                    `json:"obligation_id"`
	From         models.ObligationStatus `json:"from"`
	To           models.ObligationStatus `json:"to"`
}

// Changed сообщает, изменился ли статус
func (c StatusChange) Changed() bool {
	return c.From != c.To
}

// ObligationSummary - обязательство вместе с поступлениями по нему
type ObligationSummary struct {
	Obligation  models.PaymentObligation `json:"obligation"`
	Receipts    []models.PaymentReceipt  `json:"receipts"`
	PaidTotal   decimal.Decimal          `json:"paid_total"`
	Outstanding decimal.Decimal          `json:"outstanding"`
}

// ObligationService генерирует обязательства по договорам и ведет их статусы
type ObligationService struct {
	db      *gorm.DB
	metrics *utils.Metrics
}

// NewObligationService создает новый экземпляр ObligationService
func NewObligationService(db *gorm.DB, metrics *utils.Metrics) *ObligationService {
	if metrics == nil {
		metrics = utils.NewMetrics()
	}
	return &ObligationService{
		db:      db,
		metrics: metrics,
	}
}

// EnsureObligationsWindow создает недостающие обязательства на monthsAhead
// периодов вперед, начиная с первого расчетного периода договора.
// Возвращает число созданных обязательств. При monthsAhead < 1 ничего не делает.
func (s *ObligationService) EnsureObligationsWindow(ctx context.Context, contractID uint, monthsAhead int) (int, error) {
	if monthsAhead < 1 {
		return 0, nil
	}

	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.EnsureObligationsWindowTx(tx, contractID, monthsAhead)
		created = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// EnsureObligationsWindowTx выполняет EnsureObligationsWindow в транзакции tx.
// Строка договора блокируется до конца транзакции, поэтому параллельные вызовы
// для одного договора выполняются по очереди. Уникальный индекс
// (contract_id, period_year, period_month) остается последней защитой от дублей:
// его нарушение возвращается как gorm.ErrDuplicatedKey.
func (s *ObligationService) EnsureObligationsWindowTx(tx *gorm.DB, contractID uint, monthsAhead int) (created int, err error) {
	if monthsAhead < 1 {
		return 0, nil
	}

	startTime := time.Now()
	defer func() { utils.LogOperation("ensure_obligations_window", startTime, err) }()

	var contract models.LeaseContract
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&contract, contractID).Error; err != nil {
		return 0, notFound(err, "договор")
	}

	// Ответственный по объекту нужен, только если на договоре он не переопределен
	if contract.ResponsibleUserID == nil {
		if err := tx.Select("id", "responsible_user_id").First(&contract.Property, contract.PropertyID).Error; err != nil {
			return 0, notFound(err, "объект")
		}
	}

	first := utils.FirstDuePeriod(contract.StartDate, contract.DueDay)
	targets := utils.MonthsRange(first, monthsAhead)

	var rows []struct {
		PeriodYear  int
		PeriodMonth int
	}
	if err := tx.Model(&models.PaymentObligation{}).
		Select("period_year", "period_month").
		Where("contract_id = ?", contract.ID).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("ошибка при получении существующих периодов: %w", err)
	}

	existing := make(map[utils.YearMonth]struct{}, len(rows))
	for _, r := range rows {
		existing[utils.YearMonth{Year: r.PeriodYear, Month: r.PeriodMonth}] = struct{}{}
	}

	responsible := copyUintPtr(contract.EffectiveResponsibleUserID())

	var missing []models.PaymentObligation
	for _, p := range targets {
		if _, ok := existing[p]; ok {
			continue
		}
		missing = append(missing, models.PaymentObligation{
			ContractID:          contract.ID,
			ResponsibleUserID:   responsible,
			PeriodYear:          p.Year,
			PeriodMonth:         p.Month,
			DueDate:             utils.DueDate(p, contract.DueDay),
			AmountDue:           contract.RentAmount,
			Status:              models.ObligationStatusPlanned,
			PenaltyRuleSnapshot: contract.PenaltyRuleSnapshot(),
		})
	}

	if len(missing) == 0 {
		return 0, nil
	}

	if err := tx.Omit(clause.Associations).Create(&missing).Error; err != nil {
		return 0, fmt.Errorf("ошибка при создании обязательств по договору %d: %w", contract.ID, err)
	}

	s.metrics.RecordObligationsCreated(len(missing))
	utils.LogInfo("Договор %d: создано обязательств %d (с %s)", contract.ID, len(missing), missing[0].Period())
	return len(missing), nil
}

// RecomputeStatus пересчитывает статус обязательства на дату today и сохраняет
// только поле status. Терминальные статусы не изменяются.
func (s *ObligationService) RecomputeStatus(ctx context.Context, obligationID uint, today time.Time) (StatusChange, error) {
	var change StatusChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.RecomputeStatusTx(tx, obligationID, today)
		change = c
		return err
	})
	return change, err
}

// RecomputeStatusTx выполняет RecomputeStatus в транзакции tx под блокировкой строки
func (s *ObligationService) RecomputeStatusTx(tx *gorm.DB, obligationID uint, today time.Time) (StatusChange, error) {
	var obligation models.PaymentObligation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&obligation, obligationID).Error; err != nil {
		return StatusChange{}, notFound(err, "обязательство")
	}

	change := StatusChange{
		ObligationID: obligation.ID,
		From:         obligation.Status,
		To:           DeriveStatus(obligation.Status, obligation.DueDate, today),
	}

	if !change.Changed() {
		s.metrics.RecordStatusRecompute("")
		return change, nil
	}

	if err := s.updateStatus(tx, obligation.ID, change.To); err != nil {
		return StatusChange{}, err
	}

	s.metrics.RecordStatusRecompute(string(change.To))
	utils.LogDebug("Обязательство %d: %s -> %s", obligation.ID, change.From, change.To)
	return change, nil
}

// SetStatus устанавливает статус вручную (например, CLOSED или DISPUTED)
func (s *ObligationService) SetStatus(ctx context.Context, obligationID uint, status models.ObligationStatus) (StatusChange, error) {
	if !status.Valid() {
		return StatusChange{}, validationErrorf("неизвестный статус обязательства %q", status)
	}

	var change StatusChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var obligation models.PaymentObligation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&obligation, obligationID).Error; err != nil {
			return notFound(err, "обязательство")
		}

		change = StatusChange{ObligationID: obligation.ID, From: obligation.Status, To: status}
		if !change.Changed() {
			return nil
		}
		return s.updateStatus(tx, obligation.ID, status)
	})
	if err != nil {
		return StatusChange{}, err
	}

	utils.LogInfo("Обязательство %d: статус установлен вручную %s -> %s", change.ObligationID, change.From, change.To)
	return change, nil
}

// updateStatus пишет только колонку status, не трогая updated_at и прочие поля
func (s *ObligationService) updateStatus(tx *gorm.DB, obligationID uint, status models.ObligationStatus) error {
	if err := tx.Model(&models.PaymentObligation{}).
		Where("id = ?", obligationID).
		UpdateColumn("status", status).Error; err != nil {
		return fmt.Errorf("ошибка при обновлении статуса обязательства %d: %w", obligationID, err)
	}
	return nil
}

// GetByID возвращает обязательство по ID
func (s *ObligationService) GetByID(ctx context.Context, id uint) (*models.PaymentObligation, error) {
	var obligation models.PaymentObligation
	if err := s.db.WithContext(ctx).First(&obligation, id).Error; err != nil {
		return nil, notFound(err, "обязательство")
	}
	return &obligation, nil
}

// List возвращает обязательства, упорядоченные по сроку оплаты
func (s *ObligationService) List(ctx context.Context, f ObligationFilter) ([]models.PaymentObligation, error) {
	q := s.db.WithContext(ctx).Model(&models.PaymentObligation{})

	if f.ContractID != nil {
		q = q.Where("contract_id = ?", *f.ContractID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ResponsibleUserID != nil {
		q = q.Where("responsible_user_id = ?", *f.ResponsibleUserID)
	}
	if f.PeriodYear != nil {
		q = q.Where("period_year = ?", *f.PeriodYear)
	}
	if f.PeriodMonth != nil {
		q = q.Where("period_month = ?", *f.PeriodMonth)
	}
	if f.DueOnOrBefore != nil {
		q = q.Where("due_date <= ?", utils.DateOnly(*f.DueOnOrBefore))
	}

	var obligations []models.PaymentObligation
	if err := q.Order("due_date ASC, id ASC").Find(&obligations).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении обязательств: %w", err)
	}
	return obligations, nil
}

// Summary возвращает обязательство, поступления по нему и их сумму.
// Сумма поступлений только отображается и на статус не влияет.
func (s *ObligationService) Summary(ctx context.Context, id uint) (*ObligationSummary, error) {
	obligation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var receipts []models.PaymentReceipt
	if err := s.db.WithContext(ctx).
		Where("obligation_id = ?", id).
		Order("received_at ASC, id ASC").
		Find(&receipts).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении поступлений: %w", err)
	}

	paid := decimal.Zero
	for _, r := range receipts {
		paid = paid.Add(r.Amount)
	}

	outstanding := obligation.AmountDue.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &ObligationSummary{
		Obligation:  *obligation,
		Receipts:    receipts,
		PaidTotal:   paid,
		Outstanding: outstanding,
	}, nil
}

func copyUintPtr(v *uint) *uint {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
