package services

import (
	"context"
	"errors"
	"fmt"

	"leasekeeper/models"
	"leasekeeper/utils"

	"gorm.io/gorm"
)

// DefaultEnsureAttempts - сколько раз триггер договора повторяет генерацию
// после конфликта уникального индекса
const DefaultEnsureAttempts = 3

// LifecycleTriggers связывает события записи с генератором обязательств
// и пересчетом статусов
type LifecycleTriggers struct {
	obligations *ObligationService
	clock       utils.Clock
	monthsAhead int
	maxAttempts int

	ensure func(tx *gorm.DB, contractID uint, monthsAhead int) (int, error)
}

// NewLifecycleTriggers создает триггеры; monthsAhead - горизонт генерации
func NewLifecycleTriggers(obligations *ObligationService, clock utils.Clock, monthsAhead int) *LifecycleTriggers {
	if clock == nil {
		clock = &utils.SystemClock{}
	}
	return &LifecycleTriggers{
		obligations: obligations,
		clock:       clock,
		monthsAhead: monthsAhead,
		maxAttempts: DefaultEnsureAttempts,
		ensure:      obligations.EnsureObligationsWindowTx,
	}
}

// Register подписывает триггеры на события шины
func (t *LifecycleTriggers) Register(bus *EventBus) {
	bus.Subscribe(EventContractSaved, t.onContractSaved)
	bus.Subscribe(EventReceiptCreated, t.onReceiptChanged)
	bus.Subscribe(EventReceiptDeleted, t.onReceiptChanged)
}

// onContractSaved достраивает окно обязательств для активного договора.
// Генерация выполняется в точке сохранения: если параллельная транзакция уже
// вставила тот же период, откатываемся к точке сохранения и повторяем.
func (t *LifecycleTriggers) onContractSaved(ctx context.Context, tx *gorm.DB, ev Event) error {
	saved, ok := ev.(ContractSaved)
	if !ok {
		return fmt.Errorf("неожиданное событие %T", ev)
	}
	if saved.Status != models.ContractStatusActive {
		return nil
	}

	var err error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = tx.Transaction(func(sp *gorm.DB) error {
			_, err := t.ensure(sp, saved.ContractID, t.monthsAhead)
			return err
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		utils.LogInfo("Договор %d: конфликт периода при генерации, попытка %d из %d", saved.ContractID, attempt, t.maxAttempts)
	}
	return err
}

// onReceiptChanged пересчитывает статус обязательства после создания или
// удаления поступления
func (t *LifecycleTriggers) onReceiptChanged(ctx context.Context, tx *gorm.DB, ev Event) error {
	var obligationID uint
	switch e := ev.(type) {
	case ReceiptCreated:
		obligationID = e.ObligationID
	case ReceiptDeleted:
		obligationID = e.ObligationID
	default:
		return fmt.Errorf("неожиданное событие %T", ev)
	}

	_, err := t.obligations.RecomputeStatusTx(tx, obligationID, t.clock.Today())
	return err
}
