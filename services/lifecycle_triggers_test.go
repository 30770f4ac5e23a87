package services

import (
	"context"
	"errors"
	"testing"

	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type wiring struct {
	*fixture
	bus       *EventBus
	triggers  *LifecycleTriggers
	contracts *ContractService
	receipts  *ReceiptService
}

func newWiring(t *testing.T, today string) *wiring {
	t.Helper()

	f := newFixture(t)
	day, err := utils.ParseDate(today)
	require.NoError(t, err)

	bus := NewEventBus()
	triggers := NewLifecycleTriggers(f.obligations, utils.FixedClock{Date: day}, 2)
	triggers.Register(bus)

	return &wiring{
		fixture:   f,
		bus:       bus,
		triggers:  triggers,
		contracts: NewContractService(f.db, bus),
		receipts:  NewReceiptService(f.db, bus, f.metrics),
	}
}

func (w *wiring) dto(status models.ContractStatus) ContractDTO {
	return ContractDTO{
		PropertyID:    w.property.ID,
		TenantID:      w.tenant.ID,
		Status:        status,
		StartDate:     "2024-01-15",
		RentAmount:    decimal.RequireFromString("1000"),
		DueDay:        1,
		DepositAmount: decimal.RequireFromString("2000"),
		PenaltyRule:   map[string]interface{}{"rate": 0.1},
	}
}

func TestTriggers_ActiveContractGetsWindow(t *testing.T) {
	w := newWiring(t, "2024-01-20")

	c, err := w.contracts.Create(context.Background(), w.dto(models.ContractStatusActive))
	require.NoError(t, err)

	got := w.listObligations(t, c.ID)
	require.Len(t, got, 2)
	assert.Equal(t, utils.YearMonth{Year: 2024, Month: 2}, got[0].Period())
	assert.Equal(t, utils.YearMonth{Year: 2024, Month: 3}, got[1].Period())
}

func TestTriggers_DraftContractGetsNothing(t *testing.T) {
	w := newWiring(t, "2024-01-20")

	c, err := w.contracts.Create(context.Background(), w.dto(models.ContractStatusDraft))
	require.NoError(t, err)
	assert.Empty(t, w.listObligations(t, c.ID))

	// активация через смену статуса
	_, err = w.contracts.SetStatus(context.Background(), c.ID, models.ContractStatusActive)
	require.NoError(t, err)
	assert.Len(t, w.listObligations(t, c.ID), 2)
}

func TestTriggers_ResaveWhileActiveAddsNothing(t *testing.T) {
	w := newWiring(t, "2024-01-20")
	ctx := context.Background()

	c, err := w.contracts.Create(ctx, w.dto(models.ContractStatusActive))
	require.NoError(t, err)

	dto := w.dto(models.ContractStatusActive)
	dto.RentAmount = decimal.RequireFromString("1500")
	_, err = w.contracts.Update(ctx, c.ID, dto)
	require.NoError(t, err)

	got := w.listObligations(t, c.ID)
	require.Len(t, got, 2)
	for _, o := range got {
		assert.True(t, o.AmountDue.Equal(decimal.RequireFromString("1000")))
	}
}

func TestTriggers_SuspendKeepsObligations(t *testing.T) {
	w := newWiring(t, "2024-01-20")
	ctx := context.Background()

	c, err := w.contracts.Create(ctx, w.dto(models.ContractStatusActive))
	require.NoError(t, err)

	for _, status := range []models.ContractStatus{models.ContractStatusSuspended, models.ContractStatusTerminating, models.ContractStatusClosed} {
		_, err = w.contracts.SetStatus(ctx, c.ID, status)
		require.NoError(t, err)
		assert.Len(t, w.listObligations(t, c.ID), 2, string(status))
	}
}

func TestTriggers_ReceiptRecomputesStatus(t *testing.T) {
	w := newWiring(t, "2024-02-10")
	ctx := context.Background()

	c, err := w.contracts.Create(ctx, w.dto(models.ContractStatusActive))
	require.NoError(t, err)
	obligations := w.listObligations(t, c.ID)
	feb, mar := obligations[0], obligations[1]

	r, err := w.receipts.Create(ctx, feb.ID, &w.manager.ID, ReceiptDTO{Amount: decimal.RequireFromString("300")})
	require.NoError(t, err)
	assert.Equal(t, models.ObligationStatusOverdue, w.reloadObligation(t, feb.ID).Status)
	assert.Equal(t, models.ObligationStatusPlanned, w.reloadObligation(t, mar.ID).Status)

	// удаление тоже запускает пересчет
	_, err = w.obligations.SetStatus(ctx, feb.ID, models.ObligationStatusDisputed)
	require.NoError(t, err)
	require.NoError(t, w.receipts.Delete(ctx, r.ID))
	assert.Equal(t, models.ObligationStatusOverdue, w.reloadObligation(t, feb.ID).Status)
}

func TestTriggers_ReceiptOnTerminalObligation(t *testing.T) {
	w := newWiring(t, "2024-05-01")
	ctx := context.Background()

	c, err := w.contracts.Create(ctx, w.dto(models.ContractStatusActive))
	require.NoError(t, err)
	o := w.listObligations(t, c.ID)[0]

	_, err = w.obligations.SetStatus(ctx, o.ID, models.ObligationStatusPaidByTenant)
	require.NoError(t, err)

	_, err = w.receipts.Create(ctx, o.ID, nil, ReceiptDTO{Amount: decimal.RequireFromString("1000")})
	require.NoError(t, err)
	assert.Equal(t, models.ObligationStatusPaidByTenant, w.reloadObligation(t, o.ID).Status)
}

func TestTriggers_RetryOnDuplicatePeriod(t *testing.T) {
	w := newWiring(t, "2024-01-20")

	attempts := 0
	ensure := w.triggers.ensure
	w.triggers.ensure = func(tx *gorm.DB, contractID uint, monthsAhead int) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, gorm.ErrDuplicatedKey
		}
		return ensure(tx, contractID, monthsAhead)
	}

	c, err := w.contracts.Create(context.Background(), w.dto(models.ContractStatusActive))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, w.listObligations(t, c.ID), 2)
}

func TestTriggers_GiveUpRollsBackSave(t *testing.T) {
	w := newWiring(t, "2024-01-20")

	attempts := 0
	w.triggers.ensure = func(tx *gorm.DB, contractID uint, monthsAhead int) (int, error) {
		attempts++
		return 0, gorm.ErrDuplicatedKey
	}

	_, err := w.contracts.Create(context.Background(), w.dto(models.ContractStatusActive))
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, DefaultEnsureAttempts, attempts)

	var count int64
	require.NoError(t, w.db.Model(&models.LeaseContract{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTriggers_OtherErrorsAreNotRetried(t *testing.T) {
	w := newWiring(t, "2024-01-20")

	boom := errors.New("storage down")
	attempts := 0
	w.triggers.ensure = func(tx *gorm.DB, contractID uint, monthsAhead int) (int, error) {
		attempts++
		return 0, boom
	}

	_, err := w.contracts.Create(context.Background(), w.dto(models.ContractStatusActive))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestEventBus_OrderAndAbort(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	bus.Subscribe(EventReceiptCreated, func(ctx context.Context, tx *gorm.DB, ev Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(EventReceiptCreated, func(ctx context.Context, tx *gorm.DB, ev Event) error {
		calls = append(calls, "second")
		return errors.New("fail")
	})
	bus.Subscribe(EventReceiptCreated, func(ctx context.Context, tx *gorm.DB, ev Event) error {
		calls = append(calls, "third")
		return nil
	})

	err := bus.Publish(context.Background(), nil, ReceiptCreated{ReceiptID: 1, ObligationID: 2})
	assert.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	// на другие события обработчики не подписаны
	assert.NoError(t, bus.Publish(context.Background(), nil, ReceiptDeleted{ReceiptID: 1, ObligationID: 2}))
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.Publish(context.Background(), nil, ContractSaved{ContractID: 1}))
}

func TestEventBus_HandlerErrorRollsBackWrite(t *testing.T) {
	f := newFixture(t)
	bus := NewEventBus()
	bus.Subscribe(EventContractSaved, func(ctx context.Context, tx *gorm.DB, ev Event) error {
		return errors.New("rejected")
	})
	contracts := NewContractService(f.db, bus)

	_, err := contracts.Create(context.Background(), ContractDTO{
		PropertyID: f.property.ID,
		TenantID:   f.tenant.ID,
		StartDate:  "2024-01-01",
		RentAmount: decimal.RequireFromString("100"),
		DueDay:     1,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.LeaseContract{}).Count(&count).Error)
	assert.Zero(t, count)
}
