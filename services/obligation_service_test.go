package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestEnsureObligationsWindow_StartAfterDueDay(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 15), 1, "1000.00", models.ContractStatusActive)

	created, err := f.obligations.EnsureObligationsWindow(context.Background(), c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	got := f.listObligations(t, c.ID)
	require.Len(t, got, 2)

	assert.Equal(t, utils.YearMonth{Year: 2024, Month: 2}, got[0].Period())
	assert.Equal(t, utils.YearMonth{Year: 2024, Month: 3}, got[1].Period())
	assert.True(t, got[0].DueDate.Equal(date(2024, 2, 1)), "due %v", got[0].DueDate)
	assert.True(t, got[1].DueDate.Equal(date(2024, 3, 1)), "due %v", got[1].DueDate)

	for _, o := range got {
		assert.True(t, o.AmountDue.Equal(decimal.RequireFromString("1000")), "amount %s", o.AmountDue)
		assert.Equal(t, models.ObligationStatusPlanned, o.Status)
		require.NotNil(t, o.ResponsibleUserID)
		assert.Equal(t, f.manager.ID, *o.ResponsibleUserID)
		assertPenaltyRule(t, `{"rate": 0.1}`, o)
	}
}

func TestEnsureObligationsWindow_StartOnDueDay(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 15), 15, "500", models.ContractStatusActive)

	_, err := f.obligations.EnsureObligationsWindow(context.Background(), c.ID, 1)
	require.NoError(t, err)

	got := f.listObligations(t, c.ID)
	require.Len(t, got, 1)
	assert.Equal(t, utils.YearMonth{Year: 2024, Month: 1}, got[0].Period())
	assert.True(t, got[0].DueDate.Equal(date(2024, 1, 15)))
}

func TestEnsureObligationsWindow_Idempotent(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 15), 1, "1000", models.ContractStatusActive)
	ctx := context.Background()

	first, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, first)

	second, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	assert.Len(t, f.listObligations(t, c.ID), 3)
}

func TestEnsureObligationsWindow_ExactlyKPeriods(t *testing.T) {
	for k := 1; k <= 14; k++ {
		f := newFixture(t)
		c := f.contract(t, date(2024, 11, 20), 5, "750.50", models.ContractStatusActive)

		_, err := f.obligations.EnsureObligationsWindow(context.Background(), c.ID, k)
		require.NoError(t, err)

		got := f.listObligations(t, c.ID)
		require.Len(t, got, k, "k=%d", k)

		seen := map[utils.YearMonth]bool{}
		expected := utils.YearMonth{Year: 2024, Month: 12}
		for _, o := range got {
			p := o.Period()
			assert.False(t, seen[p], "duplicate period %s", p)
			seen[p] = true

			assert.Equal(t, expected, p)
			assert.Equal(t, 5, o.DueDate.Day())
			assert.Equal(t, p.Month, int(o.DueDate.Month()))
			assert.Equal(t, p.Year, o.DueDate.Year())
			expected = utils.AddMonths(expected, 1)
		}
	}
}

func TestEnsureObligationsWindow_NonPositiveWindowIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// несуществующий договор: хранилище не трогается вовсе
	for _, n := range []int{0, -1, -12} {
		created, err := f.obligations.EnsureObligationsWindow(ctx, 9999, n)
		assert.NoError(t, err)
		assert.Equal(t, 0, created)
	}
}

func TestEnsureObligationsWindow_UnknownContract(t *testing.T) {
	f := newFixture(t)

	_, err := f.obligations.EnsureObligationsWindow(context.Background(), 9999, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureObligationsWindow_GrowingWindowOnlyAdds(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 10, "1000", models.ContractStatusActive)
	ctx := context.Background()

	_, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 2)
	require.NoError(t, err)
	before := f.listObligations(t, c.ID)

	created, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	after := f.listObligations(t, c.ID)
	require.Len(t, after, 5)
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.True(t, before[i].UpdatedAt.Equal(after[i].UpdatedAt))
	}
}

func TestEnsureObligationsWindow_SnapshotsAreNotRetroactive(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 10, "1000", models.ContractStatusActive)
	ctx := context.Background()

	_, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 2)
	require.NoError(t, err)

	other := models.User{FirstName: "Иван", LastName: "Сидоров", Email: "ivan@example.com", Password: "hash"}
	require.NoError(t, f.db.Create(&other).Error)

	require.NoError(t, f.db.Model(&models.LeaseContract{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"rent_amount":         decimal.RequireFromString("1200"),
		"penalty_rule":        datatypes.JSONMap{"rate": 0.2},
		"responsible_user_id": other.ID,
	}).Error)

	_, err = f.obligations.EnsureObligationsWindow(ctx, c.ID, 4)
	require.NoError(t, err)

	got := f.listObligations(t, c.ID)
	require.Len(t, got, 4)

	for _, o := range got[:2] {
		assert.True(t, o.AmountDue.Equal(decimal.RequireFromString("1000")))
		assertPenaltyRule(t, `{"rate": 0.1}`, o)
		assert.Equal(t, f.manager.ID, *o.ResponsibleUserID)
	}
	for _, o := range got[2:] {
		assert.True(t, o.AmountDue.Equal(decimal.RequireFromString("1200")))
		assertPenaltyRule(t, `{"rate": 0.2}`, o)
		assert.Equal(t, other.ID, *o.ResponsibleUserID)
	}
}

func TestEnsureObligationsWindow_NoResponsibleUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.Property{}).Where("id = ?", f.property.ID).
		Update("responsible_user_id", nil).Error)
	c := f.contract(t, date(2024, 1, 1), 10, "1000", models.ContractStatusActive)

	_, err := f.obligations.EnsureObligationsWindow(context.Background(), c.ID, 1)
	require.NoError(t, err)

	got := f.listObligations(t, c.ID)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ResponsibleUserID)
}

// Пул тестовой базы ограничен одним соединением, поэтому вызовы выполняются
// по очереди. Тест проверяет итог последовательных пересекающихся окон;
// защиту уникальным индексом проверяет TestObligation_UniquePeriodConstraint.
func TestEnsureObligationsWindow_ConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 15), 1, "1000", models.ContractStatusActive)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]int, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.obligations.EnsureObligationsWindow(ctx, c.ID, 3+i%2)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range results {
		require.NoError(t, errs[i])
		total += results[i]
	}
	assert.Equal(t, 4, total)

	got := f.listObligations(t, c.ID)
	require.Len(t, got, 4)
	seen := map[utils.YearMonth]bool{}
	for _, o := range got {
		assert.False(t, seen[o.Period()])
		seen[o.Period()] = true
	}
}

func TestObligation_UniquePeriodConstraint(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 10, "1000", models.ContractStatusActive)
	f.obligation(t, c, date(2024, 1, 10), models.ObligationStatusPlanned)

	dup := &models.PaymentObligation{
		ContractID:          c.ID,
		PeriodYear:          2024,
		PeriodMonth:         1,
		DueDate:             date(2024, 1, 10),
		AmountDue:           c.RentAmount,
		Status:              models.ObligationStatusPlanned,
		PenaltyRuleSnapshot: datatypes.JSONMap{},
	}
	err := f.db.Omit(clause.Associations).Create(dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
	assert.True(t, IsDuplicate(err))
}

func TestRecomputeStatus_DateRule(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 1, "1000", models.ContractStatusActive)
	o := f.obligation(t, c, date(2024, 3, 1), models.ObligationStatusPlanned)
	ctx := context.Background()

	steps := []struct {
		today time.Time
		want  models.ObligationStatus
	}{
		{date(2024, 3, 1), models.ObligationStatusDue},
		{date(2024, 3, 2), models.ObligationStatusOverdue},
		{date(2024, 2, 28), models.ObligationStatusPlanned},
	}
	for _, s := range steps {
		change, err := f.obligations.RecomputeStatus(ctx, o.ID, s.today)
		require.NoError(t, err)
		assert.Equal(t, s.want, change.To, "today %s", s.today.Format(time.DateOnly))
		assert.Equal(t, s.want, f.reloadObligation(t, o.ID).Status)
	}
}

func TestRecomputeStatus_AllNonTerminalStarts(t *testing.T) {
	starts := []models.ObligationStatus{
		models.ObligationStatusPlanned,
		models.ObligationStatusDue,
		models.ObligationStatusOverdue,
		models.ObligationStatusPartial,
		models.ObligationStatusDisputed,
	}
	due := date(2024, 6, 15)
	cases := []struct {
		today time.Time
		want  models.ObligationStatus
	}{
		{date(2024, 6, 14), models.ObligationStatusPlanned},
		{date(2024, 6, 15), models.ObligationStatusDue},
		{date(2024, 6, 16), models.ObligationStatusOverdue},
		{date(2025, 1, 1), models.ObligationStatusOverdue},
	}

	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 15, "1000", models.ContractStatusActive)
	o := f.obligation(t, c, due, models.ObligationStatusPlanned)

	for _, start := range starts {
		for _, tc := range cases {
			require.NoError(t, f.db.Model(&models.PaymentObligation{}).Where("id = ?", o.ID).
				UpdateColumn("status", start).Error)

			change, err := f.obligations.RecomputeStatus(context.Background(), o.ID, tc.today)
			require.NoError(t, err)
			assert.Equal(t, start, change.From)
			assert.Equal(t, tc.want, change.To, "%s on %s", start, tc.today.Format(time.DateOnly))
		}
	}
}

func TestRecomputeStatus_TerminalIsSticky(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 1, "1000", models.ContractStatusActive)
	ctx := context.Background()

	for _, status := range []models.ObligationStatus{
		models.ObligationStatusClosed,
		models.ObligationStatusPaidByTenant,
		models.ObligationStatusWrittenOff,
	} {
		o := f.obligation(t, c, date(2024, 3, 1), status)
		for _, today := range []time.Time{date(2024, 2, 1), date(2024, 3, 1), date(2030, 1, 1)} {
			change, err := f.obligations.RecomputeStatus(ctx, o.ID, today)
			require.NoError(t, err)
			assert.False(t, change.Changed())
			assert.Equal(t, status, f.reloadObligation(t, o.ID).Status)
		}
		require.NoError(t, f.db.Delete(o).Error)
	}
}

func TestRecomputeStatus_PersistsOnlyStatus(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 1, "1000", models.ContractStatusActive)
	o := f.obligation(t, c, date(2024, 3, 1), models.ObligationStatusPlanned)
	before := f.reloadObligation(t, o.ID)

	_, err := f.obligations.RecomputeStatus(context.Background(), o.ID, date(2024, 4, 1))
	require.NoError(t, err)

	after := f.reloadObligation(t, o.ID)
	assert.Equal(t, models.ObligationStatusOverdue, after.Status)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.True(t, before.AmountDue.Equal(after.AmountDue))
	assert.True(t, before.DueDate.Equal(after.DueDate))
}

func TestRecomputeStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.obligations.RecomputeStatus(context.Background(), 404, date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 1, "1000", models.ContractStatusActive)
	o := f.obligation(t, c, date(2024, 3, 1), models.ObligationStatusOverdue)
	ctx := context.Background()

	change, err := f.obligations.SetStatus(ctx, o.ID, models.ObligationStatusPaidByTenant)
	require.NoError(t, err)
	assert.Equal(t, models.ObligationStatusOverdue, change.From)
	assert.Equal(t, models.ObligationStatusPaidByTenant, change.To)

	// после ручной отметки об оплате пересчет ничего не меняет
	change, err = f.obligations.RecomputeStatus(ctx, o.ID, date(2024, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, models.ObligationStatusPaidByTenant, change.To)

	_, err = f.obligations.SetStatus(ctx, o.ID, "PAID")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListAndSummary(t *testing.T) {
	f := newFixture(t)
	c := f.contract(t, date(2024, 1, 1), 5, "1000", models.ContractStatusActive)
	ctx := context.Background()

	_, err := f.obligations.EnsureObligationsWindow(ctx, c.ID, 3)
	require.NoError(t, err)
	all := f.listObligations(t, c.ID)
	_, err = f.obligations.SetStatus(ctx, all[0].ID, models.ObligationStatusOverdue)
	require.NoError(t, err)

	overdue, err := f.obligations.List(ctx, ObligationFilter{ContractID: &c.ID, Status: models.ObligationStatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, all[0].ID, overdue[0].ID)

	month := 2
	feb, err := f.obligations.List(ctx, ObligationFilter{PeriodMonth: &month})
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, 2, feb[0].PeriodMonth)

	byUser, err := f.obligations.List(ctx, ObligationFilter{ResponsibleUserID: &f.manager.ID})
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	receipts := NewReceiptService(f.db, nil, f.metrics)
	_, err = receipts.Create(ctx, all[0].ID, &f.manager.ID, ReceiptDTO{Amount: decimal.RequireFromString("400")})
	require.NoError(t, err)
	_, err = receipts.Create(ctx, all[0].ID, nil, ReceiptDTO{Amount: decimal.RequireFromString("250.50")})
	require.NoError(t, err)

	summary, err := f.obligations.Summary(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Len(t, summary.Receipts, 2)
	assert.True(t, summary.PaidTotal.Equal(decimal.RequireFromString("650.50")), "paid %s", summary.PaidTotal)
	assert.True(t, summary.Outstanding.Equal(decimal.RequireFromString("349.50")), "outstanding %s", summary.Outstanding)
	// сумма поступлений на статус не влияет
	assert.Equal(t, models.ObligationStatusOverdue, summary.Obligation.Status)
}
