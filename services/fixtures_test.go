package services

import (
	"encoding/json"
	"testing"
	"time"

	"leasekeeper/database/dbtest"
	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fixture struct {
	db          *gorm.DB
	metrics     *utils.Metrics
	manager     models.User
	property    models.Property
	tenant      models.Party
	obligations *ObligationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	f := &fixture{db: db, metrics: utils.NewMetrics()}

	f.manager = models.User{FirstName: "Анна", LastName: "Петрова", Email: "anna@example.com", Password: "hash"}
	require.NoError(t, db.Create(&f.manager).Error)

	f.property = models.Property{
		Name:              "Офис 12",
		Address:           "ул. Ленина, 1",
		Status:            models.PropertyStatusAvailable,
		ResponsibleUserID: &f.manager.ID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(&f.property).Error)

	f.tenant = models.Party{Name: "ООО Ромашка", PartyType: models.PartyTypeTenant, Email: "info@romashka.example"}
	require.NoError(t, db.Create(&f.tenant).Error)

	f.obligations = NewObligationService(db, f.metrics)
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// contract создает договор напрямую, минуя ContractService и триггеры
func (f *fixture) contract(t *testing.T, start time.Time, dueDay int, rent string, status models.ContractStatus) *models.LeaseContract {
	t.Helper()

	c := &models.LeaseContract{
		PropertyID:    f.property.ID,
		TenantID:      f.tenant.ID,
		Status:        status,
		StartDate:     start,
		RentAmount:    decimal.RequireFromString(rent),
		DueDay:        dueDay,
		DepositAmount: decimal.Zero,
		PenaltyRule:   datatypes.JSONMap{"rate": 0.1},
	}
	require.NoError(t, f.db.Omit(clause.Associations).Create(c).Error)
	return c
}

// obligation создает обязательство напрямую с заданным статусом
func (f *fixture) obligation(t *testing.T, c *models.LeaseContract, due time.Time, status models.ObligationStatus) *models.PaymentObligation {
	t.Helper()

	o := &models.PaymentObligation{
		ContractID:          c.ID,
		PeriodYear:          due.Year(),
		PeriodMonth:         int(due.Month()),
		DueDate:             due,
		AmountDue:           c.RentAmount,
		Status:              status,
		PenaltyRuleSnapshot: datatypes.JSONMap{},
	}
	require.NoError(t, f.db.Omit(clause.Associations).Create(o).Error)
	return o
}

func (f *fixture) listObligations(t *testing.T, contractID uint) []models.PaymentObligation {
	t.Helper()

	var out []models.PaymentObligation
	require.NoError(t, f.db.Where("contract_id = ?", contractID).
		Order("period_year ASC, period_month ASC").
		Find(&out).Error)
	return out
}

func (f *fixture) reloadObligation(t *testing.T, id uint) models.PaymentObligation {
	t.Helper()

	var o models.PaymentObligation
	require.NoError(t, f.db.First(&o, id).Error)
	return o
}

// assertPenaltyRule сравнивает снимок правила пени по JSON: после чтения из
// базы числа в JSONMap приходят как json.Number
func assertPenaltyRule(t *testing.T, want string, o models.PaymentObligation) {
	t.Helper()
	got, err := json.Marshal(o.PenaltyRuleSnapshot)
	require.NoError(t, err)
	assert.JSONEq(t, want, string(got))
}
