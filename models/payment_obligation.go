package models

import (
	"time"

	"leasekeeper/utils"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentObligation представляет ежемесячный платеж по договору.
// На пару (договор, год, месяц) существует ровно одно обязательство.
type PaymentObligation struct {
	ID         uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID uint          `gorm:"column:contract_id;not null;uniqueIndex:uniq_contract_period,priority:1" json:"contract_id"`
	Contract   LeaseContract `gorm:"foreignKey:ContractID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	// ResponsibleUserID фиксируется при создании и не пересчитывается
	ResponsibleUserID *uint `gorm:"column:responsible_user_id;index" json:"responsible_user_id"`
	ResponsibleUser   *User `gorm:"foreignKey:ResponsibleUserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	PeriodYear  int `gorm:"column:period_year;not null;uniqueIndex:uniq_contract_period,priority:2" json:"period_year"`
	PeriodMonth int `gorm:"column:period_month;not null;uniqueIndex:uniq_contract_period,priority:3" json:"period_month"`

	DueDate   time.Time        `gorm:"column:due_date;type:date;not null;index" json:"due_date"`
	AmountDue decimal.Decimal  `gorm:"column:amount_due;type:decimal(12,2);not null" json:"amount_due"`
	Status    ObligationStatus `gorm:"column:status;type:varchar(20);not null;default:'PLANNED';index" json:"status"`

	// PenaltyRuleSnapshot - копия правила пени договора на момент создания
	PenaltyRuleSnapshot datatypes.JSONMap `gorm:"column:penalty_rule_snapshot" json:"penalty_rule_snapshot"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentObligation) TableName() string {
	return "payment_obligations"
}

// Period возвращает расчетный период обязательства
func (o *PaymentObligation) Period() utils.YearMonth {
	return utils.YearMonth{Year: o.PeriodYear, Month: o.PeriodMonth}
}

// PaymentReceipt представляет поступление денег по обязательству
type PaymentReceipt struct {
	ID           uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	ObligationID uint              `gorm:"column:obligation_id;not null;index" json:"obligation_id"`
	Obligation   PaymentObligation `gorm:"foreignKey:ObligationID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Amount       decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	ReceivedByID *uint             `gorm:"column:received_by_id;index" json:"received_by_id"`
	ReceivedBy   *User             `gorm:"foreignKey:ReceivedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Comment      string            `gorm:"column:comment;not null;type:text;default:''" json:"comment"`
	ReceivedAt   time.Time         `gorm:"column:received_at;not null" json:"received_at"`

	// AccountingStatus хранится, но ядром не вычисляется
	AccountingStatus AccountingStatus `gorm:"column:accounting_status;type:varchar(20);not null;default:'PENDING'" json:"accounting_status"`

	CreatedAt time.Time `json:"created_at"`
}

func (PaymentReceipt) TableName() string {
	return "payment_receipts"
}
