package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LeaseContract представляет договор аренды между объектом и арендатором
type LeaseContract struct {
	ID         uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint     `gorm:"column:property_id;not null;index" json:"property_id"`
	Property   Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	TenantID   uint     `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	Tenant     Party    `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	// ResponsibleUserID переопределяет ответственного по объекту
	ResponsibleUserID *uint `gorm:"column:responsible_user_id;index" json:"responsible_user_id"`
	ResponsibleUser   *User `gorm:"foreignKey:ResponsibleUserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	Status    ContractStatus `gorm:"column:status;type:varchar(20);not null;default:'DRAFT'" json:"status"`
	StartDate time.Time      `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate   *time.Time     `gorm:"column:end_date;type:date" json:"end_date"`

	RentAmount    decimal.Decimal `gorm:"column:rent_amount;type:decimal(12,2);not null" json:"rent_amount"`
	DueDay        int             `gorm:"column:due_day;not null;default:1" json:"due_day"` // 1-28
	DepositAmount decimal.Decimal `gorm:"column:deposit_amount;type:decimal(12,2);not null;default:0" json:"deposit_amount"`

	// PenaltyRule - непрозрачная конфигурация пени, не интерпретируется
	PenaltyRule datatypes.JSONMap `gorm:"column:penalty_rule" json:"penalty_rule"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LeaseContract) TableName() string {
	return "lease_contracts"
}

// EffectiveResponsibleUserID возвращает ответственного по договору, а если он
// не задан - ответственного по объекту. Property должен быть загружен.
func (c *LeaseContract) EffectiveResponsibleUserID() *uint {
	if c.ResponsibleUserID != nil {
		return c.ResponsibleUserID
	}
	return c.Property.ResponsibleUserID
}

// PenaltyRuleSnapshot возвращает независимую копию правила пени
func (c *LeaseContract) PenaltyRuleSnapshot() datatypes.JSONMap {
	return copyJSONMap(c.PenaltyRule)
}

func copyJSONMap(src map[string]interface{}) datatypes.JSONMap {
	dst := make(datatypes.JSONMap, len(src))
	for k, v := range src {
		dst[k] = copyJSONValue(v)
	}
	return dst
}

func copyJSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(copyJSONMap(t))
	case datatypes.JSONMap:
		return copyJSONMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = copyJSONValue(t[i])
		}
		return out
	default:
		return v
	}
}
