package models

import (
	"time"
)

// Property представляет объект недвижимости
type Property struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string         `gorm:"column:name;not null;size:255" json:"name"`
	Address           string         `gorm:"column:address;not null;size:500;default:''" json:"address"`
	Status            PropertyStatus `gorm:"column:status;type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	ResponsibleUserID *uint          `gorm:"column:responsible_user_id;index" json:"responsible_user_id"`
	ResponsibleUser   *User          `gorm:"foreignKey:ResponsibleUserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Property) TableName() string {
	return "properties"
}

// Party представляет контрагента (арендатора, собственника, сотрудника)
type Party struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PartyType PartyType `gorm:"column:party_type;type:varchar(10);not null;default:'TENANT'" json:"party_type"`
	Name      string    `gorm:"column:name;not null;size:255" json:"name"`
	Phone     string    `gorm:"column:phone;not null;size:50;default:''" json:"phone"`
	Email     string    `gorm:"column:email;not null;size:254;default:''" json:"email"`
	Notes     string    `gorm:"column:notes;not null;type:text;default:''" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Party) TableName() string {
	return "parties"
}
