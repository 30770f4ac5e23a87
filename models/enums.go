package models

// PropertyStatus представляет статус объекта недвижимости
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "AVAILABLE" // Свободен
	PropertyStatusRented    PropertyStatus = "RENTED"    // В аренде
	PropertyStatusSuspended PropertyStatus = "SUSPENDED" // Пауза
	PropertyStatusArchived  PropertyStatus = "ARCHIVED"  // Архив
)

// PartyType представляет тип контрагента
type PartyType string

const (
	PartyTypeTenant PartyType = "TENANT" // Арендатор
	PartyTypeOwner  PartyType = "OWNER"  // Собственник
	PartyTypeStaff  PartyType = "STAFF"  // Сотрудник
)

// ContractStatus представляет статус договора аренды
type ContractStatus string

const (
	ContractStatusDraft       ContractStatus = "DRAFT"       // Черновик
	ContractStatusActive      ContractStatus = "ACTIVE"      // Активен
	ContractStatusSuspended   ContractStatus = "SUSPENDED"   // Приостановлен
	ContractStatusTerminating ContractStatus = "TERMINATING" // Закрывается
	ContractStatusClosed      ContractStatus = "CLOSED"      // Закрыт
	ContractStatusCancelled   ContractStatus = "CANCELLED"   // Отменен
)

// ContractStatuses перечисляет допустимые статусы договора
var ContractStatuses = []ContractStatus{
	ContractStatusDraft,
	ContractStatusActive,
	ContractStatusSuspended,
	ContractStatusTerminating,
	ContractStatusClosed,
	ContractStatusCancelled,
}

// Valid сообщает, является ли статус допустимым
func (s ContractStatus) Valid() bool {
	for _, v := range ContractStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ObligationStatus представляет статус обязательства по оплате
type ObligationStatus string

const (
	ObligationStatusPlanned      ObligationStatus = "PLANNED"        // Запланировано
	ObligationStatusDue          ObligationStatus = "DUE"            // Срок сегодня
	ObligationStatusOverdue      ObligationStatus = "OVERDUE"        // Просрочено
	ObligationStatusPartial      ObligationStatus = "PARTIAL"        // Оплачено частично
	ObligationStatusPaidByTenant ObligationStatus = "PAID_BY_TENANT" // Оплачено арендатором
	ObligationStatusClosed       ObligationStatus = "CLOSED"         // Закрыто
	ObligationStatusDisputed     ObligationStatus = "DISPUTED"       // Спор
	ObligationStatusWrittenOff   ObligationStatus = "WRITTEN_OFF"    // Списано
)

// ObligationStatuses перечисляет допустимые статусы обязательства
var ObligationStatuses = []ObligationStatus{
	ObligationStatusPlanned,
	ObligationStatusDue,
	ObligationStatusOverdue,
	ObligationStatusPartial,
	ObligationStatusPaidByTenant,
	ObligationStatusClosed,
	ObligationStatusDisputed,
	ObligationStatusWrittenOff,
}

// Valid сообщает, является ли статус допустимым
func (s ObligationStatus) Valid() bool {
	for _, v := range ObligationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что статус не перезаписывается автоматическим пересчетом
func (s ObligationStatus) IsTerminal() bool {
	switch s {
	case ObligationStatusClosed, ObligationStatusPaidByTenant, ObligationStatusWrittenOff:
		return true
	}
	return false
}

// AccountingStatus представляет статус передачи поступления в бухгалтерию
type AccountingStatus string

const (
	AccountingStatusPending     AccountingStatus = "PENDING"     // Не передано
	AccountingStatusTransferred AccountingStatus = "TRANSFERRED" // Передано
)
