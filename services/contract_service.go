package services

import (
	"context"
	"fmt"
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContractDTO - данные для создания и изменения договора
type ContractDTO struct {
	PropertyID        uint                   `json:"property_id" validate:"required"`
	TenantID          uint                   `json:"tenant_id" validate:"required"`
	ResponsibleUserID *uint                  `json:"responsible_user_id"`
	Status            models.ContractStatus  `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE SUSPENDED TERMINATING CLOSED CANCELLED"`
	StartDate         string                 `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           *string                `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	RentAmount        decimal.Decimal        `json:"rent_amount"`
	DueDay            int                    `json:"due_day" validate:"required,min=1,max=28"`
	DepositAmount     decimal.Decimal        `json:"deposit_amount"`
	PenaltyRule       map[string]interface{} `json:"penalty_rule"`
}

// ContractFilter задает условия выборки договоров
type ContractFilter struct {
	Status     models.ContractStatus
	PropertyID *uint
	TenantID   *uint
}

// ContractService управляет договорами аренды и публикует ContractSaved
type ContractService struct {
	db       *gorm.DB
	bus      *EventBus
	validate *validator.Validate
}

// NewContractService создает новый экземпляр ContractService
func NewContractService(db *gorm.DB, bus *EventBus) *ContractService {
	return &ContractService{
		db:       db,
		bus:      bus,
		validate: validator.New(),
	}
}

// Create создает договор. Если договор сразу активен, в той же транзакции
// генерируются его обязательства.
func (s *ContractService) Create(ctx context.Context, dto ContractDTO) (*models.LeaseContract, error) {
	contract := &models.LeaseContract{Status: models.ContractStatusDraft}
	if err := s.apply(contract, dto); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, contract); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(contract).Error; err != nil {
			return fmt.Errorf("ошибка при создании договора: %w", err)
		}
		return s.bus.Publish(ctx, tx, ContractSaved{ContractID: contract.ID, Status: contract.Status})
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Создан договор %d (объект %d, арендатор %d, статус %s)", contract.ID, contract.PropertyID, contract.TenantID, contract.Status)
	return contract, nil
}

// Update перезаписывает поля договора. Уже созданные обязательства не меняются.
func (s *ContractService) Update(ctx context.Context, id uint, dto ContractDTO) (*models.LeaseContract, error) {
	var contract models.LeaseContract
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&contract, id).Error; err != nil {
			return notFound(err, "договор")
		}
		if err := s.apply(&contract, dto); err != nil {
			return err
		}
		if err := s.checkReferences(tx, &contract); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&contract).Error; err != nil {
			return fmt.Errorf("ошибка при сохранении договора: %w", err)
		}
		return s.bus.Publish(ctx, tx, ContractSaved{ContractID: contract.ID, Status: contract.Status})
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Изменен договор %d (статус %s)", contract.ID, contract.Status)
	return &contract, nil
}

// SetStatus меняет только статус договора
func (s *ContractService) SetStatus(ctx context.Context, id uint, status models.ContractStatus) (*models.LeaseContract, error) {
	if !status.Valid() {
		return nil, validationErrorf("неизвестный статус договора %q", status)
	}

	var contract models.LeaseContract
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&contract, id).Error; err != nil {
			return notFound(err, "договор")
		}
		contract.Status = status
		if err := tx.Model(&contract).Update("status", status).Error; err != nil {
			return fmt.Errorf("ошибка при изменении статуса договора: %w", err)
		}
		return s.bus.Publish(ctx, tx, ContractSaved{ContractID: contract.ID, Status: contract.Status})
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Договор %d переведен в статус %s", contract.ID, contract.Status)
	return &contract, nil
}

// Delete удаляет договор, если по нему нет обязательств
func (s *ContractService) Delete(ctx context.Context, id uint) error {
	return deleteUnreferenced(ctx, s.db, &models.LeaseContract{}, id, "договор",
		reference{&models.PaymentObligation{}, "contract_id"},
	)
}

// Get возвращает договор по ID
func (s *ContractService) Get(ctx context.Context, id uint) (*models.LeaseContract, error) {
	var contract models.LeaseContract
	if err := s.db.WithContext(ctx).First(&contract, id).Error; err != nil {
		return nil, notFound(err, "договор")
	}
	return &contract, nil
}

// List возвращает договоры по фильтру
func (s *ContractService) List(ctx context.Context, f ContractFilter) ([]models.LeaseContract, error) {
	q := s.db.WithContext(ctx).Model(&models.LeaseContract{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}

	var contracts []models.LeaseContract
	if err := q.Order("id ASC").Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении договоров: %w", err)
	}
	return contracts, nil
}

// apply проверяет DTO и переносит его поля в договор
func (s *ContractService) apply(contract *models.LeaseContract, dto ContractDTO) error {
	if err := s.validate.Struct(dto); err != nil {
		return formatValidationErrors(err)
	}

	var messages []string
	if !dto.RentAmount.GreaterThan(decimal.Zero) {
		messages = append(messages, "поле RentAmount должно быть больше 0")
	}
	if dto.DepositAmount.IsNegative() {
		messages = append(messages, "поле DepositAmount должно быть не меньше 0")
	}

	start, err := utils.ParseDate(dto.StartDate)
	if err != nil {
		messages = append(messages, "поле StartDate заполнено неверно")
	}

	var end *time.Time
	if dto.EndDate != nil {
		e, err := utils.ParseDate(*dto.EndDate)
		if err != nil {
			messages = append(messages, "поле EndDate заполнено неверно")
		} else if e.Before(start) {
			messages = append(messages, "дата окончания раньше даты начала")
		} else {
			end = &e
		}
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}

	contract.PropertyID = dto.PropertyID
	contract.TenantID = dto.TenantID
	contract.ResponsibleUserID = copyUintPtr(dto.ResponsibleUserID)
	if dto.Status != "" {
		contract.Status = dto.Status
	}
	contract.StartDate = start
	contract.EndDate = end
	contract.RentAmount = dto.RentAmount
	contract.DueDay = dto.DueDay
	contract.DepositAmount = dto.DepositAmount
	contract.PenaltyRule = datatypes.JSONMap(dto.PenaltyRule)
	if contract.PenaltyRule == nil {
		contract.PenaltyRule = datatypes.JSONMap{}
	}
	return nil
}

// checkReferences проверяет, что объект, арендатор и ответственный существуют
func (s *ContractService) checkReferences(tx *gorm.DB, contract *models.LeaseContract) error {
	checks := []struct {
		model interface{}
		id    *uint
		field string
	}{
		{&models.Property{}, &contract.PropertyID, "PropertyID"},
		{&models.Party{}, &contract.TenantID, "TenantID"},
		{&models.User{}, contract.ResponsibleUserID, "ResponsibleUserID"},
	}

	var messages []string
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		var count int64
		if err := tx.Model(c.model).Where("id = ?", *c.id).Count(&count).Error; err != nil {
			return fmt.Errorf("ошибка при проверке %s: %w", c.field, err)
		}
		if count == 0 {
			messages = append(messages, fmt.Sprintf("поле %s ссылается на несуществующую запись %d", c.field, *c.id))
		}
	}
	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}
