package services

import (
	"context"
	"fmt"

	"leasekeeper/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// PartyDTO - данные для создания контрагента
type PartyDTO struct {
	PartyType models.PartyType `json:"party_type" validate:"omitempty,oneof=TENANT OWNER STAFF"`
	Name      string           `json:"name" validate:"required,max=255"`
	Phone     string           `json:"phone" validate:"max=50"`
	Email     string           `json:"email" validate:"omitempty,email,max=254"`
	Notes     string           `json:"notes"`
}

// PartyService управляет контрагентами
type PartyService struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewPartyService создает новый экземпляр PartyService
func NewPartyService(db *gorm.DB) *PartyService {
	return &PartyService{db: db, validate: validator.New()}
}

// Create создает контрагента
func (s *PartyService) Create(ctx context.Context, dto PartyDTO) (*models.Party, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, formatValidationErrors(err)
	}

	party := &models.Party{
		PartyType: dto.PartyType,
		Name:      dto.Name,
		Phone:     dto.Phone,
		Email:     dto.Email,
		Notes:     dto.Notes,
	}
	if party.PartyType == "" {
		party.PartyType = models.PartyTypeTenant
	}

	if err := s.db.WithContext(ctx).Create(party).Error; err != nil {
		return nil, fmt.Errorf("ошибка при создании контрагента: %w", err)
	}
	return party, nil
}

// Get возвращает контрагента по ID
func (s *PartyService) Get(ctx context.Context, id uint) (*models.Party, error) {
	var party models.Party
	if err := s.db.WithContext(ctx).First(&party, id).Error; err != nil {
		return nil, notFound(err, "контрагент")
	}
	return &party, nil
}

// List возвращает контрагентов, при partyType != "" только этого типа
func (s *PartyService) List(ctx context.Context, partyType models.PartyType) ([]models.Party, error) {
	q := s.db.WithContext(ctx).Model(&models.Party{})
	if partyType != "" {
		q = q.Where("party_type = ?", partyType)
	}

	var parties []models.Party
	if err := q.Order("id ASC").Find(&parties).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении контрагентов: %w", err)
	}
	return parties, nil
}

// Delete удаляет контрагента, если на него не ссылаются договоры
func (s *PartyService) Delete(ctx context.Context, id uint) error {
	return deleteUnreferenced(ctx, s.db, &models.Party{}, id, "контрагент",
		reference{&models.LeaseContract{}, "tenant_id"},
	)
}
