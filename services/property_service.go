package services

import (
	"context"
	"fmt"

	"leasekeeper/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyDTO - данные для создания объекта
type PropertyDTO struct {
	Name              string                `json:"name" validate:"required,max=255"`
	Address           string                `json:"address" validate:"max=500"`
	Status            models.PropertyStatus `json:"status" validate:"omitempty,oneof=AVAILABLE RENTED SUSPENDED ARCHIVED"`
	ResponsibleUserID *uint                 `json:"responsible_user_id"`
}

// PropertyService управляет объектами недвижимости
type PropertyService struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewPropertyService создает новый экземпляр PropertyService
func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{db: db, validate: validator.New()}
}

// Create создает объект
func (s *PropertyService) Create(ctx context.Context, dto PropertyDTO) (*models.Property, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, formatValidationErrors(err)
	}

	property := &models.Property{
		Name:              dto.Name,
		Address:           dto.Address,
		Status:            dto.Status,
		ResponsibleUserID: copyUintPtr(dto.ResponsibleUserID),
	}
	if property.Status == "" {
		property.Status = models.PropertyStatusAvailable
	}

	db := s.db.WithContext(ctx)
	if property.ResponsibleUserID != nil {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", *property.ResponsibleUserID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("ошибка при проверке ответственного: %w", err)
		}
		if count == 0 {
			return nil, validationErrorf("ответственный %d не найден", *property.ResponsibleUserID)
		}
	}

	if err := db.Omit(clause.Associations).Create(property).Error; err != nil {
		return nil, fmt.Errorf("ошибка при создании объекта: %w", err)
	}
	return property, nil
}

// Get возвращает объект по ID
func (s *PropertyService) Get(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, id).Error; err != nil {
		return nil, notFound(err, "объект")
	}
	return &property, nil
}

// List возвращает все объекты
func (s *PropertyService) List(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении объектов: %w", err)
	}
	return properties, nil
}

// Delete удаляет объект, если на него не ссылаются договоры
func (s *PropertyService) Delete(ctx context.Context, id uint) error {
	return deleteUnreferenced(ctx, s.db, &models.Property{}, id, "объект",
		reference{&models.LeaseContract{}, "property_id"},
	)
}
