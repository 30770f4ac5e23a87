package services

import (
	"context"
	"fmt"
	"time"

	"leasekeeper/models"
	"leasekeeper/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptDTO - данные поступления по обязательству
type ReceiptDTO struct {
	Amount     decimal.Decimal `json:"amount"`
	Comment    string          `json:"comment" validate:"max=2000"`
	ReceivedAt *time.Time      `json:"received_at"`
}

// ReceiptService фиксирует поступления и публикует события для пересчета статуса
type ReceiptService struct {
	db       *gorm.DB
	bus      *EventBus
	metrics  *utils.Metrics
	validate *validator.Validate
}

// NewReceiptService создает новый экземпляр ReceiptService
func NewReceiptService(db *gorm.DB, bus *EventBus, metrics *utils.Metrics) *ReceiptService {
	if metrics == nil {
		metrics = utils.NewMetrics()
	}
	return &ReceiptService{
		db:       db,
		bus:      bus,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Create регистрирует поступление по обязательству от имени receivedBy
func (s *ReceiptService) Create(ctx context.Context, obligationID uint, receivedBy *uint, dto ReceiptDTO) (*models.PaymentReceipt, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, formatValidationErrors(err)
	}
	if !dto.Amount.GreaterThan(decimal.Zero) {
		return nil, validationErrorf("поле Amount должно быть больше 0")
	}

	receivedAt := time.Now().UTC()
	if dto.ReceivedAt != nil {
		receivedAt = dto.ReceivedAt.UTC()
	}

	receipt := &models.PaymentReceipt{
		ObligationID:     obligationID,
		Amount:           dto.Amount,
		ReceivedByID:     copyUintPtr(receivedBy),
		Comment:          dto.Comment,
		ReceivedAt:       receivedAt,
		AccountingStatus: models.AccountingStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.PaymentObligation{}).Where("id = ?", obligationID).Count(&count).Error; err != nil {
			return fmt.Errorf("ошибка при проверке обязательства: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("обязательство: %w", ErrNotFound)
		}

		if err := tx.Omit(clause.Associations).Create(receipt).Error; err != nil {
			return fmt.Errorf("ошибка при сохранении поступления: %w", err)
		}
		return s.bus.Publish(ctx, tx, ReceiptCreated{ReceiptID: receipt.ID, ObligationID: receipt.ObligationID})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReceipt(false)
	utils.LogInfo("Поступление %d по обязательству %d на сумму %s", receipt.ID, receipt.ObligationID, receipt.Amount.StringFixed(2))
	return receipt, nil
}

// Delete удаляет поступление
func (s *ReceiptService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receipt models.PaymentReceipt
		if err := tx.First(&receipt, id).Error; err != nil {
			return notFound(err, "поступление")
		}
		if err := tx.Delete(&receipt).Error; err != nil {
			return fmt.Errorf("ошибка при удалении поступления: %w", err)
		}
		return s.bus.Publish(ctx, tx, ReceiptDeleted{ReceiptID: receipt.ID, ObligationID: receipt.ObligationID})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordReceipt(true)
	utils.LogInfo("Удалено поступление %d", id)
	return nil
}

// SetAccountingStatus отмечает передачу поступления в бухгалтерию
func (s *ReceiptService) SetAccountingStatus(ctx context.Context, id uint, status models.AccountingStatus) (*models.PaymentReceipt, error) {
	if status != models.AccountingStatusPending && status != models.AccountingStatusTransferred {
		return nil, validationErrorf("неизвестный статус передачи %q", status)
	}

	var receipt models.PaymentReceipt
	db := s.db.WithContext(ctx)
	if err := db.First(&receipt, id).Error; err != nil {
		return nil, notFound(err, "поступление")
	}
	if err := db.Model(&receipt).UpdateColumn("accounting_status", status).Error; err != nil {
		return nil, fmt.Errorf("ошибка при изменении статуса передачи: %w", err)
	}
	receipt.AccountingStatus = status
	return &receipt, nil
}

// ListByObligation возвращает поступления по обязательству
func (s *ReceiptService) ListByObligation(ctx context.Context, obligationID uint) ([]models.PaymentReceipt, error) {
	var receipts []models.PaymentReceipt
	if err := s.db.WithContext(ctx).
		Where("obligation_id = ?", obligationID).
		Order("received_at ASC, id ASC").
		Find(&receipts).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении поступлений: %w", err)
	}
	return receipts, nil
}
