package services

import (
	"context"
	"fmt"
	"sync"

	"leasekeeper/models"

	"gorm.io/gorm"
)

// Event - событие записи, на которое реагируют триггеры жизненного цикла
type Event interface {
	EventName() string
}

const (
	EventContractSaved  = "contract.saved"
	EventReceiptCreated = "receipt.created"
	EventReceiptDeleted = "receipt.deleted"
)

// ContractSaved публикуется после сохранения договора
type ContractSaved struct {
	ContractID uint
	Status     models.ContractStatus
}

func (ContractSaved) EventName() string { return EventContractSaved }

// ReceiptCreated публикуется после создания поступления
type ReceiptCreated struct {
	ReceiptID    uint
	ObligationID uint
}

func (ReceiptCreated) EventName() string { return EventReceiptCreated }

// ReceiptDeleted публикуется после удаления поступления
type ReceiptDeleted struct {
	ReceiptID    uint
	ObligationID uint
}

func (ReceiptDeleted) EventName() string { return EventReceiptDeleted }

// EventHandler обрабатывает событие внутри транзакции tx, в которой оно произошло
type EventHandler func(ctx context.Context, tx *gorm.DB, ev Event) error

// EventBus - синхронная шина событий. Обработчики подписываются явно при
// сборке приложения и выполняются в транзакции издателя: ошибка обработчика
// откатывает исходную запись.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewEventBus создает пустую шину
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]EventHandler)}
}

// Subscribe добавляет обработчик события name
func (b *EventBus) Subscribe(name string, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish вызывает обработчики события по порядку подписки.
// Первая ошибка прерывает обработку и возвращается издателю.
func (b *EventBus) Publish(ctx context.Context, tx *gorm.DB, ev Event) error {
	if b == nil {
		return nil
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[ev.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, tx, ev); err != nil {
			return fmt.Errorf("обработка события %s: %w", ev.EventName(), err)
		}
	}
	return nil
}
