package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	// ErrNotFound возвращается, если запись не найдена
	ErrNotFound = errors.New("запись не найдена")
	// ErrValidation возвращается при неверных входных данных
	ErrValidation = errors.New("ошибка валидации")
	// ErrInUse возвращается при попытке удалить запись, на которую есть ссылки
	ErrInUse = errors.New("запись используется и не может быть удалена")
)

// ValidationError описывает ошибки валидации DTO
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Messages: []string{fmt.Sprintf(format, args...)}}
}

// formatValidationErrors переводит ошибки validator в сообщения для пользователя
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
		case "gt":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше "+e.Param())
		case "gte":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть не меньше "+e.Param())
		case "min", "max":
			errorMessages = append(errorMessages, "поле "+e.Field()+" вне допустимого диапазона")
		case "oneof":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть одним из: "+e.Param())
		case "email":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть email")
		default:
			errorMessages = append(errorMessages, "поле "+e.Field()+" заполнено неверно")
		}
	}
	return &ValidationError{Messages: errorMessages}
}

// notFound превращает gorm.ErrRecordNotFound в ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("ошибка при получении %s: %w", what, err)
}

// inUse превращает нарушение внешнего ключа в ErrInUse
func inUse(err error, what string) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%s: %w", what, ErrInUse)
	}
	return fmt.Errorf("ошибка при удалении %s: %w", what, err)
}

// reference - таблица и колонка, которые ссылаются на удаляемую запись
type reference struct {
	model  interface{}
	column string
}

// deleteUnreferenced удаляет запись id, если на нее нет ссылок из refs.
// Проверка выполняется до DELETE в той же транзакции, поэтому не зависит от
// того, как драйвер сообщает о нарушении внешнего ключа; ошибка ключа
// остается запасным путем к ErrInUse.
func deleteUnreferenced(ctx context.Context, db *gorm.DB, model interface{}, id uint, what string, refs ...reference) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range refs {
			var count int64
			if err := tx.Model(ref.model).Where(ref.column+" = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("ошибка при проверке ссылок на %s: %w", what, err)
			}
			if count > 0 {
				return fmt.Errorf("%s: %w", what, ErrInUse)
			}
		}

		res := tx.Delete(model, id)
		if res.Error != nil {
			return inUse(res.Error, what)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil
	})
}

// IsDuplicate сообщает, что ошибка вызвана нарушением уникальности
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
