package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leasekeeper/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrEmailTaken возвращается при регистрации с уже занятым email
var ErrEmailTaken = errors.New("пользователь с таким email уже существует")

// ErrInvalidCredentials возвращается при неверном email или пароле
var ErrInvalidCredentials = errors.New("неверный email или пароль")

type UserService struct {
	db *gorm.DB
}

type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser создает нового сотрудника с хешированным паролем
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	db := s.db.WithContext(ctx)

	// Проверяем, существует ли пользователь с таким email
	var count int64
	if err := db.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", strings.TrimSpace(req.Email)).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("ошибка при проверке email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка при хешировании пароля: %w", err)
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.TrimSpace(req.Email),
		Password:  string(hashedPassword),
	}

	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return user, nil
}

// Authenticate проверяет email и пароль и возвращает пользователя
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID ищет пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "пользователь")
	}
	return &user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error; err != nil {
		return nil, notFound(err, "пользователь")
	}
	return &user, nil
}
