package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"leasekeeper/config"
	"leasekeeper/services"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

type AuthController struct {
	users    *services.UserService
	validate *validator.Validate
	config   *config.Config
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignUpRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,password"`
}

type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    uint      `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Token Token `json:"token"`
	User  struct {
		ID        uint   `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"user"`
}

var (
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*]`)
)

func NewAuthController(users *services.UserService, cfg *config.Config) *AuthController {
	validate := validator.New()

	// Пароль: цифра, заглавная и строчная буквы, спецсимвол
	_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasNumber.MatchString(password) &&
			hasUpper.MatchString(password) &&
			hasLower.MatchString(password) &&
			hasSpecial.MatchString(password)
	})

	return &AuthController{
		users:    users,
		validate: validate,
		config:   cfg,
	}
}

// SignIn обрабатывает вход сотрудника
func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := c.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: []string{err.Error()}})
		return
	}

	user, err := c.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		writeError(w, err)
		return
	}

	token, err := c.generateToken(user.ID, user.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// SignUp регистрирует сотрудника и сразу выдает токен
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := c.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: []string{err.Error()}})
		return
	}

	user, err := c.users.CreateUser(r.Context(), services.CreateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := c.generateToken(user.ID, user.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	var response AuthResponse
	response.Token = *token
	response.User.ID = user.ID
	response.User.FirstName = user.FirstName
	response.User.LastName = user.LastName
	response.User.Email = user.Email

	writeJSON(w, http.StatusCreated, response)
}

// GetJWTKey возвращает ключ для JWT
func (c *AuthController) GetJWTKey() string {
	return c.config.JWT.SecretKey
}

// generateToken создает JWT токен со сроком жизни из конфигурации
func (c *AuthController) generateToken(userID uint, email string) (*Token, error) {
	expirationTime := time.Now().Add(time.Duration(c.config.JWT.ExpiresIn) * time.Hour)
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     expirationTime.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(c.config.JWT.SecretKey))
	if err != nil {
		return nil, err
	}

	return &Token{
		Token:     tokenString,
		Email:     email,
		UserID:    userID,
		ExpiresAt: expirationTime.UTC(),
	}, nil
}
