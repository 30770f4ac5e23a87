package controllers

import (
	"leasekeeper/middleware"

	"github.com/gorilla/mux"
)

// Handlers собирает контроллеры API
type Handlers struct {
	Auth        *AuthController
	Properties  *PropertyController
	Contracts   *ContractController
	Obligations *ObligationController
}

// NewRouter регистрирует маршруты API. Все маршруты, кроме /api/auth,
// требуют JWT токен.
func NewRouter(h Handlers, jwtKey []byte) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	// Публичные маршруты для аутентификации
	router.HandleFunc("/api/auth/signUp", h.Auth.SignUp).Methods("POST")
	router.HandleFunc("/api/auth/signIn", h.Auth.SignIn).Methods("POST")

	// Защищенные маршруты
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.AuthMiddleware(jwtKey))

	// Объекты и контрагенты
	protected.HandleFunc("/properties", h.Properties.CreateProperty).Methods("POST")
	protected.HandleFunc("/properties", h.Properties.GetProperties).Methods("GET")
	protected.HandleFunc("/properties/{id:[0-9]+}", h.Properties.GetProperty).Methods("GET")
	protected.HandleFunc("/properties/{id:[0-9]+}", h.Properties.DeleteProperty).Methods("DELETE")
	protected.HandleFunc("/parties", h.Properties.CreateParty).Methods("POST")
	protected.HandleFunc("/parties", h.Properties.GetParties).Methods("GET")
	protected.HandleFunc("/parties/{id:[0-9]+}", h.Properties.GetParty).Methods("GET")
	protected.HandleFunc("/parties/{id:[0-9]+}", h.Properties.DeleteParty).Methods("DELETE")

	// Договоры
	protected.HandleFunc("/contracts", h.Contracts.CreateContract).Methods("POST")
	protected.HandleFunc("/contracts", h.Contracts.GetContracts).Methods("GET")
	protected.HandleFunc("/contracts/{id:[0-9]+}", h.Contracts.GetContract).Methods("GET")
	protected.HandleFunc("/contracts/{id:[0-9]+}", h.Contracts.UpdateContract).Methods("PUT")
	protected.HandleFunc("/contracts/{id:[0-9]+}", h.Contracts.DeleteContract).Methods("DELETE")
	protected.HandleFunc("/contracts/{id:[0-9]+}/status", h.Contracts.SetContractStatus).Methods("POST")
	protected.HandleFunc("/contracts/{id:[0-9]+}/obligations", h.Contracts.GetContractObligations).Methods("GET")
	protected.HandleFunc("/contracts/{id:[0-9]+}/obligations/ensure", h.Contracts.EnsureObligations).Methods("POST")
	protected.HandleFunc("/contracts/{id:[0-9]+}/obligations/export", h.Contracts.ExportObligations).Methods("GET")

	// Обязательства и поступления
	protected.HandleFunc("/obligations", h.Obligations.GetObligations).Methods("GET")
	protected.HandleFunc("/obligations/{id:[0-9]+}", h.Obligations.GetObligation).Methods("GET")
	protected.HandleFunc("/obligations/{id:[0-9]+}/recompute", h.Obligations.RecomputeStatus).Methods("POST")
	protected.HandleFunc("/obligations/{id:[0-9]+}/status", h.Obligations.SetStatus).Methods("POST")
	protected.HandleFunc("/obligations/{id:[0-9]+}/receipts", h.Obligations.GetReceipts).Methods("GET")
	protected.HandleFunc("/obligations/{id:[0-9]+}/receipts", h.Obligations.CreateReceipt).Methods("POST")
	protected.HandleFunc("/receipts/{id:[0-9]+}", h.Obligations.DeleteReceipt).Methods("DELETE")
	protected.HandleFunc("/receipts/{id:[0-9]+}/accounting-status", h.Obligations.SetAccountingStatus).Methods("POST")

	return router
}
