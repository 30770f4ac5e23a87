package controllers

import (
	"net/http"
	"strconv"

	"leasekeeper/models"
	"leasekeeper/services"
)

// ContractController обрабатывает запросы к договорам аренды
type ContractController struct {
	contracts   *services.ContractService
	obligations *services.ObligationService
	exports     *services.ExportService
	monthsAhead int
}

type StatusRequest struct {
	Status string `json:"status"`
}

type EnsureWindowResponse struct {
	ContractID uint `json:"contract_id"`
	Months     int  `json:"months"`
	Created    int  `json:"created"`
}

func NewContractController(contracts *services.ContractService, obligations *services.ObligationService, exports *services.ExportService, monthsAhead int) *ContractController {
	return &ContractController{
		contracts:   contracts,
		obligations: obligations,
		exports:     exports,
		monthsAhead: monthsAhead,
	}
}

// CreateContract создает договор
func (c *ContractController) CreateContract(w http.ResponseWriter, r *http.Request) {
	var dto services.ContractDTO
	if !decodeJSON(w, r, &dto) {
		return
	}

	contract, err := c.contracts.Create(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

// GetContracts возвращает договоры, фильтры ?status=&property_id=&tenant_id=
func (c *ContractController) GetContracts(w http.ResponseWriter, r *http.Request) {
	filter := services.ContractFilter{Status: models.ContractStatus(r.URL.Query().Get("status"))}

	var err error
	if filter.PropertyID, err = queryUint(r, "property_id"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid property_id"})
		return
	}
	if filter.TenantID, err = queryUint(r, "tenant_id"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid tenant_id"})
		return
	}

	contracts, err := c.contracts.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

// GetContract возвращает договор по ID
func (c *ContractController) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	contract, err := c.contracts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// UpdateContract перезаписывает договор
func (c *ContractController) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dto services.ContractDTO
	if !decodeJSON(w, r, &dto) {
		return
	}

	contract, err := c.contracts.Update(r.Context(), id, dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// SetContractStatus меняет статус договора
func (c *ContractController) SetContractStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contract, err := c.contracts.SetStatus(r.Context(), id, models.ContractStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// DeleteContract удаляет договор без обязательств
func (c *ContractController) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := c.contracts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnsureObligations достраивает окно обязательств, ?months= (по умолчанию из конфигурации)
func (c *ContractController) EnsureObligations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	months := c.monthsAhead
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid months"})
			return
		}
		months = n
	}

	created, err := c.obligations.EnsureObligationsWindow(r.Context(), id, months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EnsureWindowResponse{ContractID: id, Months: months, Created: created})
}

// GetContractObligations возвращает обязательства договора
func (c *ContractController) GetContractObligations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := c.contracts.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	obligations, err := c.obligations.List(r.Context(), services.ObligationFilter{ContractID: &id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obligations)
}

// ExportObligations отдает график обязательств файлом, ?format=xml|xlsx
func (c *ContractController) ExportObligations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	file, err := c.exports.ExportContractObligations(r.Context(), id, services.ExportFormat(r.URL.Query().Get("format")))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
