package controllers

import (
	"net/http"
	"time"

	"leasekeeper/middleware"
	"leasekeeper/models"
	"leasekeeper/services"
	"leasekeeper/utils"
)

// ObligationController обрабатывает запросы к обязательствам и поступлениям
type ObligationController struct {
	obligations *services.ObligationService
	receipts    *services.ReceiptService
	clock       utils.Clock
}

type AccountingStatusRequest struct {
	AccountingStatus string `json:"accounting_status"`
}

func NewObligationController(obligations *services.ObligationService, receipts *services.ReceiptService, clock utils.Clock) *ObligationController {
	return &ObligationController{obligations: obligations, receipts: receipts, clock: clock}
}

// GetObligations возвращает обязательства,
// фильтры ?contract_id=&status=&responsible_user_id=&year=&month=
func (c *ObligationController) GetObligations(w http.ResponseWriter, r *http.Request) {
	filter := services.ObligationFilter{Status: models.ObligationStatus(r.URL.Query().Get("status"))}

	var err error
	if filter.ContractID, err = queryUint(r, "contract_id"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid contract_id"})
		return
	}
	if filter.ResponsibleUserID, err = queryUint(r, "responsible_user_id"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid responsible_user_id"})
		return
	}
	if filter.PeriodYear, err = queryInt(r, "year"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid year"})
		return
	}
	if filter.PeriodMonth, err = queryInt(r, "month"); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid month"})
		return
	}

	obligations, err := c.obligations.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obligations)
}

// GetObligation возвращает обязательство с поступлениями и суммой оплат
func (c *ObligationController) GetObligation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := c.obligations.Summary(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RecomputeStatus пересчитывает статус на сегодня или на ?today=ГГГГ-ММ-ДД
func (c *ObligationController) RecomputeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	today := c.clock.Today()
	if raw := r.URL.Query().Get("today"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid today"})
			return
		}
		today = d
	}

	change, err := c.obligations.RecomputeStatus(r.Context(), id, today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// SetStatus устанавливает статус обязательства вручную
func (c *ObligationController) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	change, err := c.obligations.SetStatus(r.Context(), id, models.ObligationStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// GetReceipts возвращает поступления по обязательству
func (c *ObligationController) GetReceipts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := c.obligations.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	receipts, err := c.receipts.ListByObligation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// CreateReceipt фиксирует поступление от имени текущего сотрудника
func (c *ObligationController) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dto services.ReceiptDTO
	if !decodeJSON(w, r, &dto) {
		return
	}

	var receivedBy *uint
	if userID, _, err := middleware.GetUserFromContext(r); err == nil {
		receivedBy = &userID
	}

	receipt, err := c.receipts.Create(r.Context(), id, receivedBy, dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// DeleteReceipt удаляет поступление
func (c *ObligationController) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := c.receipts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAccountingStatus отмечает передачу поступления в бухгалтерию
func (c *ObligationController) SetAccountingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AccountingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := c.receipts.SetAccountingStatus(r.Context(), id, models.AccountingStatus(req.AccountingStatus))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
