package controllers

import (
	"net/http"

	"leasekeeper/models"
	"leasekeeper/services"
)

// PropertyController обрабатывает запросы к объектам и контрагентам
type PropertyController struct {
	properties *services.PropertyService
	parties    *services.PartyService
}

func NewPropertyController(properties *services.PropertyService, parties *services.PartyService) *PropertyController {
	return &PropertyController{properties: properties, parties: parties}
}

// CreateProperty создает объект
func (c *PropertyController) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var dto services.PropertyDTO
	if !decodeJSON(w, r, &dto) {
		return
	}

	property, err := c.properties.Create(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, property)
}

// GetProperties возвращает список объектов
func (c *PropertyController) GetProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := c.properties.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

// GetProperty возвращает объект по ID
func (c *PropertyController) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	property, err := c.properties.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

// DeleteProperty удаляет объект
func (c *PropertyController) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := c.properties.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateParty создает контрагента
func (c *PropertyController) CreateParty(w http.ResponseWriter, r *http.Request) {
	var dto services.PartyDTO
	if !decodeJSON(w, r, &dto) {
		return
	}

	party, err := c.parties.Create(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, party)
}

// GetParties возвращает контрагентов, фильтр ?type=TENANT
func (c *PropertyController) GetParties(w http.ResponseWriter, r *http.Request) {
	parties, err := c.parties.List(r.Context(), models.PartyType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

// GetParty возвращает контрагента по ID
func (c *PropertyController) GetParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	party, err := c.parties.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, party)
}

// DeleteParty удаляет контрагента
func (c *PropertyController) DeleteParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := c.parties.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
