package handler

import (
	"net/http"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"
)

type OrderHandler struct {
	service *service.OrderService
}

func NewOrderHandler(service *service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	id, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "save order")
		return
	}

	response.Created(w, map[string]string{"id": id})
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.Update(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update order")
		return
	}

	response.Message(w, "Order updated")
}

func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.SetOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.SetStatus(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update order status")
		return
	}

	response.Message(w, "Order status updated")
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete order")
		return
	}

	response.Message(w, "Order deleted")
}
