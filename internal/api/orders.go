package api

import (
	"errors"
	"io"
	"net/http"

	"order-inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	resp, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.orders.UpdateOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bindCriteria accepts an empty body as "no criteria"
func bindCriteria(c *gin.Context) (service.SearchCriteria, bool) {
	var criteria service.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return criteria, false
	}
	return criteria, true
}

// searchOrders searches the database only
func (h *Handler) searchOrders(c *gin.Context) {
	criteria, ok := bindCriteria(c)
	if !ok {
		return
	}

	page, err := h.search.SearchWithDB(c.Request.Context(), criteria)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// searchOrdersWithEngine searches through the search engine, falling back to
// the database when the engine is unavailable
func (h *Handler) searchOrdersWithEngine(c *gin.Context) {
	criteria, ok := bindCriteria(c)
	if !ok {
		return
	}

	page, err := h.search.SearchWithEngine(c.Request.Context(), criteria)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
