package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	lots := router.Group("/api/stock-lots", middleware.RequireAuth())
	{
		lots.POST("", h.CreateStockLot)
		lots.GET("", h.ListStockLots)
		lots.POST("/:id/receive", h.ReceiveStock)
	}
}

// CreateStockLot registers a new batch of stock
// @Summary      Create stock lot
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateStockLotRequest  true  "Create Stock Lot Payload"
// @Success      201      {object}  response.Response{data=service.StockLotResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/stock-lots [post]
func (h *StockHandler) CreateStockLot(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	var req service.CreateStockLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	lot, err := h.stockService.CreateStockLot(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lot))
}

// ListStockLots returns a paginated list of stock lots
// @Summary      List stock lots
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.ListData}
// @Failure      500    {object}  response.Response
// @Router       /api/stock-lots [get]
func (h *StockHandler) ListStockLots(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	lots, total, err := h.stockService.ListStockLots(c.Request.Context(), tenant, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.ListData{
		Items: lots,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

type receiveStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ReceiveStock adds quantity to an existing lot
// @Summary      Receive stock
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Stock Lot ID"
// @Param        payload  body      receiveStockRequest  true  "Receive Stock Payload"
// @Success      200      {object}  response.Response{data=service.StockLotResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/stock-lots/{id}/receive [post]
func (h *StockHandler) ReceiveStock(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid stock lot id"))
		return
	}

	var req receiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	lot, err := h.stockService.ReceiveStock(c.Request.Context(), tenant, lotID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, lot))
}
