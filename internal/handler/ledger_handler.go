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

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	ledger := router.Group("/api/ledger", middleware.RequireAuth())
	{
		ledger.POST("/transactions", h.RecordTransaction)
		ledger.GET("/transactions", h.ListTransactions)
		ledger.GET("/balance", h.GetBalance)
		ledger.POST("/registers", h.CreateRegister)
		ledger.GET("/registers", h.ListRegisters)
	}
}

// RecordTransaction appends a deposit or withdrawal to the ledger
// @Summary      Record ledger transaction
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordTransactionRequest  true  "Record Transaction Payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/ledger/transactions [post]
func (h *LedgerHandler) RecordTransaction(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	var req service.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, err := h.ledgerService.RecordTransaction(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"id": id}))
}

// ListTransactions returns a paginated ledger history, newest first
// @Summary      List ledger transactions
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        register_id  query     string  false  "Filter by cash register"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.ListData}
// @Failure      500          {object}  response.Response
// @Router       /api/ledger/transactions [get]
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	registerID, ok := optionalRegisterID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	txns, total, err := h.ledgerService.ListTransactions(c.Request.Context(), tenant, registerID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.ListData{
		Items: txns,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetBalance returns the signed sum of the ledger
// @Summary      Ledger balance
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        register_id  query     string  false  "Filter by cash register"
// @Success      200          {object}  response.Response
// @Failure      500          {object}  response.Response
// @Router       /api/ledger/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	registerID, ok := optionalRegisterID(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), tenant, registerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"balance": balance}))
}

// CreateRegister creates a named cash register
// @Summary      Create cash register
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRegisterRequest  true  "Create Register Payload"
// @Success      201      {object}  response.Response{data=model.CashRegister}
// @Failure      409      {object}  response.Response
// @Router       /api/ledger/registers [post]
func (h *LedgerHandler) CreateRegister(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	var req service.CreateRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	register, err := h.ledgerService.CreateRegister(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, register))
}

// ListRegisters lists the organization's cash registers
// @Summary      List cash registers
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.CashRegister}
// @Failure      500  {object}  response.Response
// @Router       /api/ledger/registers [get]
func (h *LedgerHandler) ListRegisters(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	registers, err := h.ledgerService.ListRegisters(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, registers))
}

func optionalRegisterID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("register_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid register_id"))
		return nil, false
	}
	return &id, true
}
