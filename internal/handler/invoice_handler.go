package handler

import (
	"net/http"
	"strconv"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoiceService     service.InvoiceService
	balanceService     service.BalanceService
	fulfillmentService service.FulfillmentService
}

func NewInvoiceHandler(
	invoiceService service.InvoiceService,
	balanceService service.BalanceService,
	fulfillmentService service.FulfillmentService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:     invoiceService,
		balanceService:     balanceService,
		fulfillmentService: fulfillmentService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", middleware.RequireAuth())
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id/balance", h.GetInvoiceBalance)
		invoices.POST("/:id/deliver", h.DeliverInvoice)
	}
}

// CreateInvoice creates an invoice with its lines
// @Summary      Create invoice
// @Description  Creates an invoice and its stock-lot lines; stock is not touched until delivery
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices with derived balances
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        customer_id  query     string  false  "Filter by customer"
// @Param        delivered    query     bool    false  "Filter by delivery state"
// @Param        proforma     query     bool    false  "Filter by proforma flag"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.ListData}
// @Failure      500          {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.ListInvoicesFilter{Page: params.Page, Limit: params.Limit}

	if raw := c.Query("customer_id"); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid customer_id"))
			return
		}
		filter.CustomerID = &customerID
	}
	if raw := c.Query("delivered"); raw != "" {
		delivered, err := strconv.ParseBool(raw)
		if err == nil {
			filter.IsDelivered = &delivered
		}
	}
	if raw := c.Query("proforma"); raw != "" {
		proforma, err := strconv.ParseBool(raw)
		if err == nil {
			filter.IsProforma = &proforma
		}
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), tenant, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.ListData{
		Items: invoices,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetInvoiceBalance returns derived totals for one invoice
// @Summary      Invoice balance
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceBalance}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/balance [get]
func (h *InvoiceHandler) GetInvoiceBalance(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice id"))
		return
	}

	balance, err := h.balanceService.GetInvoiceBalance(c.Request.Context(), tenant, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// DeliverInvoice marks the invoice delivered and decrements its stock lots
// @Summary      Deliver invoice
// @Description  Atomically flips the delivered flags and decrements every referenced stock lot
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.DeliveryResult}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/deliver [post]
func (h *InvoiceHandler) DeliverInvoice(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice id"))
		return
	}

	result, err := h.fulfillmentService.DeliverInvoice(c.Request.Context(), tenant, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
