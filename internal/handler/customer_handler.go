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

type CustomerHandler struct {
	customerService   service.CustomerService
	balanceService    service.BalanceService
	allocationService service.AllocationService
}

func NewCustomerHandler(
	customerService service.CustomerService,
	balanceService service.BalanceService,
	allocationService service.AllocationService,
) *CustomerHandler {
	return &CustomerHandler{
		customerService:   customerService,
		balanceService:    balanceService,
		allocationService: allocationService,
	}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers", middleware.RequireAuth())
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/:id/summary", h.GetCustomerSummary)
		customers.POST("/:id/payments", h.AllocatePayment)
	}
}

// CreateCustomer creates a customer in the caller's organization
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Create Customer Payload"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// ListCustomers returns the organization's customers
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Filter by name"
// @Success      200     {object}  response.Response{data=response.ListData}
// @Failure      500     {object}  response.Response
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), tenant, params.Page, params.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.ListData{
		Items: customers,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetCustomerSummary returns aggregated balances for one customer
// @Summary      Customer summary
// @Description  Aggregates total sales, paid, due, payment progress and credit utilization
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerSummary}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id}/summary [get]
func (h *CustomerHandler) GetCustomerSummary(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid customer id"))
		return
	}

	summary, err := h.balanceService.GetCustomerSummary(c.Request.Context(), tenant, customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// AllocatePayment applies a bulk payment across the customer's unpaid invoices
// @Summary      Allocate bulk payment
// @Description  Distributes a payment oldest-invoice-first; surplus becomes customer credit
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Customer ID"
// @Param        payload  body      service.AllocatePaymentRequest  true  "Allocation Payload"
// @Success      201      {object}  response.Response{data=service.AllocationResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/customers/{id}/payments [post]
func (h *CustomerHandler) AllocatePayment(c *gin.Context) {
	tenant, ok := mustTenant(c)
	if !ok {
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid customer id"))
		return
	}

	var req service.AllocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.allocationService.AllocatePayment(c.Request.Context(), tenant, customerID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyProcessed {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, result))
}
