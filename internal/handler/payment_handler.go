package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"payledger/internal/errors"
	"payledger/internal/model"
	"payledger/internal/service"
)

// PaymentHandler handles payment ledger endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest represents a payment creation request. Image travels
// base64-encoded and must be accompanied by its MIME type.
type CreatePaymentRequest struct {
	ClientID  string `json:"client_id" validate:"required,uuid"`
	Category  string `json:"category" validate:"required"`
	Concept   string `json:"concept" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Image     string `json:"image,omitempty"`
	ImageType string `json:"image_type,omitempty"`
}

// UpdatePaymentRequest represents a partial payment update. Absent fields
// keep their previous values; an explicit empty image and image_type clears
// the attachment.
type UpdatePaymentRequest struct {
	Category  *string `json:"category,omitempty"`
	Concept   *string `json:"concept,omitempty"`
	Amount    *string `json:"amount,omitempty"`
	Image     *string `json:"image,omitempty"`
	ImageType *string `json:"image_type,omitempty"`
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Category  string    `json:"category"`
	Concept   string    `json:"concept"`
	Amount    string    `json:"amount"`
	Image     *string   `json:"image,omitempty"`
	ImageType *string   `json:"image_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentResponse(p *model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:        p.ID.String(),
		ClientID:  p.ClientID.String(),
		Category:  p.Category,
		Concept:   p.Concept,
		Amount:    p.Amount.StringFixed(2),
		CreatedAt: p.CreatedAt,
	}
	if p.HasImage() {
		encoded := base64.StdEncoding.EncodeToString(p.Image)
		resp.Image = &encoded
		resp.ImageType = &p.ImageType
	}
	return resp
}

// ListPayments godoc
// @Summary List payments, most recent first
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param client_id query string false "Filter to one client"
// @Success 200 {array} PaymentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	var clientID *uuid.UUID
	if v := c.QueryParam("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
		}
		clientID = &id
	} else if principal.IsClient() {
		// Clients see their own history without needing to pass a filter.
		own := principal.ID
		clientID = &own
	}

	payments, err := h.paymentService.List(c.Request().Context(), principal, clientID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreatePayment godoc
// @Summary Record a payment for a client
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePaymentRequest true "Payment data"
// @Success 201 {object} PaymentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(errors.ErrInvalidAmount)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	var image []byte
	if req.Image != "" {
		image, err = base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid image encoding")
		}
	}

	payment, err := h.paymentService.Create(c.Request().Context(), principal, service.CreatePaymentRequest{
		ClientID:  clientID,
		Category:  req.Category,
		Concept:   req.Concept,
		Amount:    amount,
		Image:     image,
		ImageType: req.ImageType,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

// UpdatePayment godoc
// @Summary Update a payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param request body UpdatePaymentRequest true "Fields to update"
// @Success 200 {object} PaymentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id} [put]
func (h *PaymentHandler) UpdatePayment(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req UpdatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var amount *decimal.Decimal
	if req.Amount != nil {
		d, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			httpErr := errors.MapErrorToHTTP(errors.ErrInvalidAmount)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		amount = &d
	}

	var image *[]byte
	if req.Image != nil {
		decoded := []byte{}
		if *req.Image != "" {
			decoded, err = base64.StdEncoding.DecodeString(*req.Image)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid image encoding")
			}
		}
		image = &decoded
	}

	payment, err := h.paymentService.Update(c.Request().Context(), principal, id, service.UpdatePaymentRequest{
		Category:  req.Category,
		Concept:   req.Concept,
		Amount:    amount,
		Image:     image,
		ImageType: req.ImageType,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// DeletePayment godoc
// @Summary Delete a payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.paymentService.Delete(c.Request().Context(), principal, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}
