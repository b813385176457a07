package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"payledger/internal/errors"
	"payledger/internal/model"
	"payledger/internal/service"
)

// UserHandler handles user registry endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents a user creation request. TotalInvestment is a
// decimal string and only applies to CLIENT users.
type CreateUserRequest struct {
	Code            string  `json:"code" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	Username        string  `json:"username" validate:"required"`
	Password        string  `json:"password" validate:"required,min=6"`
	Role            string  `json:"role" validate:"required,oneof=ADMIN COLLABORATOR CLIENT"`
	TotalInvestment *string `json:"total_investment,omitempty"`
}

// UpdateUserRequest represents a partial user update. Absent fields keep
// their previous values. There is no total_paid field: the aggregate is owned
// by the ledger.
type UpdateUserRequest struct {
	Code            *string `json:"code,omitempty"`
	Name            *string `json:"name,omitempty"`
	Username        *string `json:"username,omitempty"`
	Password        *string `json:"password,omitempty"`
	TotalInvestment *string `json:"total_investment,omitempty"`
}

// UserResponse represents a user in API responses. Monetary aggregates are
// only present for CLIENT users.
type UserResponse struct {
	ID              string            `json:"id"`
	Code            string            `json:"code"`
	Name            string            `json:"name"`
	Username        string            `json:"username"`
	Role            string            `json:"role"`
	TotalInvestment *string           `json:"total_investment,omitempty"`
	TotalPaid       *string           `json:"total_paid,omitempty"`
	Payments        []PaymentResponse `json:"payments,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toUserResponse(u *model.User, includePayments bool) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Code:      u.Code,
		Name:      u.Name,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if u.IsClient() {
		investment := u.TotalInvestment.StringFixed(2)
		paid := u.TotalPaid.StringFixed(2)
		resp.TotalInvestment = &investment
		resp.TotalPaid = &paid
		if includePayments {
			resp.Payments = make([]PaymentResponse, 0, len(u.Payments))
			for i := range u.Payments {
				resp.Payments = append(resp.Payments, toPaymentResponse(&u.Payments[i]))
			}
		}
	}
	return resp
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, errors.ErrInvalidAmount
	}
	return &d, nil
}

// ListUsers godoc
// @Summary List users, optionally filtered by role
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter: ADMIN, COLLABORATOR, or CLIENT"
// @Success 200 {array} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	var role *model.Role
	if v := c.QueryParam("role"); v != "" {
		r := model.Role(v)
		role = &r
	}

	users, err := h.userService.List(c.Request().Context(), principal, role)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i], true))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetUser godoc
// @Summary Get a user by id, including payments for clients
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := h.userService.Get(c.Request().Context(), principal, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, toUserResponse(user, true))
}

// CreateUser godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User data"
// @Success 201 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	investment, err := parseOptionalDecimal(req.TotalInvestment)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	user, err := h.userService.Create(c.Request().Context(), principal, service.CreateUserRequest{
		Code:            req.Code,
		Name:            req.Name,
		Username:        req.Username,
		Password:        req.Password,
		Role:            model.Role(req.Role),
		TotalInvestment: investment,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, toUserResponse(user, false))
}

// UpdateUser godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	investment, err := parseOptionalDecimal(req.TotalInvestment)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	user, err := h.userService.Update(c.Request().Context(), principal, id, service.UpdateUserRequest{
		Code:            req.Code,
		Name:            req.Name,
		Username:        req.Username,
		Password:        req.Password,
		TotalInvestment: investment,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, toUserResponse(user, false))
}

// DeleteUser godoc
// @Summary Delete a user, cascading a client's payments
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.userService.Delete(c.Request().Context(), principal, id); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}
