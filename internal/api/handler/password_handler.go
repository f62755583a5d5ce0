package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

const forgotPasswordAck = "if the account exists, a reset link has been sent"

// PasswordHandler exposes the password reset flow.
type PasswordHandler struct {
	resets ports.PasswordResetService
}

func NewPasswordHandler(resets ports.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	NewPassword     string `json:"newPassword"     validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ForgotPassword handles POST /api/v1/auth/forgot-password. The response is
// identical whether or not the address belongs to an account.
func (h *PasswordHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resets.Initiate(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: forgotPasswordAck})
}

// ResetPassword handles PATCH /api/v1/auth/reset-password/:token.
func (h *PasswordHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	// Checked before the token is looked at, so a typo does not burn it.
	if req.NewPassword != req.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	if err := h.resets.Reset(c.Request().Context(), c.Param("token"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Password reset successful"})
}
