package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/darkarnold/task-manager-api/internal/api/middleware"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
)

// principal returns the identity set by the Auth middleware. A route mounted
// without Auth fails closed with ErrMissingToken.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, domain.ErrMissingToken
	}
	return p, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.FieldError(domain.ErrInvalidField, "body")
	}
	return c.Validate(req)
}
