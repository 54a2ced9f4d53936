package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

func GetStatementStatusHandler(c echo.Context) error {
	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Store

	status, reason, err := st.StatementStatusByID(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "statement not found"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"statement_id": c.Param("id"),
		"status":       string(status),
		"reason":       reason,
	})
}
