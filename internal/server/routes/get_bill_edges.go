package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
)

func GetBillEdgesHandler(c echo.Context) error {
	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Store

	edges, err := st.EdgesForBill(ctx, c.Param("id"))
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, edges)
}
