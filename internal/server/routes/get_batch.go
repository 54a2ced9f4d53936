package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

func GetBatchHandler(c echo.Context) error {
	type batchResponse struct {
		ID             string         `json:"id"`
		DocumentIDs    []string       `json:"document_ids"`
		Counts         map[string]int `json:"status_counts"`
		FillerCount    int            `json:"filler_count"`
		FailedShare    float64        `json:"failed_share"`
		PublishBlocked bool           `json:"publish_blocked"`
		StartedAt      string         `json:"started_at"`
		FinishedAt     string         `json:"finished_at"`
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Store

	report, err := st.BatchReportByID(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "batch not found"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	counts := make(map[string]int, len(report.Counts))
	for status, n := range report.Counts {
		counts[string(status)] = n
	}

	return c.JSON(http.StatusOK, batchResponse{
		ID:             report.ID,
		DocumentIDs:    report.DocumentIDs,
		Counts:         counts,
		FillerCount:    report.FillerCount,
		FailedShare:    report.FailedShare,
		PublishBlocked: report.PublishBlocked,
		StartedAt:      report.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		FinishedAt:     report.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
