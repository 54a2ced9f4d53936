package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

func GetAnalysesHandler(c echo.Context) error {
	type analysisItem struct {
		StatementID  string                `json:"statement_id"`
		DocumentID   string                `json:"document_id"`
		SpeakerName  string                `json:"speaker_name"`
		Text         string                `json:"text"`
		Sentiment    string                `json:"sentiment"`
		Confidence   int                   `json:"confidence"`
		Topics       []string              `json:"topics"`
		QualityScore int                   `json:"quality_score"`
		Citations    []hansard.Citation    `json:"citations"`
		Context      []hansard.ContextItem `json:"context"`
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Store

	filter := store.AnalysisFilter{
		SpeakerID: c.QueryParam("speaker_id"),
		Topic:     c.QueryParam("topic"),
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid from date"})
		}
		filter.From = t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid to date"})
		}
		filter.To = t
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		filter.Limit = n
	}

	records, err := st.ListAnalyses(ctx, filter)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	items := make([]analysisItem, 0, len(records))
	for _, rec := range records {
		items = append(items, analysisItem{
			StatementID:  rec.Statement.ID,
			DocumentID:   rec.Statement.DocumentID,
			SpeakerName:  rec.Statement.SpeakerName,
			Text:         rec.Statement.Text,
			Sentiment:    string(rec.Result.Sentiment),
			Confidence:   rec.Result.Confidence,
			Topics:       rec.Result.Topics,
			QualityScore: rec.Result.QualityScore,
			Citations:    rec.Result.Citations,
			Context:      rec.Result.Context,
		})
	}
	return c.JSON(http.StatusOK, items)
}
