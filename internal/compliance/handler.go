package compliance

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: レポート系は admin グループに載せる
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/ip-compliance", h.Report)
	r.GET("/reports/ip-compliance/export", h.Export)
	r.GET("/reports/ip-compliance/today", h.Today)
	r.GET("/reports/ip-compliance/week", h.Week)
	r.GET("/reports/ip-compliance/month", h.Month)
}

// GET /reports/ip-compliance?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (h *Handler) Report(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("start_date and end_date are required")))
		return
	}

	rep, err := h.svc.GenerateReport(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GET /reports/ip-compliance/export
func (h *Handler) Export(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("start_date and end_date are required")))
		return
	}

	data, err := h.svc.ExportCSV(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	filename := "ip-compliance_" + start + "_" + end + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// GET /reports/ip-compliance/today
func (h *Handler) Today(c *gin.Context) {
	h.respond(c, h.svc.TodayReport)
}

// GET /reports/ip-compliance/week
func (h *Handler) Week(c *gin.Context) {
	h.respond(c, h.svc.WeeklyReport)
}

// GET /reports/ip-compliance/month
func (h *Handler) Month(c *gin.Context) {
	h.respond(c, h.svc.MonthlyReport)
}

func (h *Handler) respond(c *gin.Context, fn func(ctx context.Context) (*Report, error)) {
	rep, err := fn(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ===== helpers =====
type errDTO struct {
	Error any `json:"error"`
}

func newErrDTO(err error) errDTO {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errDTO{Error: apiErr}
	}
	return errDTO{Error: ErrInternal("internal error")}
}
