package attendance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PTAS-backend/internal/platform/auth"
	"PTAS-backend/internal/qrcode"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/attendance/scan", h.RecordScan)
	r.GET("/attendance/status", h.Status)
	r.GET("/attendance/me", h.ListOwn)
}

// RegisterAdminRoutes: 全ユーザの記録閲覧は admin 専用
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/attendance/records", h.ListAll)
}

// POST /attendance/scan
func (h *Handler) RecordScan(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
		return
	}

	res, err := h.svc.RecordScan(c.Request.Context(), userID, req, c.Request)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /attendance/status
func (h *Handler) Status(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}

	res, err := h.svc.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /attendance/me
func (h *Handler) ListOwn(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}
	q := parseListQuery(c)
	q.UserID = &userID

	rows, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows, "total": total})
}

// GET /attendance/records
func (h *Handler) ListAll(c *gin.Context) {
	q := parseListQuery(c)
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid user_id")))
			return
		}
		q.UserID = &id
	}

	rows, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows, "total": total})
}

func parseListQuery(c *gin.Context) ListQuery {
	var q ListQuery
	if v := c.Query("on"); v != "" {
		q.On = &v
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	q.Sort = c.Query("sort")
	return q
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
	var ledgerErr *qrcode.APIError
	if errors.As(err, &ledgerErr) {
		return errDTO{Error: ledgerErr}
	}
	return errDTO{Error: ErrInternal("internal error")}
}
