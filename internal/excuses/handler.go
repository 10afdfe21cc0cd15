package excuses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PTAS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/excuses", h.Submit)
	r.GET("/excuses/types", h.Types)
	r.GET("/excuses/me", h.ListOwn)
}

// RegisterAdminRoutes: 一覧・統計・承認/却下は admin 専用
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/excuses", h.ListAll)
	r.GET("/excuses/statistics", h.Statistics)
	r.POST("/excuses/:excuse_id/approve", h.Approve)
	r.POST("/excuses/:excuse_id/reject", h.Reject)
}

// POST /excuses
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /excuses/types
func (h *Handler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"excuse_types": h.svc.Types()})
}

// GET /excuses/me
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
	pending, err := h.svc.PendingCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"excuses": rows, "total": total, "pending": pending})
}

// GET /excuses
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
	c.JSON(http.StatusOK, gin.H{"excuses": rows, "total": total})
}

// GET /excuses/statistics
func (h *Handler) Statistics(c *gin.Context) {
	res, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /excuses/:excuse_id/approve
func (h *Handler) Approve(c *gin.Context) { h.review(c, StatusApproved) }

// POST /excuses/:excuse_id/reject
func (h *Handler) Reject(c *gin.Context) { h.review(c, StatusRejected) }

func (h *Handler) review(c *gin.Context, status ExcuseStatus) {
	reviewerID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}
	excuseID, err := strconv.ParseInt(c.Param("excuse_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid excuse_id")))
		return
	}

	// ボディ省略可（却下理由なしも許す）
	var req ReviewRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.svc.Review(c.Request.Context(), excuseID, reviewerID, status, req.AdminNotes)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseListQuery(c *gin.Context) ListQuery {
	var q ListQuery
	if v := c.Query("status"); v != "" {
		st := ExcuseStatus(v)
		q.Status = &st
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return q
}

// ===== helpers =====
type errDTO struct {
	Error *APIError `json:"error"`
}

func newErrDTO(err error) errDTO {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errDTO{Error: apiErr}
	}
	return errDTO{Error: ErrInternal("internal error")}
}
