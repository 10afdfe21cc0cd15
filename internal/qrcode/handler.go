package qrcode

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"PTAS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/qrcode/daily", h.GetDailyCode)
	r.GET("/qrcode/daily/image", h.GetDailyCodeImage)
}

// GET /qrcode/daily: 認証ユーザの当日QRコード（なければ発行）
func (h *Handler) GetDailyCode(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}

	res, err := h.svc.GetDailyCode(c.Request.Context(), userID)
	if err != nil {
		c.JSON(ToHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /qrcode/daily/image: 当日QRコードのPNG
func (h *Handler) GetDailyCodeImage(c *gin.Context) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, newErrDTO(ErrInvalid("invalid user context")))
		return
	}

	res, err := h.svc.GetDailyCode(c.Request.Context(), userID)
	if err != nil {
		c.JSON(ToHTTPStatus(err), newErrDTO(err))
		return
	}

	png, err := RenderPNG(res.QrCodeValue, h.svc.imageSize)
	if err != nil {
		c.JSON(ToHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
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
