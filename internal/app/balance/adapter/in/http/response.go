package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ok 200 成功回應
func ok(c *fiber.Ctx, data any) error {
	return c.Status(http.StatusOK).JSON(successResponse{
		Success: true,
		Data:    data,
	})
}

// unprocessable 422 請求格式錯誤
func unprocessable(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(errorResponse{
		Success: false,
		Message: message,
	})
}

// fail 把錯誤分類映射成狀態碼:
// 查無帳戶 → 404，業務規則違反 → 409，其餘 (含暫時性衝突) → 422
// 這個映射是邊界策略，帳務核心只回傳分類過的錯誤
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := http.StatusUnprocessableEntity

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrTransactionAlreadyProcessed):
		status = http.StatusConflict
	default:
		h.logger.Error("operation failed", zap.Error(err))
	}

	return c.Status(status).JSON(errorResponse{
		Success: false,
		Message: err.Error(),
	})
}
