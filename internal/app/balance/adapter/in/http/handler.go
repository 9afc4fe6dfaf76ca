package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
)

// maxCommentLen 備註長度上限，超過直接在邊界擋下
const maxCommentLen = 255

// Handler 把 HTTP 請求轉成帳務操作，並把錯誤分類映射成狀態碼
type Handler struct {
	service *usecase.Service
	logger  *zap.Logger
}

func NewHandler(service *usecase.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type depositRequest struct {
	UserID  int64           `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	Comment string          `json:"comment"`
	RefID   string          `json:"ref_id"`
}

type transferRequest struct {
	FromUserID int64           `json:"from_user_id"`
	ToUserID   int64           `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Comment    string          `json:"comment"`
	RefID      string          `json:"ref_id"`
}

type operationData struct {
	Balance       decimal.Decimal `json:"balance"`
	TransactionID int64           `json:"transaction_id"`
}

type transferData struct {
	FromUserBalance   decimal.Decimal `json:"from_user_balance"`
	ToUserBalance     decimal.Decimal `json:"to_user_balance"`
	TransferredAmount decimal.Decimal `json:"transferred_amount"`
}

type balanceData struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// Deposit POST /api/deposit
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, "invalid request body")
	}
	if req.UserID <= 0 {
		return unprocessable(c, "the user ID is required")
	}
	if len(req.Comment) > maxCommentLen {
		return unprocessable(c, "the comment is too long")
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return unprocessable(c, "invalid ref_id")
	}

	result, err := h.service.Deposit(c.Context(), req.UserID, req.Amount, req.Comment, refID)
	if err != nil {
		return h.fail(c, err)
	}

	return ok(c, operationData{
		Balance:       result.Balance,
		TransactionID: result.TransactionID,
	})
}

// Withdraw POST /api/withdraw
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, "invalid request body")
	}
	if req.UserID <= 0 {
		return unprocessable(c, "the user ID is required")
	}
	if len(req.Comment) > maxCommentLen {
		return unprocessable(c, "the comment is too long")
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return unprocessable(c, "invalid ref_id")
	}

	result, err := h.service.Withdraw(c.Context(), req.UserID, req.Amount, req.Comment, refID)
	if err != nil {
		return h.fail(c, err)
	}

	return ok(c, operationData{
		Balance:       result.Balance,
		TransactionID: result.TransactionID,
	})
}

// Transfer POST /api/transfer
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, "invalid request body")
	}
	if req.FromUserID <= 0 || req.ToUserID <= 0 {
		return unprocessable(c, "the user ID is required")
	}
	if len(req.Comment) > maxCommentLen {
		return unprocessable(c, "the comment is too long")
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return unprocessable(c, "invalid ref_id")
	}

	result, err := h.service.Transfer(c.Context(), req.FromUserID, req.ToUserID, req.Amount, req.Comment, refID)
	if err != nil {
		return h.fail(c, err)
	}

	return ok(c, transferData{
		FromUserBalance:   result.FromBalance,
		ToUserBalance:     result.ToBalance,
		TransferredAmount: result.TransferredAmount,
	})
}

// GetBalance GET /api/balance/:user_id
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return unprocessable(c, "the user ID must be an integer")
	}

	result, err := h.service.GetBalance(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	return ok(c, balanceData{
		UserID:  result.UserID,
		Balance: result.Balance,
	})
}

// parseRefID 解析選填的外部追蹤號，空字串代表不追蹤
func parseRefID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
