package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
)

// validateAmount 在取得任何鎖、建立任何帳戶之前執行，失敗不得有副作用
// 規則: 金額必須為正數、最多兩位小數、不得超過單筆上限
func (s *Service) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: the amount must be greater than 0", domain.ErrInvalidAmount)
	}

	if amount.Exponent() < -domain.AmountScale {
		return fmt.Errorf("%w: at most %d decimal places", domain.ErrInvalidAmount, domain.AmountScale)
	}

	if amount.GreaterThan(s.maxAmount) {
		return fmt.Errorf("%w: the amount is too large", domain.ErrInvalidAmount)
	}
	return nil
}
