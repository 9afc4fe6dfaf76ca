package domain

import "github.com/shopspring/decimal"

// AmountScale 金額精度：小數點後 2 位
// 所有金額一律使用 decimal 定點數，嚴禁 float，避免累積誤差
const AmountScale = 2

// Account 帳戶餘額紀錄
// 不變量: Balance >= 0，任何操作前後皆成立
type Account struct {
	UserID  int64
	Balance decimal.Decimal
}

// NewAccount 建立一個餘額為零的新帳戶
func NewAccount(userID int64) *Account {
	return &Account{
		UserID:  userID,
		Balance: decimal.Zero,
	}
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款 餘額不足時回傳 ErrInsufficientBalance，餘額不變
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Clone 回傳帳戶的複本，供交易暫存區使用
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
