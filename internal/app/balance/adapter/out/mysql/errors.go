package mysql

import (
	"context"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
)

// MySQL server error numbers
// 參考: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

// translate 把 driver 層的錯誤翻成帳務核心的錯誤分類
// 鎖等待逾時與死鎖偵測屬於暫時性衝突：沒有任何部分異動殘留，可安全重試
func translate(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case erLockWaitTimeout, erLockDeadlock:
			return fmt.Errorf("%w: %v", domain.ErrTransientConflict, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrTransientConflict, err)
	}
	return err
}
