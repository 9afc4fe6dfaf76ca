package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
	"github.com/JoeShih716/go-balance-ledger/pkg/wal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCommitAppliesStagedMutations(t *testing.T) {
	store, err := NewStore(nil, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Lock(7))

	account, err := tx.GetOrCreate(7)
	require.NoError(t, err)
	require.NoError(t, account.Deposit(dec(t, "80.00")))
	require.NoError(t, tx.SaveBalance(account))

	recordID, err := tx.AppendRecord(&domain.TransactionRecord{
		UserID: 7,
		Type:   domain.RecordTypeDeposit,
		Amount: dec(t, "80.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), recordID)

	// 提交前外部看不到任何異動
	_, ok, err := store.FindAccount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tx.Commit())

	got, ok, err := store.FindAccount(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Balance.Equal(dec(t, "80.00")))
	assert.Len(t, store.Records(), 1)
}

func TestRollbackDiscardsStagingAndReleasesLocks(t *testing.T) {
	store, err := NewStore(nil, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Lock(7))

	account, err := tx.GetOrCreate(7)
	require.NoError(t, err)
	require.NoError(t, account.Deposit(dec(t, "80.00")))
	require.NoError(t, tx.SaveBalance(account))
	_, err = tx.AppendRecord(&domain.TransactionRecord{
		UserID: 7,
		Type:   domain.RecordTypeDeposit,
		Amount: dec(t, "80.00"),
	})
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())

	_, ok, err := store.FindAccount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.Records())

	// 鎖必須已釋放：再鎖一次不能卡住
	locked := make(chan struct{})
	go func() {
		tx2, err := store.Begin(ctx)
		assert.NoError(t, err)
		assert.NoError(t, tx2.Lock(7))
		assert.NoError(t, tx2.Rollback())
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released by rollback")
	}
}

func TestCommitIsTerminalForTheTx(t *testing.T) {
	store, err := NewStore(nil, zap.NewNop())
	require.NoError(t, err)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Lock(1))
	account, err := tx.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, account.Deposit(dec(t, "1.00")))
	require.NoError(t, tx.SaveBalance(account))
	require.NoError(t, tx.Commit())

	// Commit 之後 Rollback 是 no-op，其餘操作一律拒絕
	assert.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Lock(1), errTxFinished)
	_, err = tx.GetOrCreate(1)
	assert.ErrorIs(t, err, errTxFinished)
	assert.ErrorIs(t, tx.Commit(), errTxFinished)
}

func TestGetOrCreateRequiresLock(t *testing.T) {
	store, err := NewStore(nil, zap.NewNop())
	require.NoError(t, err)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.GetOrCreate(9)
	assert.Error(t, err)
}

func TestRefMarkedProcessedOnCommit(t *testing.T) {
	store, err := NewStore(nil, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	ref := uuid.New()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	seen, err := tx.RefSeen(ref)
	require.NoError(t, err)
	assert.False(t, seen)
	require.NoError(t, tx.Lock(1))
	account, err := tx.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, account.Deposit(dec(t, "5.00")))
	require.NoError(t, tx.SaveBalance(account))
	require.NoError(t, tx.Commit())

	tx2, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback()
	seen, err = tx2.RefSeen(ref)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestWALRecoveryRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	ctx := context.Background()

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	store, err := NewStore(w, zap.NewNop())
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Lock(1))
	account, err := tx.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, account.Deposit(dec(t, "123.45")))
	require.NoError(t, tx.SaveBalance(account))
	_, err = tx.AppendRecord(&domain.TransactionRecord{
		UserID: 1,
		Type:   domain.RecordTypeDeposit,
		Amount: dec(t, "123.45"),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, store.Close())

	// 重新開啟：狀態從 WAL 重放回來
	w2, err := wal.NewWAL(path)
	require.NoError(t, err)
	restored, err := NewStore(w2, zap.NewNop())
	require.NoError(t, err)
	defer restored.Close()

	got, ok, err := restored.FindAccount(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Balance.Equal(dec(t, "123.45")))

	records := restored.Records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)

	// 紀錄 ID 接續單調遞增
	tx2, err := restored.Begin(ctx)
	require.NoError(t, err)
	recordID, err := tx2.AppendRecord(&domain.TransactionRecord{
		UserID: 1,
		Type:   domain.RecordTypeWithdraw,
		Amount: dec(t, "1.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), recordID)
	require.NoError(t, tx2.Rollback())
}
