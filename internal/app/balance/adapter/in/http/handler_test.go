package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/adapter/out/memory"
	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
)

func newTestApp(t *testing.T, userIDs ...int64) *fiber.App {
	t.Helper()

	store, err := memory.NewStore(nil, zap.NewNop())
	require.NoError(t, err)
	identity := memory.NewIdentityDirectory(userIDs...)
	service := usecase.NewService(store, identity, zap.NewNop(), decimal.NewFromInt(100000))
	return NewApp(service, zap.NewNop())
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	return resp, envelope
}

func TestDepositReturnsBalanceAndTransactionID(t *testing.T) {
	app := newTestApp(t, 1)

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 1, "amount": 500.00, "comment": "x"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `true`, string(envelope["success"]))

	var data operationData
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.True(t, data.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1), data.TransactionID)
}

func TestDepositUnknownUserIs404(t *testing.T) {
	app := newTestApp(t, 1)

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 42, "amount": 10.00}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `false`, string(envelope["success"]))
}

func TestWithdrawInsufficientIs409(t *testing.T) {
	app := newTestApp(t, 1)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 1, "amount": 50.00}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/withdraw",
		`{"user_id": 1, "amount": 150.00}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `false`, string(envelope["success"]))
	assert.Contains(t, string(envelope["message"]), "insufficient balance")
}

func TestTransferMovesFundsOverHTTP(t *testing.T) {
	app := newTestApp(t, 1, 2)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 1, "amount": 500.00}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := doJSON(t, app, fiber.MethodPost, "/api/transfer",
		`{"from_user_id": 1, "to_user_id": 2, "amount": 150.00, "comment": "y"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data transferData
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.True(t, data.FromUserBalance.Equal(decimal.NewFromInt(350)))
	assert.True(t, data.ToUserBalance.Equal(decimal.NewFromInt(150)))
	assert.True(t, data.TransferredAmount.Equal(decimal.NewFromInt(150)))
}

func TestSelfTransferIs409(t *testing.T) {
	app := newTestApp(t, 4)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/transfer",
		`{"from_user_id": 4, "to_user_id": 4, "amount": 10.00}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestInvalidAmountIs409(t *testing.T) {
	app := newTestApp(t, 1)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 1, "amount": -5}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMalformedBodyIs422(t *testing.T) {
	app := newTestApp(t, 1)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/deposit", `{"user_id": `)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/deposit",
		`{"user_id": 1, "amount": 5, "ref_id": "not-a-uuid"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetBalanceRoute(t *testing.T) {
	app := newTestApp(t, 3)

	resp, envelope := doJSON(t, app, fiber.MethodGet, "/api/balance/3", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data balanceData
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.Equal(t, int64(3), data.UserID)
	assert.True(t, data.Balance.IsZero())

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/balance/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/balance/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
