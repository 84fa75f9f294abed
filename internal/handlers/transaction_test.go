package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func createTransaction(t *testing.T, env *testEnv, token string, payload fiber.Map) map[string]interface{} {
	t.Helper()

	resp, body := env.request(http.MethodPost, "/api/v1/transactions", payload, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, body["id"])
	return body
}

func TestTransactionCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupVerified("a@x.com", "secret1")

	created := createTransaction(t, env, token, fiber.Map{
		"type":     "expense",
		"amount":   42.50,
		"currency": "USD",
		"category": "Transport",
		"note":     "taxi home",
		"date":     "2024-05-10T12:00:00Z",
	})
	id := created["id"].(string)

	resp, fetched := env.request(http.MethodGet, "/api/v1/transactions/"+id, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "expense", fetched["type"])
	require.Equal(t, 42.50, fetched["amount"])
	require.Equal(t, "taxi home", fetched["note"])

	resp, updated := env.request(http.MethodPut, "/api/v1/transactions/"+id, fiber.Map{
		"amount": 45.00,
		"note":   "taxi home, tip included",
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 45.00, updated["amount"])
	require.Equal(t, "Transport", updated["category"])

	resp, _ = env.request(http.MethodDelete, "/api/v1/transactions/"+id, nil, token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.request(http.MethodGet, "/api/v1/transactions/"+id, nil, token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransactionValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupVerified("a@x.com", "secret1")

	resp, _ := env.request(http.MethodPost, "/api/v1/transactions", fiber.Map{
		"type":     "transfer",
		"amount":   10.0,
		"currency": "USD",
		"category": "Other",
		"date":     "2024-05-10T12:00:00Z",
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(http.MethodPost, "/api/v1/transactions", fiber.Map{
		"type":     "expense",
		"amount":   -5.0,
		"currency": "USD",
		"category": "Other",
		"date":     "2024-05-10T12:00:00Z",
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransactionListFiltersAndPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupVerified("a@x.com", "secret1")

	createTransaction(t, env, token, fiber.Map{
		"type": "income", "amount": 1000.0, "currency": "USD",
		"category": "Salary", "date": "2024-05-01T09:00:00Z",
	})
	createTransaction(t, env, token, fiber.Map{
		"type": "expense", "amount": 20.0, "currency": "USD",
		"category": "Transport", "note": "bus ticket", "date": "2024-05-02T09:00:00Z",
	})
	createTransaction(t, env, token, fiber.Map{
		"type": "expense", "amount": 80.0, "currency": "USD",
		"category": "Shopping", "note": "groceries", "date": "2024-05-03T09:00:00Z",
	})

	resp, body := env.request(http.MethodGet, "/api/v1/transactions", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, body["total"])
	items := body["items"].([]interface{})
	require.Len(t, items, 3)
	// Newest first.
	require.Equal(t, "Shopping", items[0].(map[string]interface{})["category"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?type=expense", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, body["total"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?category=Salary", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?amount_min=50&amount_max=200", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?search=groceries", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = env.request(
		http.MethodGet,
		"/api/v1/transactions?date_from=2024-05-02T00:00:00Z&date_to=2024-05-02T23:59:59Z",
		nil, token,
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?page=1&page_size=2", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, body["total"])
	require.Len(t, body["items"].([]interface{}), 2)
	require.Equal(t, true, body["has_more"])

	resp, body = env.request(http.MethodGet, "/api/v1/transactions?page=2&page_size=2", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["items"].([]interface{}), 1)
	require.Equal(t, false, body["has_more"])
}

func TestTransactionScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	ownerToken := env.signupVerified("a@x.com", "secret1")
	otherToken := env.signupVerified("b@y.com", "secret2")

	created := createTransaction(t, env, ownerToken, fiber.Map{
		"type": "expense", "amount": 20.0, "currency": "USD",
		"category": "Transport", "date": "2024-05-02T09:00:00Z",
	})
	id := created["id"].(string)

	resp, body := env.request(http.MethodGet, "/api/v1/transactions", nil, otherToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, body["total"])

	resp, _ = env.request(http.MethodGet, "/api/v1/transactions/"+id, nil, otherToken)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMonthlyStats(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupVerified("a@x.com", "secret1")

	createTransaction(t, env, token, fiber.Map{
		"type": "income", "amount": 1000.0, "currency": "USD",
		"category": "Salary", "date": "2024-05-10T12:00:00Z",
	})
	createTransaction(t, env, token, fiber.Map{
		"type": "expense", "amount": 200.0, "currency": "USD",
		"category": "Transport", "date": "2024-05-12T12:00:00Z",
	})
	createTransaction(t, env, token, fiber.Map{
		"type": "expense", "amount": 50.0, "currency": "USD",
		"category": "Mystery", "date": "2024-05-12T18:00:00Z",
	})
	// Outside the requested month.
	createTransaction(t, env, token, fiber.Map{
		"type": "expense", "amount": 999.0, "currency": "USD",
		"category": "Transport", "date": "2024-06-01T00:00:00Z",
	})

	resp, body := env.request(http.MethodGet, "/api/v1/transactions/stats?month=2024-05", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1000.0, body["total_income"])
	require.Equal(t, 250.0, body["total_expenses"])
	require.Equal(t, 750.0, body["balance"])

	byCategory := body["by_category"].([]interface{})
	require.Len(t, byCategory, 2)
	first := byCategory[0].(map[string]interface{})
	require.Equal(t, "Transport", first["category"])
	require.Equal(t, 200.0, first["amount"])
	// Transport is a seeded default category; its color comes from the table.
	require.Equal(t, "#3B82F6", first["color"])
	second := byCategory[1].(map[string]interface{})
	require.Equal(t, "Mystery", second["category"])
	require.Equal(t, "#6B7280", second["color"])

	// A past month yields the full zero-filled series.
	daily := body["daily"].([]interface{})
	require.Len(t, daily, 31)
	day10 := daily[9].(map[string]interface{})
	require.Equal(t, "2024-05-10", day10["date"])
	require.Equal(t, 1000.0, day10["income"])
	require.Equal(t, 0.0, day10["expense"])
	day12 := daily[11].(map[string]interface{})
	require.Equal(t, 250.0, day12["expense"])
	day1 := daily[0].(map[string]interface{})
	require.Equal(t, 0.0, day1["income"])
	require.Equal(t, 0.0, day1["expense"])
}

func TestMonthlyStatsBadMonth(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupVerified("a@x.com", "secret1")

	resp, _ := env.request(http.MethodGet, "/api/v1/transactions/stats?month=May-2024", nil, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
