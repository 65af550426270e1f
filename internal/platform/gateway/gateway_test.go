package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestClientGateway_GetClientByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clientes/4", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"id":4,"nombre":"Ana Torres","dni":"0102030405","email":"ana@example.com","estadoCliente":{"id":1,"nombre":"ACTIVO"}}`)
	})
	mux.HandleFunc("/api/clientes/5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":5,"nombre":"Luis","estadoCliente":{"estado":"INACTIVO"}}`)
	})
	mux.HandleFunc("/api/clientes/6", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"database down"}`)
	})
	mux.HandleFunc("/api/clientes/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gw := NewClientGateway(newTestLogger(), NewHTTPClient(2*time.Second), server.URL+"/")
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		c, err := gw.GetClientByID(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, &client.Client{ID: 4, Name: "Ana Torres", TaxID: "0102030405", Email: "ana@example.com", Status: "ACTIVO"}, c)
		assert.True(t, c.IsActive())
	})

	t.Run("StatusFromEstadoField", func(t *testing.T) {
		c, err := gw.GetClientByID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "INACTIVO", c.Status)
		assert.False(t, c.IsActive())
	})

	t.Run("NotFound", func(t *testing.T) {
		c, err := gw.GetClientByID(ctx, 99)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, client.ErrClientNotFound{ClientID: 99})
	})

	t.Run("ServerError", func(t *testing.T) {
		c, err := gw.GetClientByID(ctx, 6)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, shared.ErrIntegrationFailure)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		_, err := gw.GetClientByID(ctx, 7)
		assert.ErrorIs(t, err, shared.ErrIntegrationFailure)
	})
}

func TestClientGateway_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	gw := NewClientGateway(newTestLogger(), NewHTTPClient(time.Second), url)
	_, err := gw.GetClientByID(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrIntegrationFailure)
}

func TestAccountGateway_GetAccountByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cuentas/11", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":11,"clienteId":4,"tipoCuenta":{"nombre":"AHORROS"},"estadoCuenta":{"nombre":"ACTIVA"},"saldo":50000.25}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gw := NewAccountGateway(newTestLogger(), NewHTTPClient(2*time.Second), server.URL, server.URL)

	t.Run("Found", func(t *testing.T) {
		acc, err := gw.GetAccountByID(context.Background(), 11)
		require.NoError(t, err)
		assert.Equal(t, int64(11), acc.ID)
		assert.Equal(t, int64(4), acc.ClientID)
		assert.Equal(t, "AHORROS", acc.Type)
		assert.True(t, acc.IsActive())
		assert.True(t, decimal.RequireFromString("50000.25").Equal(acc.Balance))
	})

	t.Run("NotFound", func(t *testing.T) {
		acc, err := gw.GetAccountByID(context.Background(), 12)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: 12})
	})
}

func TestAccountGateway_ListTransactions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transacciones/cuenta/11", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"monto":10000,"tipoTransaccion":{"nombre":"DEPOSITO"},"fecha":"2024-01-15","referencia":"salary"},
			{"monto":"250.50","tipoTransaccion":{"nombre":"RETIRO"},"fecha":"2024-01-20T10:15:00","referencia":"atm"},
			{"monto":12,"tipoTransaccion":null,"fecha":"2024-02-01T08:00:00Z"}
		]`)
	})
	transactions := httptest.NewServer(mux)
	defer transactions.Close()

	gw := NewAccountGateway(newTestLogger(), NewHTTPClient(2*time.Second), "http://accounts.invalid", transactions.URL)

	txs, err := gw.ListTransactions(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.True(t, decimal.NewFromInt(10000).Equal(txs[0].Amount))
	assert.Equal(t, account.TransactionType("DEPOSITO"), txs[0].Type)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.True(t, txs[0].Type.IsIncome())

	assert.True(t, decimal.RequireFromString("250.50").Equal(txs[1].Amount))
	assert.True(t, txs[1].Type.IsExpense())
	assert.Equal(t, "atm", txs[1].Reference)

	assert.Equal(t, account.TransactionType(""), txs[2].Type)
}

func TestAccountGateway_SubmitTransaction(t *testing.T) {
	var received map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cuentas/11/transacciones", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":900}`)
	})
	mux.HandleFunc("/api/cuentas/13/transacciones", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gw := NewAccountGateway(newTestLogger(), NewHTTPClient(2*time.Second), server.URL, server.URL)
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Created", func(t *testing.T) {
		err := gw.SubmitTransaction(context.Background(), 11, account.Transaction{
			Amount:    decimal.NewFromInt(2000),
			Type:      account.TransactionTypeCredit,
			Date:      date,
			Reference: "loan disbursement id:7",
		})
		require.NoError(t, err)

		assert.EqualValues(t, 11, received["cuentaId"])
		assert.Equal(t, "CREDITO", received["tipoTransaccion"])
		assert.Equal(t, "2000", received["monto"])
		assert.Equal(t, "2024-03-01T12:00:00Z", received["fecha"])
		assert.Equal(t, "loan disbursement id:7", received["referencia"])
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		err := gw.SubmitTransaction(context.Background(), 13, account.Transaction{Amount: decimal.NewFromInt(1), Type: account.TransactionTypeDebit})
		assert.ErrorIs(t, err, shared.ErrIntegrationFailure)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		err := gw.SubmitTransaction(context.Background(), 14, account.Transaction{Amount: decimal.NewFromInt(1), Type: account.TransactionTypeDebit})
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: 14})
	})
}

func TestAccountGateway_UpdateAccount(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/cuentas/11", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	gw := NewAccountGateway(newTestLogger(), NewHTTPClient(2*time.Second), server.URL, server.URL)
	balance := decimal.RequireFromString("52000.25")

	err := gw.UpdateAccount(context.Background(), 11, account.Patch{Balance: &balance})
	require.NoError(t, err)
	assert.Equal(t, "52000.25", received["saldo"])
}
