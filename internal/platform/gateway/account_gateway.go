package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/shopspring/decimal"
)

type accountResponse struct {
	ID           int64           `json:"id"`
	ClienteID    int64           `json:"clienteId"`
	TipoCuenta   *named          `json:"tipoCuenta"`
	EstadoCuenta *named          `json:"estadoCuenta"`
	Saldo        decimal.Decimal `json:"saldo"`
}

type transactionResponse struct {
	Monto           decimal.Decimal `json:"monto"`
	TipoTransaccion *named          `json:"tipoTransaccion"`
	Fecha           flexibleTime    `json:"fecha"`
	Referencia      string          `json:"referencia"`
}

type transactionRequest struct {
	CuentaID        int64           `json:"cuentaId"`
	TipoTransaccion string          `json:"tipoTransaccion"`
	Monto           decimal.Decimal `json:"monto"`
	Fecha           time.Time       `json:"fecha"`
	Referencia      string          `json:"referencia"`
}

type accountPatchRequest struct {
	Saldo *decimal.Decimal `json:"saldo,omitempty"`
}

// AccountGateway talks to the account service for balances and ledger writes,
// and to the transaction service for history
type AccountGateway struct {
	accountURL     string
	transactionURL string
	client         jsonClient
}

// NewAccountGateway creates the account and transaction service adapter
func NewAccountGateway(logger *slog.Logger, doer HTTPDoer, accountURL, transactionURL string) *AccountGateway {
	return &AccountGateway{
		accountURL:     strings.TrimRight(accountURL, "/"),
		transactionURL: strings.TrimRight(transactionURL, "/"),
		client:         newJSONClient(doer, logger, "account-service"),
	}
}

// GetAccountByID fetches the account's balance and status
func (g *AccountGateway) GetAccountByID(ctx context.Context, id int64) (*account.Account, error) {
	var resp accountResponse
	if err := g.client.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/cuentas/%d", g.accountURL, id), nil, &resp); err != nil {
		return nil, g.mapErr(err, id)
	}

	return &account.Account{
		ID:       resp.ID,
		ClientID: resp.ClienteID,
		Type:     resp.TipoCuenta.value(),
		Status:   resp.EstadoCuenta.value(),
		Balance:  resp.Saldo,
	}, nil
}

// ListTransactions returns the account's ledger history
func (g *AccountGateway) ListTransactions(ctx context.Context, accountID int64) ([]account.Transaction, error) {
	var resp []transactionResponse
	url := fmt.Sprintf("%s/api/transacciones/cuenta/%d", g.transactionURL, accountID)
	if err := g.client.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, g.mapErr(err, accountID)
	}

	txs := make([]account.Transaction, 0, len(resp))
	for _, r := range resp {
		txs = append(txs, account.Transaction{
			Amount:    r.Monto,
			Type:      account.TransactionType(r.TipoTransaccion.value()),
			Date:      r.Fecha.Time,
			Reference: r.Referencia,
		})
	}
	return txs, nil
}

// SubmitTransaction records a debit or credit against the account
func (g *AccountGateway) SubmitTransaction(ctx context.Context, accountID int64, tx account.Transaction) error {
	body := transactionRequest{
		CuentaID:        accountID,
		TipoTransaccion: string(tx.Type),
		Monto:           tx.Amount,
		Fecha:           tx.Date,
		Referencia:      tx.Reference,
	}
	url := fmt.Sprintf("%s/api/cuentas/%d/transacciones", g.accountURL, accountID)
	if err := g.client.do(ctx, http.MethodPost, url, body, nil); err != nil {
		return g.mapErr(err, accountID)
	}
	return nil
}

// UpdateAccount applies a partial update to the account
func (g *AccountGateway) UpdateAccount(ctx context.Context, id int64, patch account.Patch) error {
	body := accountPatchRequest{Saldo: patch.Balance}
	if err := g.client.do(ctx, http.MethodPut, fmt.Sprintf("%s/api/cuentas/%d", g.accountURL, id), body, nil); err != nil {
		return g.mapErr(err, id)
	}
	return nil
}

func (g *AccountGateway) mapErr(err error, accountID int64) error {
	if errors.Is(err, errRemoteNotFound) {
		return account.ErrAccountNotFound{AccountID: accountID}
	}
	return err
}
