package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/microlending/loan-engine/internal/domain/client"
)

type clientResponse struct {
	ID            int64  `json:"id"`
	Nombre        string `json:"nombre"`
	DNI           string `json:"dni"`
	Email         string `json:"email"`
	EstadoCliente *named `json:"estadoCliente"`
}

// ClientGateway reads clients from the client service
type ClientGateway struct {
	baseURL string
	client  jsonClient
}

// NewClientGateway creates a client service adapter rooted at baseURL
func NewClientGateway(logger *slog.Logger, doer HTTPDoer, baseURL string) *ClientGateway {
	return &ClientGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newJSONClient(doer, logger, "client-service"),
	}
}

// GetClientByID fetches one client
func (g *ClientGateway) GetClientByID(ctx context.Context, id int64) (*client.Client, error) {
	var resp clientResponse
	err := g.client.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/clientes/%d", g.baseURL, id), nil, &resp)
	if err != nil {
		if errors.Is(err, errRemoteNotFound) {
			return nil, client.ErrClientNotFound{ClientID: id}
		}
		return nil, err
	}

	return &client.Client{
		ID:     resp.ID,
		Name:   resp.Nombre,
		TaxID:  resp.DNI,
		Email:  resp.Email,
		Status: resp.EstadoCliente.value(),
	}, nil
}
