package client

import (
	"context"
	"strconv"
	"strings"
)

// Client is the loan service's read-only view of a client owned by the client service
type Client struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TaxID  string `json:"tax_id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// IsActive accepts both the Spanish and English spelling used by the client service
func (c *Client) IsActive() bool {
	switch strings.ToUpper(strings.TrimSpace(c.Status)) {
	case "ACTIVO", "ACTIVE":
		return true
	}
	return false
}

// Gateway reads clients from the client service
type Gateway interface {
	GetClientByID(ctx context.Context, id int64) (*Client, error)
}

// ErrClientNotFound indicates the client service has no such client
type ErrClientNotFound struct {
	ClientID int64
}

func (e ErrClientNotFound) Error() string {
	return "client not found: " + strconv.FormatInt(e.ClientID, 10)
}

// Is matches any ErrClientNotFound when the target carries no ID
func (e ErrClientNotFound) Is(target error) bool {
	t, ok := target.(ErrClientNotFound)
	if !ok {
		return false
	}
	return t.ClientID == 0 || e.ClientID == t.ClientID
}
