package upstream

import (
	"context"
	"net/http"

	"github.com/tbourn/agritrade-gateway/internal/domain"
)

// ListCrops fetches the crop catalog.
func (c *Client) ListCrops(ctx context.Context) ([]domain.Crop, error) {
	var out []domain.Crop
	if err := c.do(ctx, request{method: http.MethodGet, path: "/crops/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListContacts fetches suppliers, buyers and other counterparties.
func (c *Client) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	var out []domain.Contact
	if err := c.do(ctx, request{method: http.MethodGet, path: "/contacts/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSeasons fetches accounting seasons.
func (c *Client) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	var out []domain.Season
	if err := c.do(ctx, request{method: http.MethodGet, path: "/seasons/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
