package upstream

import "context"

// Vergers lists the orchard reference collection.
func (c *Client) Vergers(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/vergers", nil, &out)
	return out, err
}

// Varietes lists crop varieties; each option carries its variety-group id.
func (c *Client) Varietes(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/varietes", nil, &out)
	return out, err
}

// GrpVars lists variety groups.
func (c *Client) GrpVars(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/grpvars", nil, &out)
	return out, err
}

// Destinations lists shipping destinations.
func (c *Client) Destinations(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/destinations", nil, &out)
	return out, err
}

// TypeEcarts lists discrepancy type codes.
func (c *Client) TypeEcarts(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/typeecarts", nil, &out)
	return out, err
}

// CampagneDates returns the default date range of the active campaign.
func (c *Client) CampagneDates(ctx context.Context) (CampagneDates, error) {
	var out CampagneDates
	err := c.get(ctx, "/api/lookup/campagne-dates", nil, &out)
	return out, err
}

// Partenaires lists partners of the given type (clients, transporteurs...).
func (c *Client) Partenaires(ctx context.Context, partnerType string) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/partenaires/"+partnerType, nil, &out)
	return out, err
}

// TPalettes lists pallet types.
func (c *Client) TPalettes(ctx context.Context) ([]Option, error) {
	var out []Option
	err := c.get(ctx, "/api/lookup/tpalettes", nil, &out)
	return out, err
}
