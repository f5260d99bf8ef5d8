package upstream

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

const dateParamLayout = "2006-01-02"

// Query carries the filter parameters accepted by the dashboard aggregate
// endpoints. Optional ids are omitted from the query string when nil.
type Query struct {
	StartDate     time.Time
	EndDate       time.Time
	VergerID      *int64
	GrpVarID      *int64
	VarieteID     *int64
	DestinationID *int64
	EcartTypeID   *int64
	ChartType     string
	TimePeriod    string
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	values := url.Values{}
	if !q.StartDate.IsZero() {
		values.Set("startDate", q.StartDate.Format(dateParamLayout))
	}
	if !q.EndDate.IsZero() {
		values.Set("endDate", q.EndDate.Format(dateParamLayout))
	}
	setOptional(values, "vergerId", q.VergerID)
	setOptional(values, "grpVarId", q.GrpVarID)
	setOptional(values, "varieteId", q.VarieteID)
	setOptional(values, "destinationId", q.DestinationID)
	setOptional(values, "ecartTypeId", q.EcartTypeID)
	if q.ChartType != "" {
		values.Set("chartType", q.ChartType)
	}
	if q.TimePeriod != "" {
		values.Set("timePeriod", q.TimePeriod)
	}
	return values
}

func setOptional(values url.Values, key string, id *int64) {
	if id != nil {
		values.Set(key, strconv.FormatInt(*id, 10))
	}
}

// DashboardData fetches the primary aggregate totals.
func (c *Client) DashboardData(ctx context.Context, q Query) (DashboardData, error) {
	var out DashboardData
	err := c.get(ctx, "/api/dashboard/data", q.Values(), &out)
	return out, err
}

// EcartDetails fetches the discrepancy detail rows.
func (c *Client) EcartDetails(ctx context.Context, q Query) ([]EcartDetail, error) {
	var out []EcartDetail
	err := c.get(ctx, "/api/dashboard/ecart-details", q.Values(), &out)
	return out, err
}

// EcartDetailsGrouped fetches the grouped discrepancy rows.
func (c *Client) EcartDetailsGrouped(ctx context.Context, q Query) ([]EcartGroup, error) {
	var out []EcartGroup
	err := c.get(ctx, "/api/dashboard/ecart-details-grouped", q.Values(), &out)
	return out, err
}

// DestinationChart fetches the destination-segmented chart series.
func (c *Client) DestinationChart(ctx context.Context, q Query) ([]ChartSeries, error) {
	var out []ChartSeries
	err := c.get(ctx, "/api/dashboard/destination-chart", q.Values(), &out)
	return out, err
}

// DestinationByVarietyChart fetches the orchard chart segmented by variety.
func (c *Client) DestinationByVarietyChart(ctx context.Context, q Query) ([]ChartSeries, error) {
	var out []ChartSeries
	err := c.get(ctx, "/api/dashboard/destination-by-variety-chart", q.Values(), &out)
	return out, err
}

// PeriodicTrends fetches one metric's bucketed trend series. ChartType
// selects the metric, TimePeriod the bucket granularity.
func (c *Client) PeriodicTrends(ctx context.Context, q Query) ([]TrendPoint, error) {
	var out []TrendPoint
	err := c.get(ctx, "/api/dashboard/periodic-trends", q.Values(), &out)
	return out, err
}

// DataGroupedByVarietyGroup fetches the totals-by-variety-group variant.
func (c *Client) DataGroupedByVarietyGroup(ctx context.Context, q Query) ([]GroupedTotals, error) {
	var out []GroupedTotals
	err := c.get(ctx, "/api/dashboard/data-grouped-by-variety-group", q.Values(), &out)
	return out, err
}

// VenteEcarts fetches the full sales-with-discrepancy list. The endpoint
// does not filter server-side; date windowing happens client-side.
func (c *Client) VenteEcarts(ctx context.Context) ([]VenteEcart, error) {
	var out []VenteEcart
	err := c.get(ctx, "/api/vente-ecart", nil, &out)
	return out, err
}
