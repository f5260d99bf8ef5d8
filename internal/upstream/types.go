package upstream

import "time"

// Option is one entry of a reference collection, shared by every select
// input. Variety options carry the id of their parent variety group.
type Option struct {
	Value   int64  `json:"value"`
	Label   string `json:"label"`
	Code    string `json:"code,omitempty"`
	GroupID int64  `json:"grpVarId,omitempty"`
}

// CampagneDates is the server-supplied default filter window for the
// current campaign.
type CampagneDates struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// DashboardData is the primary aggregate totals blob.
type DashboardData struct {
	ReceptionWeight float64 `json:"receptionWeight"`
	ExportWeight    float64 `json:"exportWeight"`
	EcartWeight     float64 `json:"ecartWeight"`
	StockWeight     float64 `json:"stockWeight"`
	EcartRate       float64 `json:"ecartRate"`
}

// EcartDetail is one row of the discrepancy detail dataset.
type EcartDetail struct {
	VergerID    int64   `json:"vergerId"`
	VergerName  string  `json:"vergerName"`
	VarieteID   int64   `json:"varieteId"`
	VarieteName string  `json:"varieteName"`
	TypeEcart   string  `json:"typeEcart"`
	Weight      float64 `json:"weight"`
	Count       int64   `json:"count"`
}

// EcartGroup is one row of the grouped discrepancy dataset.
type EcartGroup struct {
	VergerID   int64   `json:"vergerId"`
	VergerName string  `json:"vergerName"`
	GrpVarID   int64   `json:"grpVarId"`
	GrpVarName string  `json:"grpVarName"`
	TypeEcart  string  `json:"typeEcart"`
	Weight     float64 `json:"weight"`
}

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSeries is a named sequence of chart points.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// TrendPoint is one bucketed value of a periodic trend series.
type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// GroupedTotals is one row of the totals-by-variety-group dataset.
type GroupedTotals struct {
	GrpVarID        int64   `json:"grpVarId"`
	GrpVarName      string  `json:"grpVarName"`
	ReceptionWeight float64 `json:"receptionWeight"`
	ExportWeight    float64 `json:"exportWeight"`
	EcartWeight     float64 `json:"ecartWeight"`
}

// VenteEcartDetail is one line of a sale-with-discrepancy record.
type VenteEcartDetail struct {
	VergerID int64   `json:"vergerId"`
	GrpVarID int64   `json:"grpVarId"`
	Weight   float64 `json:"poids"`
}

// VenteEcart is one sale record linked to a discrepancy type.
type VenteEcart struct {
	ID        int64              `json:"id"`
	Date      time.Time          `json:"dateSortie"`
	TypeEcart string             `json:"typeEcart"`
	UnitPrice float64            `json:"prixUnitaire"`
	Details   []VenteEcartDetail `json:"details"`
}
