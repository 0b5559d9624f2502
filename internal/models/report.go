package models

// KPIs is the dashboard summary.
type KPIs struct {
	TotalAssets    int `json:"total_assets"`
	AssignedAssets int `json:"assigned_assets"`
	MovementsMonth int `json:"movements_month"`
}
