package model

// SubscriptionStats is the admin dashboard summary.
type SubscriptionStats struct {
	Total    int              `json:"totalSubscriptions"`
	Users    int              `json:"totalUsers"`
	ByStatus []StatusCount    `json:"statusBreakdown"`
	ByPay    []PaymentSummary `json:"paymentBreakdown"`
	ByPlan   []PlanSummary    `json:"popularPlans"`
	Monthly  []MonthlySummary `json:"monthlyTrends"`
}

type StatusCount struct {
	Status SubscriptionStatus `json:"status"`
	Count  int                `json:"count"`
}

// PaymentSummary sums plan prices per payment status.
type PaymentSummary struct {
	Status  PaymentStatus `json:"status"`
	Count   int           `json:"count"`
	Revenue float64       `json:"totalRevenue"`
}

type PlanSummary struct {
	PlanName string  `json:"planName"`
	Count    int     `json:"count"`
	Revenue  float64 `json:"totalRevenue"`
}

// MonthlySummary groups by creation month, formatted "2006-01".
type MonthlySummary struct {
	Month   string  `json:"month"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}
