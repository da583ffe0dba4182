package models

// Report types accepted by POST /api/reports/transactions.
const (
	ReportMonthly = "MONTHLY"
	ReportYearly  = "YEARLY"
	ReportCustom  = "CUSTOM"
)

// ReportRequest selects a transaction report window. StartDate and EndDate
// are yyyy-MM-dd strings and only consulted for CUSTOM reports.
type ReportRequest struct {
	ReportType   string `json:"reportType"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	Confirmation string `json:"confirmation"`
}
