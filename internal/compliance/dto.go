package compliance

const (
	DateLayout = "2006-01-02"
	// レポートに載せる使用IPの上位件数
	TopIPLimit = 10
	// 1IPあたり表示するユーザ名の上限
	TopIPUserNames = 5
)

// Report: IP遵守レポート。保存せず要求ごとに再計算する。
type Report struct {
	ReportDate string `json:"report_date"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`

	TotalRecords        int64 `json:"total_records"`
	MatchingRecords     int64 `json:"matching_records"`
	MismatchRecords     int64 `json:"mismatch_records"`
	NoAssignmentRecords int64 `json:"no_assignment_records"`
	UnknownIPRecords    int64 `json:"unknown_ip_records"`

	// MATCH / (MATCH + MISMATCH) * 100。分母0なら0。
	CompliancePercentage float64 `json:"compliance_percentage"`

	UserMismatches  []UserMismatch         `json:"user_mismatches"`
	TopIPAddresses  []IPUsage              `json:"top_ip_addresses"`
	DepartmentStats []DepartmentCompliance `json:"department_stats"`
}

type UserMismatch struct {
	UserID         int64    `json:"user_id"`
	FullName       string   `json:"full_name"`
	PersonnelNo    string   `json:"personnel_no"`
	DepartmentName string   `json:"department_name,omitempty"`
	AssignedIPs    string   `json:"assigned_ip_addresses"`
	MismatchCount  int64    `json:"mismatch_count"`
	ObservedIPs    []string `json:"observed_ip_addresses"`
}

type IPUsage struct {
	IPAddress   string   `json:"ip_address"`
	UsageCount  int64    `json:"usage_count"`
	UniqueUsers int64    `json:"unique_users"`
	UserNames   []string `json:"user_names"`
}

type DepartmentCompliance struct {
	DepartmentCode       string  `json:"department_code"`
	DepartmentName       string  `json:"department_name"`
	TotalRecords         int64   `json:"total_records"`
	MatchingRecords      int64   `json:"matching_records"`
	MismatchRecords      int64   `json:"mismatch_records"`
	NoAssignmentRecords  int64   `json:"no_assignment_records"`
	UnknownIPRecords     int64   `json:"unknown_ip_records"`
	CompliancePercentage float64 `json:"compliance_percentage"`
}
