package qrcode

const (
	DateLayout = "2006-01-02"
	// 入場+退場で1日2回。これを超える設定は受け付けない。
	DefaultMaxUsage = 2
)

type DailyCodeResponse struct {
	QrCodeValue string `json:"qr_code_value"`
	ValidDate   string `json:"valid_date"` // YYYY-MM-DD
	UsageCount  int    `json:"usage_count"`
	MaxUsage    int    `json:"max_usage"`
}
