package attendance

import "time"

const (
	SortRecordedAtDesc = "recorded_at_desc"
	SortRecordedAtAsc  = "recorded_at_asc"
	DefaultPageLimit   = 50
	MaxPageLimit       = 200
	DefaultSort        = SortRecordedAtDesc
	DateLayout         = "2006-01-02"
)

// GPS座標の有効範囲
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

type ScanRequest struct {
	QrCodeValue string     `json:"qr_code_value" binding:"required"`
	Timestamp   *time.Time `json:"timestamp,omitempty"` // RFC3339。省略時はサーバ時刻
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
}

type RecordResponse struct {
	RecordID   int64     `json:"record_id"`
	RecordULID string    `json:"record_ulid"`
	UserID     int64     `json:"user_id"`
	Type       string    `json:"type"` // ENTRY / EXIT
	RecordedAt time.Time `json:"recorded_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// StatusResponse: 最新記録から導く在/不在
type StatusResponse struct {
	Inside       bool       `json:"inside"`
	LastAction   *string    `json:"last_action,omitempty"`
	LastRecorded *time.Time `json:"last_recorded,omitempty"`
}

type ListQuery struct {
	UserID *int64
	On     *string
	From   *string
	To     *string
	Limit  int
	Offset int
	Sort   string
}
