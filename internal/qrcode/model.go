package qrcode

import "time"

// EntryExitType: 使用回数から一意に決まるスキャン種別
type EntryExitType string

const (
	TypeEntry EntryExitType = "ENTRY"
	TypeExit  EntryExitType = "EXIT"
)

// DB行に対応（スキャン用）
type qrCodeRow struct {
	ID         int64
	UserID     int64
	Value      string
	ValidDate  string // DATE → "YYYY-MM-DD"
	UsageCount int
	Version    int64
	CreatedAt  time.Time
}

// Service ↔ Store で使うモデル
type QrCode struct {
	ID         int64
	UserID     int64
	Value      string
	ValidDate  string
	UsageCount int
	Version    int64
	CreatedAt  time.Time
}

func (r qrCodeRow) toModel() QrCode {
	return QrCode{
		ID:         r.ID,
		UserID:     r.UserID,
		Value:      r.Value,
		ValidDate:  r.ValidDate,
		UsageCount: r.UsageCount,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (q QrCode) toDTO(maxUsage int) DailyCodeResponse {
	return DailyCodeResponse{
		QrCodeValue: q.Value,
		ValidDate:   q.ValidDate,
		UsageCount:  q.UsageCount,
		MaxUsage:    maxUsage,
	}
}
