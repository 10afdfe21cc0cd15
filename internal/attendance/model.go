package attendance

import (
	"database/sql"
	"time"

	"PTAS-backend/internal/ipaddr"
	"PTAS-backend/internal/qrcode"
)

// DB行に対応（スキャン用）
type recordRow struct {
	RecordID    int64
	RecordULID  string
	UserID      int64
	Type        string
	RecordedAt  time.Time
	Latitude    float64
	Longitude   float64
	QrCodeValue string
	IPAddress   sql.NullString
}

// Record: 確定した入退記録。作成後は不変（追記専用）。
type Record struct {
	RecordID    int64
	RecordULID  string
	UserID      int64
	Type        qrcode.EntryExitType
	RecordedAt  time.Time
	Latitude    float64
	Longitude   float64
	QrCodeValue string
	// 取得できなかった場合は ipaddr.UnknownDefault
	IPAddress string
}

func (r recordRow) toModel() Record {
	ip := ipaddr.UnknownDefault
	if r.IPAddress.Valid && r.IPAddress.String != "" {
		ip = r.IPAddress.String
	}
	return Record{
		RecordID:    r.RecordID,
		RecordULID:  r.RecordULID,
		UserID:      r.UserID,
		Type:        qrcode.EntryExitType(r.Type),
		RecordedAt:  r.RecordedAt.UTC(),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		QrCodeValue: r.QrCodeValue,
		IPAddress:   ip,
	}
}

func (r Record) toDTO() RecordResponse {
	return RecordResponse{
		RecordID:   r.RecordID,
		RecordULID: r.RecordULID,
		UserID:     r.UserID,
		Type:       string(r.Type),
		RecordedAt: r.RecordedAt,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
	}
}
