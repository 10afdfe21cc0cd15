package excuses

import (
	"database/sql"
	"encoding/json"
	"time"
)

type ExcuseStatus string

const (
	StatusPending  ExcuseStatus = "PENDING"
	StatusApproved ExcuseStatus = "APPROVED"
	StatusRejected ExcuseStatus = "REJECTED"
)

// Statuses: 集計でゼロ埋めするための固定順リスト
var Statuses = []ExcuseStatus{StatusPending, StatusApproved, StatusRejected}

func (s ExcuseStatus) valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ExcuseType: 種別マスタ。件数が固定かつ少ないのでDBに持たない。
type ExcuseType struct {
	TypeID              int64
	Name                string
	RequiresDescription bool
	RequiresAttachment  bool
}

var excuseTypes = []ExcuseType{
	{TypeID: 1, Name: "Hastalık", RequiresDescription: true, RequiresAttachment: false},
	{TypeID: 2, Name: "Aile Acil Durumu", RequiresDescription: true, RequiresAttachment: false},
	{TypeID: 3, Name: "Resmi İzin", RequiresDescription: false, RequiresAttachment: true},
	{TypeID: 4, Name: "Ulaşım Sorunu", RequiresDescription: true, RequiresAttachment: false},
	{TypeID: 5, Name: "Diğer", RequiresDescription: true, RequiresAttachment: false},
}

func typeByID(id int64) *ExcuseType {
	for i := range excuseTypes {
		if excuseTypes[i].TypeID == id {
			return &excuseTypes[i]
		}
	}
	return nil
}

type Excuse struct {
	ExcuseID    int64
	UserID      int64
	TypeID      int64
	TypeName    string
	Description string
	// YYYY-MM-DD
	ExcuseDate  string
	Attachments []string
	Status      ExcuseStatus
	AdminNotes  string
	SubmittedAt time.Time
	ReviewedAt  *time.Time
	ReviewedBy  *int64
}

// excusesテーブルの行。attachments はJSON文字列のまま持つ。
type excuseRow struct {
	ExcuseID    int64
	UserID      int64
	TypeID      int64
	TypeName    string
	Description sql.NullString
	ExcuseDate  string
	Attachments sql.NullString
	Status      string
	AdminNotes  sql.NullString
	SubmittedAt time.Time
	ReviewedAt  sql.NullTime
	ReviewedBy  sql.NullInt64
}

func (r excuseRow) toModel() Excuse {
	e := Excuse{
		ExcuseID:    r.ExcuseID,
		UserID:      r.UserID,
		TypeID:      r.TypeID,
		TypeName:    r.TypeName,
		Description: r.Description.String,
		ExcuseDate:  r.ExcuseDate,
		Status:      ExcuseStatus(r.Status),
		AdminNotes:  r.AdminNotes.String,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
	if r.Attachments.Valid && r.Attachments.String != "" {
		// 壊れたJSONは添付なし扱いで読み飛ばす
		_ = json.Unmarshal([]byte(r.Attachments.String), &e.Attachments)
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time.UTC()
		e.ReviewedAt = &t
	}
	if r.ReviewedBy.Valid {
		v := r.ReviewedBy.Int64
		e.ReviewedBy = &v
	}
	return e
}

func marshalAttachments(a []string) string {
	b, _ := json.Marshal(a)
	return string(b)
}

func (e Excuse) toDTO() ExcuseResponse {
	res := ExcuseResponse{
		ExcuseID:    e.ExcuseID,
		UserID:      e.UserID,
		TypeID:      e.TypeID,
		TypeName:    e.TypeName,
		Description: e.Description,
		ExcuseDate:  e.ExcuseDate,
		Attachments: e.Attachments,
		Status:      e.Status,
		AdminNotes:  e.AdminNotes,
		SubmittedAt: e.SubmittedAt,
		ReviewedAt:  e.ReviewedAt,
	}
	if e.ReviewedBy != nil {
		res.ReviewedBy = *e.ReviewedBy
	}
	return res
}
