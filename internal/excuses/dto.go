package excuses

import "time"

const (
	DateLayout = "2006-01-02"

	// 種別が説明必須のときの文字数制約
	DescriptionMinLen = 10
	DescriptionMaxLen = 500

	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type SubmitRequest struct {
	ExcuseTypeID int64    `json:"excuse_type_id"`
	ExcuseDate   string   `json:"excuse_date"`
	Description  string   `json:"description"`
	Attachments  []string `json:"attachments"`
}

type ReviewRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type ExcuseResponse struct {
	ExcuseID    int64        `json:"excuse_id"`
	UserID      int64        `json:"user_id"`
	TypeID      int64        `json:"excuse_type_id"`
	TypeName    string       `json:"excuse_type_name"`
	Description string       `json:"description,omitempty"`
	ExcuseDate  string       `json:"excuse_date"`
	Attachments []string     `json:"attachments,omitempty"`
	Status      ExcuseStatus `json:"status"`
	AdminNotes  string       `json:"admin_notes,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy  int64        `json:"reviewed_by,omitempty"`
}

type ExcuseTypeResponse struct {
	TypeID              int64  `json:"excuse_type_id"`
	Name                string `json:"name"`
	RequiresDescription bool   `json:"requires_description"`
	RequiresAttachment  bool   `json:"requires_attachment"`
}

type ListQuery struct {
	UserID *int64
	Status *ExcuseStatus
	From   *string
	To     *string
	Limit  int
	Offset int
}

type StatisticsResponse struct {
	// 全ステータスをゼロ埋めで含む
	ByStatus     map[ExcuseStatus]int64 `json:"by_status"`
	PendingTotal int64                  `json:"pending_total"`
}
