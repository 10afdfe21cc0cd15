package excuses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ===== Error model (qrcode/attendance と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicate       Code = "DUPLICATE_EXCUSE"
	CodeAlreadyReviewed Code = "ALREADY_REVIEWED"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrDuplicate(msg string) *APIError {
	return &APIError{Code: CodeDuplicate, Message: msg}
}
func ErrAlreadyReviewed(msg string) *APIError {
	return &APIError{Code: CodeAlreadyReviewed, Message: msg}
}
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeDuplicate, CodeAlreadyReviewed:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	db    *sql.DB
	store ExcuseStore
	clock Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), clock: realClock{}}
}

// Submit: 申告を受け付ける。種別ごとに説明・添付の必須条件が変わる。
func (s *Service) Submit(ctx context.Context, userID int64, req SubmitRequest) (ExcuseResponse, error) {
	if userID <= 0 {
		return ExcuseResponse{}, ErrInvalid("user_id is required")
	}
	et := typeByID(req.ExcuseTypeID)
	if et == nil {
		return ExcuseResponse{}, ErrInvalid(fmt.Sprintf("unknown excuse_type_id: %d", req.ExcuseTypeID))
	}

	if req.ExcuseDate == "" {
		return ExcuseResponse{}, ErrInvalid("excuse_date is required")
	}
	day, err := time.ParseInLocation(DateLayout, req.ExcuseDate, time.UTC)
	if err != nil {
		return ExcuseResponse{}, ErrInvalid("excuse_date must be YYYY-MM-DD")
	}
	// 当日までは可。未来日の申告は受け付けない。
	today := s.clock.Now().UTC().Truncate(24 * time.Hour)
	if day.After(today) {
		return ExcuseResponse{}, ErrInvalid("excuse_date must not be in the future")
	}

	desc := strings.TrimSpace(req.Description)
	if et.RequiresDescription {
		if n := len([]rune(desc)); n < DescriptionMinLen || n > DescriptionMaxLen {
			return ExcuseResponse{}, ErrInvalid(fmt.Sprintf(
				"description must be %d-%d characters for this excuse type", DescriptionMinLen, DescriptionMaxLen))
		}
	} else if len([]rune(desc)) > DescriptionMaxLen {
		return ExcuseResponse{}, ErrInvalid(fmt.Sprintf("description must be at most %d characters", DescriptionMaxLen))
	}
	if et.RequiresAttachment && len(req.Attachments) == 0 {
		return ExcuseResponse{}, ErrInvalid("attachment is required for this excuse type")
	}

	dup, err := s.store.GetByUserAndDate(ctx, s.db, userID, req.ExcuseDate)
	if err != nil {
		return ExcuseResponse{}, err
	}
	if dup != nil {
		return ExcuseResponse{}, ErrDuplicate("an excuse already exists for this date")
	}

	e := &Excuse{
		UserID:      userID,
		TypeID:      et.TypeID,
		TypeName:    et.Name,
		Description: desc,
		ExcuseDate:  req.ExcuseDate,
		Attachments: req.Attachments,
		Status:      StatusPending,
		SubmittedAt: s.clock.Now().UTC(),
	}
	if err := s.store.Insert(ctx, s.db, e); err != nil {
		return ExcuseResponse{}, err
	}
	return e.toDTO(), nil
}

func (s *Service) Get(ctx context.Context, excuseID int64) (ExcuseResponse, error) {
	e, err := s.store.GetByID(ctx, s.db, excuseID)
	if err != nil {
		return ExcuseResponse{}, err
	}
	if e == nil {
		return ExcuseResponse{}, ErrNotFound("excuse not found")
	}
	return e.toDTO(), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]ExcuseResponse, int64, error) {
	if q.Status != nil && !q.Status.valid() {
		return nil, 0, ErrInvalid(fmt.Sprintf("unknown status: %s", *q.Status))
	}
	if err := validateDateFilter(q.From); err != nil {
		return nil, 0, err
	}
	if err := validateDateFilter(q.To); err != nil {
		return nil, 0, err
	}

	rows, total, err := s.store.List(ctx, s.db, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ExcuseResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

// Review: PENDING の申告を承認/却下する。
// 行ロックを取らず、更新行数0なら再読込して未存在と審査済みを切り分ける。
func (s *Service) Review(ctx context.Context, excuseID, reviewedBy int64, status ExcuseStatus, notes string) (ExcuseResponse, error) {
	if excuseID <= 0 {
		return ExcuseResponse{}, ErrInvalid("excuse_id is required")
	}
	if status != StatusApproved && status != StatusRejected {
		return ExcuseResponse{}, ErrInvalid(fmt.Sprintf("invalid review status: %s", status))
	}

	n, err := s.store.SetReview(ctx, s.db, excuseID, status, reviewedBy, strings.TrimSpace(notes), s.clock.Now())
	if err != nil {
		return ExcuseResponse{}, err
	}
	if n == 0 {
		e, err := s.store.GetByID(ctx, s.db, excuseID)
		if err != nil {
			return ExcuseResponse{}, err
		}
		if e == nil {
			return ExcuseResponse{}, ErrNotFound("excuse not found")
		}
		return ExcuseResponse{}, ErrAlreadyReviewed(fmt.Sprintf("excuse is already %s", e.Status))
	}
	return s.Get(ctx, excuseID)
}

// Types: 種別マスタを返す
func (s *Service) Types() []ExcuseTypeResponse {
	out := make([]ExcuseTypeResponse, 0, len(excuseTypes))
	for _, et := range excuseTypes {
		out = append(out, ExcuseTypeResponse{
			TypeID:              et.TypeID,
			Name:                et.Name,
			RequiresDescription: et.RequiresDescription,
			RequiresAttachment:  et.RequiresAttachment,
		})
	}
	return out
}

// Statistics: ステータス別件数。存在しないステータスも0で埋めて返す。
func (s *Service) Statistics(ctx context.Context) (StatisticsResponse, error) {
	counts, err := s.store.CountByStatus(ctx, s.db)
	if err != nil {
		return StatisticsResponse{}, err
	}
	res := StatisticsResponse{ByStatus: make(map[ExcuseStatus]int64, len(Statuses))}
	for _, st := range Statuses {
		res.ByStatus[st] = counts[st]
	}
	res.PendingTotal = res.ByStatus[StatusPending]
	return res, nil
}

func (s *Service) PendingCount(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, ErrInvalid("user_id is required")
	}
	return s.store.CountPendingByUser(ctx, s.db, userID)
}

func validateDateFilter(v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := time.ParseInLocation(DateLayout, *v, time.UTC); err != nil {
		return ErrInvalid("date filter must be YYYY-MM-DD")
	}
	return nil
}
