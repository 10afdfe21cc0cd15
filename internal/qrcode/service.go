package qrcode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"PTAS-backend/internal/platform/db"
)

// ===== Error model (attendance/compliance と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeOwnership       Code = "OWNERSHIP_MISMATCH"
	CodeExpired         Code = "EXPIRED_CODE"
	CodeUsageLimit      Code = "USAGE_LIMIT_EXCEEDED"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string        { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError    { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError   { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrOwnership(msg string) *APIError  { return &APIError{Code: CodeOwnership, Message: msg} }
func ErrExpired(msg string) *APIError    { return &APIError{Code: CodeExpired, Message: msg} }
func ErrUsageLimit(msg string) *APIError { return &APIError{Code: CodeUsageLimit, Message: msg} }
func ErrConflict(msg string) *APIError   { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError   { return &APIError{Code: CodeInternal, Message: msg} }

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeOwnership:
			return 403
		case CodeNotFound:
			return 404
		case CodeUsageLimit, CodeConflict:
			return 409
		case CodeExpired:
			return 410
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
	db        *sql.DB
	store     LedgerStore
	clock     Clock
	maxUsage  int
	imageSize int
}

func NewService(conn *sql.DB, cfg db.QRConfig) *Service {
	// 上限は入場+退場の2回で固定。設定側も矯正するが、
	// 台帳はどの経路から組まれても2以外を受け付けない。
	maxUsage := cfg.MaxUsage
	if maxUsage != DefaultMaxUsage {
		maxUsage = DefaultMaxUsage
	}
	return &Service{
		db:        conn,
		store:     NewStore(),
		clock:     realClock{},
		maxUsage:  maxUsage,
		imageSize: cfg.ImageSize,
	}
}

func (s *Service) MaxUsage() int { return s.maxUsage }

func (s *Service) today() string {
	return s.clock.Now().UTC().Format(DateLayout)
}

// GetDailyCode: 当日分のQRコードを返す。なければ生成して保存。
// 同一(user, date)への並行初回呼び出しはUNIQUE制約で1件に収束させ、
// 負けた側は読み戻して勝者のコード値を返す（冪等）。
func (s *Service) GetDailyCode(ctx context.Context, userID int64) (DailyCodeResponse, error) {
	if userID <= 0 {
		return DailyCodeResponse{}, ErrInvalid("user_id is required")
	}
	today := s.today()

	rec, err := s.store.GetByUserAndDate(ctx, s.db, userID, today)
	if err != nil {
		return DailyCodeResponse{}, err
	}
	if rec != nil {
		return rec.toDTO(s.maxUsage), nil
	}

	value, err := generateValue(userID, today)
	if err != nil {
		return DailyCodeResponse{}, ErrInternal("failed to generate qr code value")
	}
	if err := s.store.Insert(ctx, s.db, &QrCode{UserID: userID, Value: value, ValidDate: today}); err != nil {
		return DailyCodeResponse{}, err
	}

	// 挿入競合に負けていても、ここで必ず確定行が読める
	rec, err = s.store.GetByUserAndDate(ctx, s.db, userID, today)
	if err != nil {
		return DailyCodeResponse{}, err
	}
	if rec == nil {
		return DailyCodeResponse{}, ErrInternal("inserted but not found")
	}
	return rec.toDTO(s.maxUsage), nil
}

// Validate: スキャン前の検証。所有者→有効日→使用上限の順に落とす。
// 通れば現レコードと次のスキャン種別を返す。
func (s *Service) Validate(ctx context.Context, q db.DBTX, value string, userID int64) (*QrCode, EntryExitType, error) {
	if q == nil {
		q = s.db
	}
	rec, err := s.store.GetByValue(ctx, q, value)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "", ErrNotFound("qr code not found")
	}
	if rec.UserID != userID {
		return nil, "", ErrOwnership("qr code does not belong to user")
	}
	if rec.ValidDate != s.today() {
		return nil, "", ErrExpired("qr code is not valid for today")
	}
	if rec.UsageCount >= s.maxUsage {
		return nil, "", ErrUsageLimit("qr code has reached maximum usage limit for today")
	}
	return rec, PeekType(rec.UsageCount), nil
}

// PeekType: usage_count → 次のスキャン種別。0=入場、1=退場。
// 上限は2なのでそれ以外は到達しない想定（防御的にEXITへ倒す）。
func PeekType(usageCount int) EntryExitType {
	if usageCount == 0 {
		return TypeEntry
	}
	return TypeExit
}

const casMaxAttempts = 3

// IncrementUsage: versionのCASで使用回数を+1する。
// 最後の1枠を取り合った場合は必ず片方だけが勝ち、負けた側には
// USAGE_LIMIT（上限到達時）または CONFLICT を返す。
func (s *Service) IncrementUsage(ctx context.Context, value string) (*QrCode, error) {
	for i := 0; i < casMaxAttempts; i++ {
		rec, err := s.incrementOnce(ctx, s.db, value)
		if err == nil {
			return rec, nil
		}
		var api *APIError
		if !errors.As(err, &api) || api.Code != CodeConflict {
			return nil, err
		}
		// 競合: 読み直して再試行
	}
	return nil, ErrConflict("concurrent usage update, retry")
}

// IncrementUsageTx: トランザクション内からの1回限りのインクリメント。
// Tx内はスナップショット読みのため再試行せず、負けはそのままエラーで返す
// （呼び出し側のTxごとロールバックさせる）。
func (s *Service) IncrementUsageTx(ctx context.Context, q db.DBTX, value string) (*QrCode, error) {
	return s.incrementOnce(ctx, q, value)
}

func (s *Service) incrementOnce(ctx context.Context, q db.DBTX, value string) (*QrCode, error) {
	rec, err := s.store.GetByValue(ctx, q, value)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound("qr code not found")
	}
	if rec.UsageCount >= s.maxUsage {
		return nil, ErrUsageLimit("qr code usage limit exceeded")
	}

	ok, err := s.store.CompareAndSwapUsage(ctx, q, value, rec.Version, s.maxUsage)
	if err != nil {
		return nil, err
	}
	if !ok {
		// versionがずれた（並行更新に負けた）。上限で負けたのか判別する。
		cur, err := s.store.GetByValue(ctx, q, value)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.UsageCount >= s.maxUsage {
			return nil, ErrUsageLimit("qr code usage limit exceeded")
		}
		return nil, ErrConflict("concurrent usage update")
	}

	rec.UsageCount++
	rec.Version++
	return rec, nil
}

// generateValue: userId + 日付 + ランダムソルト(128bit) をSHA-256にかけて
// base64url化。日が変われば別値、同日は保存済みの1件が常に返る。
func generateValue(userID int64, validDate string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	input := fmt.Sprintf("%d-%s-%s", userID, validDate, base64.RawURLEncoding.EncodeToString(salt))
	sum := sha256.Sum256([]byte(input))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
