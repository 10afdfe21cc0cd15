package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"PTAS-backend/internal/ipaddr"
	"PTAS-backend/internal/platform/db"
	"PTAS-backend/internal/qrcode"
)

// ===== Error model (qrcode/users と同型) =====
type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidCoordinates Code = "INVALID_COORDINATES"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInternal           Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrCoords(msg string) *APIError   { return &APIError{Code: CodeInvalidCoordinates, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

// toHTTPStatus: 台帳側（qrcode）のエラーはそのままのステータスで通す
func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeInvalidCoordinates:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	var ledgerErr *qrcode.APIError
	if errors.As(err, &ledgerErr) {
		return qrcode.ToHTTPStatus(err)
	}
	return 500
}

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Ledger: QRコード台帳。検証とTx内インクリメントだけを使う。
type Ledger interface {
	Validate(ctx context.Context, q db.DBTX, value string, userID int64) (*qrcode.QrCode, qrcode.EntryExitType, error)
	IncrementUsageTx(ctx context.Context, q db.DBTX, value string) (*qrcode.QrCode, error)
}

// ===== Service本体 =====

type Service struct {
	db     *sql.DB
	store  RecordStore
	ledger Ledger
	clock  Clock
	id     IDGen
	ipOpts ipaddr.ExtractOptions
	runTx  func(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error
}

func NewService(conn *sql.DB, ledger Ledger, ipCfg db.IPTrackingConfig) *Service {
	return &Service{
		db:     conn,
		store:  NewStore(),
		ledger: ledger,
		clock:  realClock{},
		id:     ulidGen{},
		ipOpts: ipaddr.ExtractOptions{
			Enabled:        ipCfg.Enabled,
			CaptureTimeout: time.Duration(ipCfg.CaptureTimeoutMs) * time.Millisecond,
		},
		runTx: func(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
			return db.RunInTx(ctx, conn, nil, fn)
		},
	}
}

// RecordScan: スキャン1件を確定させる。
// 検証 → 記録挿入 → 台帳インクリメント。挿入とインクリメントは同一Txで、
// 最後の1枠を並行スキャンに取られた場合は記録ごとロールバックする
// （台帳と矛盾する記録は残さない）。
func (s *Service) RecordScan(ctx context.Context, userID int64, req ScanRequest, httpReq *http.Request) (RecordResponse, error) {
	if userID <= 0 {
		return RecordResponse{}, ErrInvalid("user_id is required")
	}
	if req.QrCodeValue == "" {
		return RecordResponse{}, ErrInvalid("qr_code_value is required")
	}
	lat, lon, err := validateCoordinates(req.Latitude, req.Longitude)
	if err != nil {
		return RecordResponse{}, err
	}

	recordedAt := s.clock.Now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		recordedAt = req.Timestamp.UTC()
	}

	// IP取得はベストエフォート。失敗してもスキャンは止めない。
	observedIP := ipaddr.ExtractClientIP(httpReq, s.ipOpts)

	idStr, err := s.id.New()
	if err != nil {
		return RecordResponse{}, err
	}

	var out RecordResponse
	err = s.runTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		// 所有者 → 有効日 → 使用上限の順で検証し、スキャン種別を確定
		_, typ, err := s.ledger.Validate(ctx, tx, req.QrCodeValue, userID)
		if err != nil {
			return err
		}

		rec := &Record{
			RecordULID:  idStr,
			UserID:      userID,
			Type:        typ,
			RecordedAt:  recordedAt,
			Latitude:    lat,
			Longitude:   lon,
			QrCodeValue: req.QrCodeValue,
			IPAddress:   observedIP,
		}
		if err := s.store.Insert(ctx, tx, rec); err != nil {
			return err
		}

		if _, err := s.ledger.IncrementUsageTx(ctx, tx, req.QrCodeValue); err != nil {
			// 記録の種別は検証時点の usage_count から決めている。
			// ここで負けたということは別スキャンが先に枠を取ったので、
			// 記録ごと巻き戻す。
			log.Printf("[WARN] usage increment lost the race, rolling back scan: %v", err)
			return err
		}

		out = rec.toDTO()
		return nil
	})
	if err != nil {
		return RecordResponse{}, err
	}
	return out, nil
}

// Status: 最新記録から在/不在を返す。記録なしは不在扱い。
func (s *Service) Status(ctx context.Context, userID int64) (StatusResponse, error) {
	if userID <= 0 {
		return StatusResponse{}, ErrInvalid("user_id is required")
	}
	latest, err := s.store.Latest(ctx, s.db, userID)
	if err != nil {
		return StatusResponse{}, err
	}
	if latest == nil {
		return StatusResponse{Inside: false}, nil
	}
	action := string(latest.Type)
	ts := latest.RecordedAt
	return StatusResponse{
		Inside:       latest.Type == qrcode.TypeEntry,
		LastAction:   &action,
		LastRecorded: &ts,
	}, nil
}

// List: 入退記録の一覧
func (s *Service) List(ctx context.Context, q ListQuery) ([]RecordResponse, int64, error) {
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	rows, total, err := s.store.List(ctx, s.db, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecordResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

// validateCoordinates: 両方必須かつ範囲内。永続化前に落とす。
func validateCoordinates(lat, lon *float64) (float64, float64, error) {
	if lat == nil || lon == nil {
		return 0, 0, ErrCoords("gps coordinates are required")
	}
	if *lat < MinLatitude || *lat > MaxLatitude {
		return 0, 0, ErrCoords(fmt.Sprintf("latitude must be between %.0f and %.0f, got: %.8f", MinLatitude, MaxLatitude, *lat))
	}
	if *lon < MinLongitude || *lon > MaxLongitude {
		return 0, 0, ErrCoords(fmt.Sprintf("longitude must be between %.0f and %.0f, got: %.8f", MinLongitude, MaxLongitude, *lon))
	}
	return *lat, *lon, nil
}
