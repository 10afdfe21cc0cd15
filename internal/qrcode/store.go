package qrcode

import (
	"context"
	"database/sql"

	"PTAS-backend/internal/platform/db"
)

// LedgerStore: qr_codes テーブルへのアクセス。
// 全メソッドが実行ハンドル（DBまたはTx）を受け取る。出退勤スキャンは
// レコード挿入と同一Txでインクリメントを流すため。
type LedgerStore interface {
	GetByUserAndDate(ctx context.Context, q db.DBTX, userID int64, validDate string) (*QrCode, error)
	GetByValue(ctx context.Context, q db.DBTX, value string) (*QrCode, error)
	Insert(ctx context.Context, q db.DBTX, rec *QrCode) error
	CompareAndSwapUsage(ctx context.Context, q db.DBTX, value string, version int64, maxUsage int) (bool, error)
}

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectColumns = `
	qr_code_id, user_id, qr_code_value,
	DATE_FORMAT(valid_date, '%Y-%m-%d') AS valid_date,
	usage_count, version, created_at`

// GetByUserAndDate: (user_id, valid_date) はUNIQUE。なければ nil を返す。
func (s *Store) GetByUserAndDate(ctx context.Context, q db.DBTX, userID int64, validDate string) (*QrCode, error) {
	row := q.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM qr_codes
	WHERE user_id = ? AND valid_date = ?`, userID, validDate)
	return scanOne(row)
}

func (s *Store) GetByValue(ctx context.Context, q db.DBTX, value string) (*QrCode, error) {
	row := q.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM qr_codes
	WHERE qr_code_value = ?`, value)
	return scanOne(row)
}

// Insert: 初回発行。同日同ユーザの並行発行は UNIQUE (user_id, valid_date) に
// 任せ、負けた側はエラーにせず読み戻しへフォールバックさせる。
func (s *Store) Insert(ctx context.Context, q db.DBTX, rec *QrCode) error {
	_, err := q.ExecContext(ctx, `
	INSERT INTO qr_codes (user_id, qr_code_value, valid_date, usage_count, version, created_at)
	VALUES (?, ?, ?, 0, 0, UTC_TIMESTAMP())
	ON DUPLICATE KEY UPDATE qr_code_id = qr_code_id`,
		rec.UserID, rec.Value, rec.ValidDate)
	return err
}

// CompareAndSwapUsage: 楽観ロック付きインクリメント。
// version一致かつ上限未満の行だけを更新し、勝敗を RowsAffected で判定する。
func (s *Store) CompareAndSwapUsage(ctx context.Context, q db.DBTX, value string, version int64, maxUsage int) (bool, error) {
	res, err := q.ExecContext(ctx, `
	UPDATE qr_codes
	SET usage_count = usage_count + 1, version = version + 1
	WHERE qr_code_value = ? AND version = ? AND usage_count < ?`,
		value, version, maxUsage)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func scanOne(row *sql.Row) (*QrCode, error) {
	var r qrCodeRow
	err := row.Scan(&r.ID, &r.UserID, &r.Value, &r.ValidDate, &r.UsageCount, &r.Version, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}
