package compliance

import (
	"context"
	"database/sql"
	"time"

	"PTAS-backend/internal/ipaddr"
	"PTAS-backend/internal/platform/db"
	"PTAS-backend/internal/users"
)

// RecordView: 集計に必要な列だけの読み取りビュー
type RecordView struct {
	RecordID   int64
	UserID     int64
	IPAddress  string
	RecordedAt time.Time
}

// Snapshot: 期間内の記録と現時点のユーザ表。
// ロックは取らない（スキャン処理を塞がないこと）。
type Snapshot struct {
	Records []RecordView
	Users   map[int64]users.User
}

type SnapshotStore interface {
	Load(ctx context.Context, from, to time.Time) (*Snapshot, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// Load: 読み取り専用Txで記録とユーザ表をまとめて引く
func (s *Store) Load(ctx context.Context, from, to time.Time) (*Snapshot, error) {
	var snap *Snapshot
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		loaded, err := load(ctx, tx, from, to)
		if err != nil {
			return err
		}
		snap = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func load(ctx context.Context, tx db.DBTX, from, to time.Time) (*Snapshot, error) {
	rows, err := tx.QueryContext(ctx, `
	SELECT record_id, user_id, COALESCE(ip_address, ''), recorded_at
	FROM records
	WHERE recorded_at >= ? AND recorded_at < ?
	ORDER BY record_id ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{Users: make(map[int64]users.User)}
	for rows.Next() {
		var r RecordView
		if err := rows.Scan(&r.RecordID, &r.UserID, &r.IPAddress, &r.RecordedAt); err != nil {
			return nil, err
		}
		if r.IPAddress == "" {
			r.IPAddress = ipaddr.UnknownDefault
		}
		snap.Records = append(snap.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := users.NewStore(tx).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		snap.Users[all[i].UserID] = all[i]
	}
	return snap, nil
}
