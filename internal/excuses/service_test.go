package excuses

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PTAS-backend/internal/platform/db"
)

// ===== テスト用のインメモリストア =====

type memExcuses struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Excuse
}

func newMemExcuses() *memExcuses {
	return &memExcuses{rows: make(map[int64]*Excuse)}
}

func (m *memExcuses) Insert(_ context.Context, _ db.DBTX, e *Excuse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ExcuseID = m.nextID
	cp := *e
	m.rows[e.ExcuseID] = &cp
	return nil
}

func (m *memExcuses) GetByID(_ context.Context, _ db.DBTX, excuseID int64) (*Excuse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[excuseID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memExcuses) GetByUserAndDate(_ context.Context, _ db.DBTX, userID int64, excuseDate string) (*Excuse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.ExcuseDate == excuseDate {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memExcuses) List(_ context.Context, _ db.DBTX, query ListQuery) ([]Excuse, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Excuse
	for _, r := range m.rows {
		if query.UserID != nil && r.UserID != *query.UserID {
			continue
		}
		if query.Status != nil && r.Status != *query.Status {
			continue
		}
		if query.From != nil && r.ExcuseDate < *query.From {
			continue
		}
		if query.To != nil && r.ExcuseDate > *query.To {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (m *memExcuses) SetReview(_ context.Context, _ db.DBTX, excuseID int64, status ExcuseStatus, reviewedBy int64, notes string, reviewedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[excuseID]
	if !ok || r.Status != StatusPending {
		return 0, nil
	}
	r.Status = status
	r.AdminNotes = notes
	t := reviewedAt.UTC()
	r.ReviewedAt = &t
	r.ReviewedBy = &reviewedBy
	return 1, nil
}

func (m *memExcuses) CountByStatus(_ context.Context, _ db.DBTX) (map[ExcuseStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ExcuseStatus]int64)
	for _, r := range m.rows {
		out[r.Status]++
	}
	return out, nil
}

func (m *memExcuses) CountPendingByUser(_ context.Context, _ db.DBTX, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cnt int64
	for _, r := range m.rows {
		if r.UserID == userID && r.Status == StatusPending {
			cnt++
		}
	}
	return cnt, nil
}

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

func newTestService(store ExcuseStore, now time.Time) *Service {
	return &Service{store: store, clock: stubClock{t: now}}
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestSubmit_pending(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemExcuses(), testNow)

	res, err := svc.Submit(ctx, 42, SubmitRequest{
		ExcuseTypeID: 1,
		ExcuseDate:   "2025-06-14",
		Description:  "Grip nedeniyle istirahat raporu aldım.",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.UserID)
	assert.Equal(t, "Hastalık", res.TypeName)
	assert.Equal(t, StatusPending, res.Status)
	assert.Equal(t, testNow, res.SubmittedAt)
	assert.Nil(t, res.ReviewedAt)
}

func TestSubmit_validation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		req  SubmitRequest
	}{
		{"unknown type", SubmitRequest{ExcuseTypeID: 99, ExcuseDate: "2025-06-14", Description: "yeterince uzun açıklama"}},
		{"missing date", SubmitRequest{ExcuseTypeID: 1, Description: "yeterince uzun açıklama"}},
		{"bad date", SubmitRequest{ExcuseTypeID: 1, ExcuseDate: "14/06/2025", Description: "yeterince uzun açıklama"}},
		{"future date", SubmitRequest{ExcuseTypeID: 1, ExcuseDate: "2025-06-16", Description: "yeterince uzun açıklama"}},
		{"description too short", SubmitRequest{ExcuseTypeID: 1, ExcuseDate: "2025-06-14", Description: "kısa"}},
		{"attachment required", SubmitRequest{ExcuseTypeID: 3, ExcuseDate: "2025-06-14"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemExcuses()
			svc := newTestService(store, testNow)
			_, err := svc.Submit(ctx, 42, tc.req)
			assertCode(t, err, CodeInvalidArgument)
			assert.Empty(t, store.rows)
		})
	}
}

// 当日の申告は未来日扱いにしない
func TestSubmit_todayAllowed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemExcuses(), testNow)

	_, err := svc.Submit(ctx, 42, SubmitRequest{
		ExcuseTypeID: 2,
		ExcuseDate:   "2025-06-15",
		Description:  "Ailevi acil durum nedeniyle gelemedim.",
	})
	require.NoError(t, err)
}

// 添付必須の種別は説明なしでも通る
func TestSubmit_officialLeaveWithoutDescription(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemExcuses(), testNow)

	res, err := svc.Submit(ctx, 42, SubmitRequest{
		ExcuseTypeID: 3,
		ExcuseDate:   "2025-06-14",
		Attachments:  []string{"izin-belgesi.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Resmi İzin", res.TypeName)
	assert.Equal(t, []string{"izin-belgesi.pdf"}, res.Attachments)
}

func TestSubmit_duplicateDate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemExcuses(), testNow)

	req := SubmitRequest{
		ExcuseTypeID: 1,
		ExcuseDate:   "2025-06-14",
		Description:  "Grip nedeniyle istirahat raporu aldım.",
	}
	_, err := svc.Submit(ctx, 42, req)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, 42, req)
	assertCode(t, err, CodeDuplicate)

	// 別ユーザの同日は別件
	_, err = svc.Submit(ctx, 43, req)
	require.NoError(t, err)
}

func TestReview(t *testing.T) {
	ctx := context.Background()
	store := newMemExcuses()
	svc := newTestService(store, testNow)

	submitted, err := svc.Submit(ctx, 42, SubmitRequest{
		ExcuseTypeID: 4,
		ExcuseDate:   "2025-06-14",
		Description:  "Otobüs arızası nedeniyle geç kaldım.",
	})
	require.NoError(t, err)

	t.Run("approve from pending", func(t *testing.T) {
		res, err := svc.Review(ctx, submitted.ExcuseID, 7, StatusApproved, "belgeler uygun")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, res.Status)
		assert.Equal(t, "belgeler uygun", res.AdminNotes)
		assert.Equal(t, int64(7), res.ReviewedBy)
		require.NotNil(t, res.ReviewedAt)
		assert.Equal(t, testNow, *res.ReviewedAt)
	})

	t.Run("second review rejected", func(t *testing.T) {
		_, err := svc.Review(ctx, submitted.ExcuseID, 7, StatusRejected, "")
		assertCode(t, err, CodeAlreadyReviewed)
	})

	t.Run("unknown excuse", func(t *testing.T) {
		_, err := svc.Review(ctx, 9999, 7, StatusApproved, "")
		assertCode(t, err, CodeNotFound)
	})

	t.Run("invalid target status", func(t *testing.T) {
		_, err := svc.Review(ctx, submitted.ExcuseID, 7, StatusPending, "")
		assertCode(t, err, CodeInvalidArgument)
	})
}

func TestStatistics_zeroFilled(t *testing.T) {
	ctx := context.Background()
	store := newMemExcuses()
	svc := newTestService(store, testNow)

	_, err := svc.Submit(ctx, 42, SubmitRequest{
		ExcuseTypeID: 1,
		ExcuseDate:   "2025-06-14",
		Description:  "Grip nedeniyle istirahat raporu aldım.",
	})
	require.NoError(t, err)

	res, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ByStatus[StatusPending])
	assert.Equal(t, int64(0), res.ByStatus[StatusApproved])
	assert.Equal(t, int64(0), res.ByStatus[StatusRejected])
	assert.Len(t, res.ByStatus, 3)
	assert.Equal(t, int64(1), res.PendingTotal)
}

func TestList_filterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemExcuses(), testNow)

	bad := ExcuseStatus("WAITING")
	_, _, err := svc.List(ctx, ListQuery{Status: &bad})
	assertCode(t, err, CodeInvalidArgument)

	from := "not-a-date"
	_, _, err = svc.List(ctx, ListQuery{From: &from})
	assertCode(t, err, CodeInvalidArgument)
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	require.Error(t, err)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, want, api.Code)
}
