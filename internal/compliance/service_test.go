package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PTAS-backend/internal/ipaddr"
	"PTAS-backend/internal/users"
)

type fakeSnapshot struct {
	snap *Snapshot
	from time.Time
	to   time.Time
}

func (f *fakeSnapshot) Load(_ context.Context, from, to time.Time) (*Snapshot, error) {
	f.from, f.to = from, to
	return f.snap, nil
}

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

func newReportService(snap *Snapshot) (*Service, *fakeSnapshot) {
	fake := &fakeSnapshot{snap: snap}
	svc := &Service{
		store:        fake,
		clock:        stubClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
		ipv4Preserve: 3,
		ipv6Preserve: 2,
	}
	return svc, fake
}

func testUser(id int64, name, dept, assigned string) users.User {
	return users.User{
		UserID:         id,
		PersonnelNo:    "P" + name,
		FirstName:      name,
		LastName:       "Test",
		DepartmentCode: dept,
		DepartmentName: dept,
		AssignedIPs:    assigned,
	}
}

func rec(id, userID int64, ip string) RecordView {
	return RecordView{
		RecordID:   id,
		UserID:     userID,
		IPAddress:  ip,
		RecordedAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
}

func scenario() *Snapshot {
	return &Snapshot{
		Records: []RecordView{
			rec(1, 1, "192.168.1.100"), // MATCH
			rec(2, 1, "192.168.1.100"), // MATCH
			rec(3, 1, "10.9.9.9"),      // MISMATCH
			rec(4, 2, "172.16.0.5"),    // NO_ASSIGNMENT
			rec(5, 3, ipaddr.UnknownDefault), // UNKNOWN_IP
			rec(6, 3, "10.9.9.9"),      // MISMATCH
			rec(7, 9, "10.9.9.9"),      // ユーザ不明 → UNKNOWN_IP
		},
		Users: map[int64]users.User{
			1: testUser(1, "Alice", "IT", "192.168.1.100"),
			2: testUser(2, "Bob", "HR", ""),
			3: testUser(3, "Carol", "IT", "10.0.0.50"),
		},
	}
}

func TestGenerateReport_counts(t *testing.T) {
	svc, fake := newReportService(scenario())

	rep, err := svc.GenerateReport(context.Background(), "2025-06-01", "2025-06-07")
	require.NoError(t, err)

	assert.Equal(t, int64(7), rep.TotalRecords)
	assert.Equal(t, int64(2), rep.MatchingRecords)
	assert.Equal(t, int64(2), rep.MismatchRecords)
	assert.Equal(t, int64(1), rep.NoAssignmentRecords)
	assert.Equal(t, int64(2), rep.UnknownIPRecords)

	// 4分類の合計 = 総件数
	sum := rep.MatchingRecords + rep.MismatchRecords + rep.NoAssignmentRecords + rep.UnknownIPRecords
	assert.Equal(t, rep.TotalRecords, sum)

	// MATCH / (MATCH + MISMATCH) * 100
	assert.InDelta(t, 50.0, rep.CompliancePercentage, 0.001)

	// 終端は end_date 翌日0時（排他）
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), fake.from)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), fake.to)
	assert.Equal(t, "2025-06-15", rep.ReportDate)
}

func TestGenerateReport_userMismatches(t *testing.T) {
	svc, _ := newReportService(scenario())
	rep, err := svc.GenerateReport(context.Background(), "2025-06-01", "2025-06-07")
	require.NoError(t, err)

	require.Len(t, rep.UserMismatches, 2)
	// 件数が同じならユーザID昇順
	assert.Equal(t, int64(1), rep.UserMismatches[0].UserID)
	assert.Equal(t, int64(3), rep.UserMismatches[1].UserID)
	assert.Equal(t, []string{"10.9.9.9"}, rep.UserMismatches[0].ObservedIPs)
	assert.Equal(t, "192.168.1.100", rep.UserMismatches[0].AssignedIPs)
}

func TestGenerateReport_topIPs(t *testing.T) {
	svc, _ := newReportService(scenario())
	rep, err := svc.GenerateReport(context.Background(), "2025-06-01", "2025-06-07")
	require.NoError(t, err)

	require.NotEmpty(t, rep.TopIPAddresses)
	top := rep.TopIPAddresses[0]
	assert.Equal(t, "10.9.9.9", top.IPAddress)
	assert.Equal(t, int64(3), top.UsageCount)
	// 不明ユーザ(9)もユニーク数には入る
	assert.Equal(t, int64(3), top.UniqueUsers)
	// 名前は引けたユーザのみ
	assert.Equal(t, []string{"Alice Test", "Carol Test"}, top.UserNames)

	for _, u := range rep.TopIPAddresses {
		assert.GreaterOrEqual(t, u.UsageCount, u.UniqueUsers)
	}
}

func TestGenerateReport_departmentStats(t *testing.T) {
	svc, _ := newReportService(scenario())
	rep, err := svc.GenerateReport(context.Background(), "2025-06-01", "2025-06-07")
	require.NoError(t, err)

	byName := make(map[string]DepartmentCompliance)
	for _, d := range rep.DepartmentStats {
		byName[d.DepartmentName] = d
		// 部署小計も4分類の合計 = 部署総件数
		sum := d.MatchingRecords + d.MismatchRecords + d.NoAssignmentRecords + d.UnknownIPRecords
		assert.Equal(t, d.TotalRecords, sum, d.DepartmentName)
	}

	it := byName["IT"]
	assert.Equal(t, int64(5), it.TotalRecords)
	assert.Equal(t, int64(2), it.MatchingRecords)
	assert.Equal(t, int64(2), it.MismatchRecords)

	hr := byName["HR"]
	assert.Equal(t, int64(1), hr.NoAssignmentRecords)
	assert.Zero(t, hr.CompliancePercentage)

	// 所属不明ユーザの記録は UNKNOWN 部署に入る
	unknown := byName["UNKNOWN"]
	assert.Equal(t, int64(1), unknown.TotalRecords)
}

func TestGenerateReport_emptyPeriod(t *testing.T) {
	svc, _ := newReportService(&Snapshot{Users: map[int64]users.User{}})
	rep, err := svc.GenerateReport(context.Background(), "2025-06-01", "2025-06-01")
	require.NoError(t, err)
	assert.Zero(t, rep.TotalRecords)
	assert.Zero(t, rep.CompliancePercentage)
	assert.Empty(t, rep.UserMismatches)
	assert.Empty(t, rep.TopIPAddresses)
}

func TestGenerateReport_invalidDates(t *testing.T) {
	svc, _ := newReportService(scenario())
	_, err := svc.GenerateReport(context.Background(), "bad", "2025-06-07")
	require.Error(t, err)
	_, err = svc.GenerateReport(context.Background(), "2025-06-01", "bad")
	require.Error(t, err)
	_, err = svc.GenerateReport(context.Background(), "2025-06-07", "2025-06-01")
	require.Error(t, err)
}

func TestWeeklyReport_startsMonday(t *testing.T) {
	// 2025-06-15 は日曜。週初めは 2025-06-09(月)。
	svc, fake := newReportService(&Snapshot{Users: map[int64]users.User{}})
	_, err := svc.WeeklyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), fake.from)
}
