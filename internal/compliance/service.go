package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"PTAS-backend/internal/ipaddr"
	"PTAS-backend/internal/platform/db"
)

// ===== Error model (qrcode/attendance と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		if api.Code == CodeInvalidArgument {
			return 400
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
	store SnapshotStore
	clock Clock
	// 匿名化表示（CSV出力）で保持するオクテット/グループ数
	ipv4Preserve int
	ipv6Preserve int
}

func NewService(conn *sql.DB, ipCfg db.IPTrackingConfig) *Service {
	return &Service{
		store:        NewStore(conn),
		clock:        realClock{},
		ipv4Preserve: ipCfg.IPv4PreserveOctets,
		ipv6Preserve: ipCfg.IPv6PreserveGroups,
	}
}

// GenerateReport: 期間内の全記録を割当IPに対して判定し、集計を返す。
// 4つの判定件数の合計は常に総件数と一致する（部署小計も同様）。
func (s *Service) GenerateReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	from, err := time.ParseInLocation(DateLayout, startDate, time.UTC)
	if err != nil {
		return nil, ErrInvalid("start_date must be YYYY-MM-DD")
	}
	toDay, err := time.ParseInLocation(DateLayout, endDate, time.UTC)
	if err != nil {
		return nil, ErrInvalid("end_date must be YYYY-MM-DD")
	}
	if toDay.Before(from) {
		return nil, ErrInvalid("end_date must be >= start_date")
	}
	// 終端は翌日0時（排他）
	to := toDay.AddDate(0, 0, 1)

	snap, err := s.store.Load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return s.aggregate(snap, startDate, endDate), nil
}

type deptAccum struct {
	code    string
	name    string
	counts  [4]int64 // match, mismatch, noAssignment, unknown
	total   int64
}

type ipAccum struct {
	usage     int64
	userIDs   map[int64]struct{}
	userNames []string
	seenNames map[string]struct{}
}

type mismatchAccum struct {
	count int64
	ips   []string
	seen  map[string]struct{}
}

func (s *Service) aggregate(snap *Snapshot, startDate, endDate string) *Report {
	rep := &Report{
		ReportDate: s.clock.Now().UTC().Format(DateLayout),
		StartDate:  startDate,
		EndDate:    endDate,
	}

	deptMap := make(map[string]*deptAccum)
	ipMap := make(map[string]*ipAccum)
	mismatchMap := make(map[int64]*mismatchAccum)

	for _, rec := range snap.Records {
		rep.TotalRecords++

		u, known := snap.Users[rec.UserID]

		// ユーザが引けない記録は知りようがないので UNKNOWN_IP 扱い
		// （判定4種の合計 = 総件数の不変条件を守る）
		var status ipaddr.ComplianceStatus
		if !known {
			status = ipaddr.StatusUnknownIP
		} else {
			status = ipaddr.Classify(rec.IPAddress, u.AssignedIPs)
		}

		switch status {
		case ipaddr.StatusMatch:
			rep.MatchingRecords++
		case ipaddr.StatusMismatch:
			rep.MismatchRecords++
			m := mismatchMap[rec.UserID]
			if m == nil {
				m = &mismatchAccum{seen: make(map[string]struct{})}
				mismatchMap[rec.UserID] = m
			}
			m.count++
			if _, dup := m.seen[rec.IPAddress]; !dup {
				m.seen[rec.IPAddress] = struct{}{}
				m.ips = append(m.ips, rec.IPAddress)
			}
		case ipaddr.StatusNoAssignment:
			rep.NoAssignmentRecords++
		default:
			rep.UnknownIPRecords++
		}

		// IP使用状況
		ip := rec.IPAddress
		acc := ipMap[ip]
		if acc == nil {
			acc = &ipAccum{userIDs: make(map[int64]struct{}), seenNames: make(map[string]struct{})}
			ipMap[ip] = acc
		}
		acc.usage++
		acc.userIDs[rec.UserID] = struct{}{}
		if known {
			name := u.FullName()
			if _, dup := acc.seenNames[name]; !dup {
				acc.seenNames[name] = struct{}{}
				acc.userNames = append(acc.userNames, name)
			}
		}

		// 部署別
		deptKey := "UNKNOWN"
		deptName := "UNKNOWN"
		if known && u.DepartmentCode != "" {
			deptKey = u.DepartmentCode
			deptName = u.DepartmentName
			if deptName == "" {
				deptName = u.DepartmentCode
			}
		}
		d := deptMap[deptKey]
		if d == nil {
			d = &deptAccum{code: deptKey, name: deptName}
			deptMap[deptKey] = d
		}
		d.total++
		switch status {
		case ipaddr.StatusMatch:
			d.counts[0]++
		case ipaddr.StatusMismatch:
			d.counts[1]++
		case ipaddr.StatusNoAssignment:
			d.counts[2]++
		default:
			d.counts[3]++
		}
	}

	rep.CompliancePercentage = percentage(rep.MatchingRecords, rep.MismatchRecords)
	rep.UserMismatches = buildMismatches(snap, mismatchMap)
	rep.TopIPAddresses = buildTopIPs(ipMap)
	rep.DepartmentStats = buildDepartmentStats(deptMap)
	return rep
}

func percentage(match, mismatch int64) float64 {
	denom := match + mismatch
	if denom == 0 {
		return 0
	}
	return float64(match) / float64(denom) * 100.0
}

func buildMismatches(snap *Snapshot, mismatchMap map[int64]*mismatchAccum) []UserMismatch {
	out := make([]UserMismatch, 0, len(mismatchMap))
	for userID, m := range mismatchMap {
		u, ok := snap.Users[userID]
		if !ok {
			continue
		}
		out = append(out, UserMismatch{
			UserID:         userID,
			FullName:       u.FullName(),
			PersonnelNo:    u.PersonnelNo,
			DepartmentName: u.DepartmentName,
			AssignedIPs:    u.AssignedIPs,
			MismatchCount:  m.count,
			ObservedIPs:    m.ips,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MismatchCount != out[j].MismatchCount {
			return out[i].MismatchCount > out[j].MismatchCount
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func buildTopIPs(ipMap map[string]*ipAccum) []IPUsage {
	out := make([]IPUsage, 0, len(ipMap))
	for ip, acc := range ipMap {
		names := acc.userNames
		if len(names) > TopIPUserNames {
			names = names[:TopIPUserNames]
		}
		out = append(out, IPUsage{
			IPAddress:   ip,
			UsageCount:  acc.usage,
			UniqueUsers: int64(len(acc.userIDs)),
			UserNames:   names,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].IPAddress < out[j].IPAddress
	})
	if len(out) > TopIPLimit {
		out = out[:TopIPLimit]
	}
	return out
}

func buildDepartmentStats(deptMap map[string]*deptAccum) []DepartmentCompliance {
	out := make([]DepartmentCompliance, 0, len(deptMap))
	for _, d := range deptMap {
		out = append(out, DepartmentCompliance{
			DepartmentCode:       d.code,
			DepartmentName:       d.name,
			TotalRecords:         d.total,
			MatchingRecords:      d.counts[0],
			MismatchRecords:      d.counts[1],
			NoAssignmentRecords:  d.counts[2],
			UnknownIPRecords:     d.counts[3],
			CompliancePercentage: percentage(d.counts[0], d.counts[1]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DepartmentName < out[j].DepartmentName
	})
	return out
}

// ===== ダッシュボード用の期間ヘルパ =====

func (s *Service) TodayReport(ctx context.Context) (*Report, error) {
	today := s.clock.Now().UTC().Format(DateLayout)
	return s.GenerateReport(ctx, today, today)
}

func (s *Service) WeeklyReport(ctx context.Context) (*Report, error) {
	now := s.clock.Now().UTC()
	// 週初め（月曜）から当日まで
	offset := (int(now.Weekday()) + 6) % 7
	start := now.AddDate(0, 0, -offset)
	return s.GenerateReport(ctx, start.Format(DateLayout), now.Format(DateLayout))
}

func (s *Service) MonthlyReport(ctx context.Context) (*Report, error) {
	now := s.clock.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.GenerateReport(ctx, start.Format(DateLayout), now.Format(DateLayout))
}
