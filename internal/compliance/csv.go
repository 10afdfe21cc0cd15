package compliance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"PTAS-backend/internal/ipaddr"
)

// ExportCSV: レポートをCSVにして返す。
// ExcelでそのままIPv6やユーザ名が化けないよう BOM 付き UTF-8 で出力する。
// 観測IPは匿名化した表示用の値に置き換える（生のIPはCSVに載せない）。
func (s *Service) ExportCSV(ctx context.Context, startDate, endDate string) ([]byte, error) {
	rep, err := s.GenerateReport(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	enc := unicode.UTF8BOM.NewEncoder()
	w := csv.NewWriter(transform.NewWriter(&b, enc))

	// サマリ
	rows := [][]string{
		{"report_date", rep.ReportDate},
		{"period", rep.StartDate + " / " + rep.EndDate},
		{"total_records", i64(rep.TotalRecords)},
		{"matching_records", i64(rep.MatchingRecords)},
		{"mismatch_records", i64(rep.MismatchRecords)},
		{"no_assignment_records", i64(rep.NoAssignmentRecords)},
		{"unknown_ip_records", i64(rep.UnknownIPRecords)},
		{"compliance_percentage", fmt.Sprintf("%.2f", rep.CompliancePercentage)},
		{},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return nil, err
		}
	}

	// 不一致ユーザ
	if err := w.Write([]string{"personnel_no", "full_name", "department", "mismatch_count", "observed_ips"}); err != nil {
		return nil, err
	}
	for _, m := range rep.UserMismatches {
		masked := make([]byte, 0, 64)
		for i, ip := range m.ObservedIPs {
			if i > 0 {
				masked = append(masked, ';')
			}
			masked = append(masked, s.maskIP(ip)...)
		}
		row := []string{m.PersonnelNo, m.FullName, m.DepartmentName, i64(m.MismatchCount), string(masked)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if err := w.Write(nil); err != nil {
		return nil, err
	}

	// 使用IP上位
	if err := w.Write([]string{"ip_address", "usage_count", "unique_users"}); err != nil {
		return nil, err
	}
	for _, u := range rep.TopIPAddresses {
		if err := w.Write([]string{s.maskIP(u.IPAddress), i64(u.UsageCount), i64(u.UniqueUsers)}); err != nil {
			return nil, err
		}
	}
	if err := w.Write(nil); err != nil {
		return nil, err
	}

	// 部署別
	if err := w.Write([]string{"department", "total", "match", "mismatch", "no_assignment", "unknown_ip", "compliance_percentage"}); err != nil {
		return nil, err
	}
	for _, d := range rep.DepartmentStats {
		row := []string{
			d.DepartmentName,
			i64(d.TotalRecords), i64(d.MatchingRecords), i64(d.MismatchRecords),
			i64(d.NoAssignmentRecords), i64(d.UnknownIPRecords),
			fmt.Sprintf("%.2f", d.CompliancePercentage),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (s *Service) maskIP(ip string) string {
	return ipaddr.Mask(ip, s.ipv4Preserve, s.ipv6Preserve)
}

func i64(v int64) string { return strconv.FormatInt(v, 10) }
