package ipaddr

import (
	"net/netip"
	"strings"
)

// UnknownDefault: IPが特定できなかったときに記録へ入れる固定文字列。
// NULLは使わない（照合側の分岐を単純にするため）。
const UnknownDefault = "Unknown"

// ComplianceStatus: 記録されたIPと割当IPの照合結果
type ComplianceStatus string

const (
	StatusMatch        ComplianceStatus = "MATCH"
	StatusMismatch     ComplianceStatus = "MISMATCH"
	StatusNoAssignment ComplianceStatus = "NO_ASSIGNMENT"
	StatusUnknownIP    ComplianceStatus = "UNKNOWN_IP"
)

// IsValid: IPv4/IPv6リテラルとして正しいか（ゾーン付きは不可）
func IsValid(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Zone() == ""
}

// Format: 照合用の正規化。trim + IPv6は小文字に寄せる。
// 不明値はそのまま返す。
func Format(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == UnknownDefault {
		return UnknownDefault
	}
	if strings.Contains(s, ":") {
		return strings.ToLower(s)
	}
	return s
}

// ParseAssigned: 割当IP文字列（","または";"区切り）を分解する。
// 空要素は捨てる。nil/空文字は空スライス。
func ParseAssigned(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Match: observed が割当リストのいずれかと一致するか（正規化後の集合所属）
func Match(observed, assignedRaw string) bool {
	if observed == "" || observed == UnknownDefault {
		return false
	}
	if strings.TrimSpace(assignedRaw) == "" {
		return false
	}
	formatted := Format(observed)
	for _, ip := range ParseAssigned(assignedRaw) {
		if Format(ip) == formatted {
			return true
		}
	}
	return false
}

// Classify: 1件の記録IPを割当に対して判定する。
// 優先順位: 割当なし → 不明IP → 一致/不一致（元実装と同順）
func Classify(observed string, assignedRaw string) ComplianceStatus {
	if strings.TrimSpace(assignedRaw) == "" {
		return StatusNoAssignment
	}
	if observed == "" || observed == UnknownDefault {
		return StatusUnknownIP
	}
	if Match(observed, assignedRaw) {
		return StatusMatch
	}
	return StatusMismatch
}

// ValidateAssigned: 割当IP文字列の妥当性チェック。
// 空は有効（割当なし）。各要素が正しいリテラルで、重複がないこと。
func ValidateAssigned(raw string) (bad string, ok bool) {
	ips := ParseAssigned(raw)
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if !IsValid(ip) {
			return ip, false
		}
		key := Format(ip)
		if _, dup := seen[key]; dup {
			return ip, false
		}
		seen[key] = struct{}{}
	}
	return "", true
}
