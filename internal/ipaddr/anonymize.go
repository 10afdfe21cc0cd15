package ipaddr

import "strings"

const (
	maskOctet = "xxx"
	maskGroup = "xxxx"
)

// Mask: 表示用の匿名化。保存はしない。
//   - IPv4: 末尾オクテットを "xxx" に置換（preserveOctets で保持数を調整）
//   - IPv6: 末尾グループを "xxxx" に置換。"::" の圧縮位置は崩さない。
//   - 不明値/空はそのまま UnknownDefault、解釈できない文字列は全面マスク。
func Mask(ip string, preserveOctets, preserveGroups int) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || ip == UnknownDefault {
		return UnknownDefault
	}

	if strings.Contains(ip, ".") && !strings.Contains(ip, ":") {
		parts := strings.Split(ip, ".")
		if len(parts) != 4 {
			return maskAll(ip)
		}
		keep := clamp(preserveOctets, 0, 3)
		for i := keep; i < 4; i++ {
			parts[i] = maskOctet
		}
		return strings.Join(parts, ".")
	}

	if strings.Contains(ip, ":") {
		// "::" を跨いでグループ数を数えないよう、圧縮マーカーで二分して処理する
		if i := strings.Index(ip, "::"); i >= 0 {
			head := maskGroups(splitGroups(ip[:i]), preserveGroups)
			// 圧縮の後ろ側は常にマスク対象（末尾側のため）
			tail := maskGroups(splitGroups(ip[i+2:]), 0)
			return strings.Join(head, ":") + "::" + strings.Join(tail, ":")
		}
		parts := strings.Split(strings.ToLower(ip), ":")
		return strings.Join(maskGroups(parts, preserveGroups), ":")
	}

	return maskAll(ip)
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ToLower(s), ":")
}

func maskGroups(groups []string, preserve int) []string {
	keep := clamp(preserve, 0, len(groups))
	out := make([]string, len(groups))
	for i := range groups {
		if i < keep {
			out[i] = groups[i]
		} else {
			out[i] = maskGroup
		}
	}
	return out
}

func maskAll(s string) string {
	return strings.Repeat("x", len(s))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
