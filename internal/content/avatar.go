package content

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// GenerateAvatar renders a coloured initials badge as an SVG data URL.
func GenerateAvatar(name string) string {
	var hash int32
	for _, r := range name {
		hash = int32(r) + ((hash << 5) - hash)
	}
	color := fmt.Sprintf("hsl(%d, 75%%, 50%%)", hash%360)
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100"><rect width="100" height="100" fill="%s" /><text x="50%%" y="55%%" dominant-baseline="middle" text-anchor="middle" font-size="48" font-family="Poppins, sans-serif" fill="#ffffff">%s</text></svg>`, color, initials(name))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func initials(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, " ")
	if len(parts) > 1 && parts[1] != "" {
		first := []rune(parts[0])
		last := []rune(parts[len(parts)-1])
		if len(first) > 0 && len(last) > 0 {
			return strings.ToUpper(string(first[0]) + string(last[0]))
		}
	}
	runes := []rune(name)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
