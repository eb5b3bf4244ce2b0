package analysis

import (
	"fmt"
	"strings"

	"github.com/jinford/proplens/internal/core/place"
)

// FormatDetails は選択された地点を詳細パネル用のテキストに整形する
func FormatDetails(records []place.PlaceRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "Name: %s\n", orNA(r.Name))
		fmt.Fprintf(&b, "Address: %s\n", orNA(r.FormattedAddress))
		fmt.Fprintf(&b, "Amenities: %s\n\n", r.DisplayAmenities())
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
