package terminal

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jinford/proplens/internal/core/place"
)

// RenderResults は結果一覧を番号付きのテーブルで表示する
func RenderResults(w io.Writer, places []place.PlaceRecord, selected []int) {
	marks := make(map[int]bool, len(selected))
	for _, i := range selected {
		marks[i] = true
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Selected", "Name", "Address")
	for i, p := range places {
		mark := ""
		if marks[i] {
			mark = "*"
		}
		table.Append(strconv.Itoa(i+1), mark, truncateString(p.DisplayName(), 40), truncateString(p.DisplayAddress(), 60))
	}
	table.Render()
}

// RenderDetails は選択された地点の詳細パネルを表示する
func RenderDetails(w io.Writer, places []place.PlaceRecord) {
	if len(places) == 0 {
		fmt.Fprintln(w, "No projects selected.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Address", "Amenities")
	for _, p := range places {
		table.Append(orNA(p.Name), orNA(p.FormattedAddress), p.DisplayAmenities())
	}
	table.Render()
}

// RenderPlaceDetails はプロバイダから取得した詳細情報をキー順に表示する
func RenderPlaceDetails(w io.Writer, details map[string]any) {
	if len(details) == 0 {
		fmt.Fprintln(w, "No details available.")
		return
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, k := range keys {
		table.Append(k, truncateString(fmt.Sprint(details[k]), 80))
	}
	table.Render()
}

// ParseSelection は "1,3" や "1 2" のような1始まりの番号指定を0始まりの番号に変換する
func ParseSelection(input string, count int) ([]int, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, nil
	}

	seen := make(map[int]bool, len(fields))
	indices := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		if n < 1 || n > count {
			return nil, fmt.Errorf("number %d is out of range (1-%d)", n, count)
		}
		if seen[n-1] {
			continue
		}
		seen[n-1] = true
		indices = append(indices, n-1)
	}
	sort.Ints(indices)
	return indices, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncateString は文字列を指定長で切り詰めます
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
