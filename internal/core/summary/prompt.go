package summary

import (
	"fmt"
	"strings"

	"github.com/jinford/proplens/internal/core/place"
)

// BuildNeighborhoodPrompt は近隣情報を表形式に整形させるプロンプトを構築する
func BuildNeighborhoodPrompt(info place.NeighborhoodInfo) string {
	var sb strings.Builder

	sb.WriteString("Format the following real estate information into a detailed, well-organized table:\n")
	sb.WriteString(fmt.Sprintf("Safety: %s\n", info.Safety))
	sb.WriteString(fmt.Sprintf("Population: %s\n", info.Population))
	sb.WriteString(fmt.Sprintf("Ease of Access to Groceries: %s\n", info.GroceriesAccess))
	sb.WriteString(fmt.Sprintf("Entertainment: %s\n", info.Entertainment))
	sb.WriteString(fmt.Sprintf("Average Rent: %s\n", info.AvgRent))
	sb.WriteString(fmt.Sprintf("Average Buying Price: %s\n", info.AvgBuyPrice))

	return sb.String()
}

// BuildComparisonPrompt は選択された地点を比較させるプロンプトを構築する
func BuildComparisonPrompt(records []place.PlaceRecord) string {
	var sb strings.Builder

	sb.WriteString("Compare the following real estate projects in terms of area, safety, security, ease of access to groceries, and means of entertainment nearby:\n")
	for _, rec := range records {
		name := rec.Name
		if name == "" {
			name = "N/A"
		}
		address := rec.FormattedAddress
		if address == "" {
			address = "N/A"
		}
		sb.WriteString(fmt.Sprintf("Project Name: %s\n", name))
		sb.WriteString(fmt.Sprintf("Address: %s\n", address))
		sb.WriteString(fmt.Sprintf("Amenities: %s\n\n", rec.DisplayAmenities()))
	}

	return sb.String()
}
