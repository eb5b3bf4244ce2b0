package googlemaps

import "github.com/jinford/proplens/internal/core/place"

// プロバイダのステータス値
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// geocodeResponse は Geocoding API のレスポンス
type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type geocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
	PlaceID          string   `json:"place_id"`
}

type geometry struct {
	Location *location `json:"location"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// nearbySearchResponse は Places Nearby Search API のレスポンス
// results は生フィールドを保持するため map のまま受け取る
type nearbySearchResponse struct {
	Results       []map[string]any `json:"results"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	Status        string           `json:"status"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}

// placeDetailsResponse は Place Details API のレスポンス
type placeDetailsResponse struct {
	Result       map[string]any `json:"result"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// toPlaceRecord は生の検索結果を PlaceRecord に変換する
// Nearby Search は formatted_address を返さないことが多いため vicinity で補う
func toPlaceRecord(raw map[string]any) place.PlaceRecord {
	rec := place.PlaceRecord{
		ID:               stringField(raw, "place_id"),
		Name:             stringField(raw, "name"),
		FormattedAddress: stringField(raw, "formatted_address"),
		Amenities:        stringField(raw, "amenities"),
		Raw:              raw,
	}
	if rec.FormattedAddress == "" {
		rec.FormattedAddress = stringField(raw, "vicinity")
	}
	return rec
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
