package place

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"
)

var (
	// ErrProviderUnavailable は外部プロバイダの呼び出し自体が失敗したことを表す
	// （結果が0件だった場合とは区別される）
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Coordinate は緯度経度を表す
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String は "lat,lng" 形式の文字列を返す
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// PlaceRecord は周辺検索で得られた1件の地点情報
type PlaceRecord struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	FormattedAddress string         `json:"formattedAddress"`
	Amenities        string         `json:"amenities,omitempty"`
	Raw              map[string]any `json:"raw,omitempty"` // プロバイダが返した生フィールド
}

// DisplayName は表示用の名前を返す（未設定時は "Unknown Name"）
func (p PlaceRecord) DisplayName() string {
	if p.Name == "" {
		return "Unknown Name"
	}
	return p.Name
}

// DisplayAddress は表示用の住所を返す
func (p PlaceRecord) DisplayAddress() string {
	if p.FormattedAddress == "" {
		return "Unknown Address"
	}
	return p.FormattedAddress
}

// DisplayAmenities は表示用の設備情報を返す
func (p PlaceRecord) DisplayAmenities() string {
	if p.Amenities == "" {
		return "No amenities listed"
	}
	return p.Amenities
}

// NeighborhoodInfo は近隣情報の6項目
type NeighborhoodInfo struct {
	Safety          string `json:"safety"`
	Population      string `json:"population"`
	GroceriesAccess string `json:"groceriesAccess"`
	Entertainment   string `json:"entertainment"`
	AvgRent         string `json:"avgRent"`
	AvgBuyPrice     string `json:"avgBuyPrice"`
}

// NearbyQuery は周辺検索の条件
type NearbyQuery struct {
	Center       Coordinate
	RadiusMeters int
	Category     string
}

// Geocoder は地名を座標に変換する
// 結果が0件の場合は mo.None と nil エラー、呼び出しに失敗した場合は mo.None と ErrProviderUnavailable を包んだエラーを返す
type Geocoder interface {
	Geocode(ctx context.Context, address string) (mo.Option[Coordinate], error)
}

// PlaceFinder は座標の周辺にある地点を検索する
type PlaceFinder interface {
	FindNearby(ctx context.Context, query NearbyQuery) ([]PlaceRecord, error)
}

// DetailFetcher は地点IDから詳細情報を取得する
type DetailFetcher interface {
	GetDetails(ctx context.Context, placeID string) (map[string]any, error)
}

// InfoScraper は地名から近隣情報を取得する
type InfoScraper interface {
	ScrapeInfo(ctx context.Context, place string) NeighborhoodInfo
}
