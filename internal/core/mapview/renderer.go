package mapview

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/samber/mo"

	"github.com/jinford/proplens/internal/core/place"
)

// DefaultZoom は地図の初期ズームレベル
const DefaultZoom = 14

// MapDocument は描画済みの地図ドキュメント
type MapDocument struct {
	HTML    string
	Center  place.Coordinate
	Markers int
}

// Marker は地図上の1つのマーカー
type Marker struct {
	Lat     float64
	Lng     float64
	Color   string
	Tooltip string // HTMLエスケープ済み
	Popup   string // HTMLエスケープ済み
}

const (
	colorTarget    = "red"
	colorCandidate = "blue"
)

// Renderer は対象地点と候補地点のマーカーを載せた地図を描画する
type Renderer struct {
	geocoder place.Geocoder
	zoom     int
	logger   *slog.Logger
}

// RendererOption は Renderer の生成オプション
type RendererOption func(*Renderer)

// WithLogger は Renderer にロガーを設定する
func WithLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithZoom は初期ズームレベルを設定する
func WithZoom(zoom int) RendererOption {
	return func(r *Renderer) {
		if zoom > 0 {
			r.zoom = zoom
		}
	}
}

// NewRenderer は新しい Renderer を作成する
func NewRenderer(geocoder place.Geocoder, opts ...RendererOption) *Renderer {
	r := &Renderer{
		geocoder: geocoder,
		zoom:     DefaultZoom,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Render は対象地点を中心とした地図を描画する。
// 対象地点のジオコーディング結果が0件の場合は mo.None を返す。
// 候補地点は住所を順にジオコーディングし、解決できなかったものは黙って除外する。
func (r *Renderer) Render(ctx context.Context, target string, candidates []place.PlaceRecord) (mo.Option[MapDocument], error) {
	center, err := r.geocoder.Geocode(ctx, target)
	if err != nil {
		return mo.None[MapDocument](), fmt.Errorf("failed to geocode map target: %w", err)
	}
	c, ok := center.Get()
	if !ok {
		return mo.None[MapDocument](), nil
	}

	markers := make([]Marker, 0, len(candidates)+1)
	markers = append(markers, Marker{
		Lat:     c.Lat,
		Lng:     c.Lng,
		Color:   colorTarget,
		Tooltip: "Target Location",
		Popup:   template.HTMLEscapeString(target),
	})

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return mo.None[MapDocument](), err
		}

		coord, err := r.geocoder.Geocode(ctx, candidate.FormattedAddress)
		if err != nil {
			r.logger.Debug("skipping candidate marker", "name", candidate.Name, "error", err)
			continue
		}
		pos, ok := coord.Get()
		if !ok {
			r.logger.Debug("candidate address not resolvable", "name", candidate.Name, "address", candidate.FormattedAddress)
			continue
		}

		markers = append(markers, Marker{
			Lat:     pos.Lat,
			Lng:     pos.Lng,
			Color:   colorCandidate,
			Tooltip: template.HTMLEscapeString(candidate.DisplayName()),
			Popup:   candidatePopup(candidate),
		})
	}

	html, err := renderHTML(pageData{Center: c, Zoom: r.zoom, Markers: markers})
	if err != nil {
		return mo.None[MapDocument](), err
	}

	r.logger.Debug("map rendered", "target", target, "markers", len(markers))

	return mo.Some(MapDocument{
		HTML:    html,
		Center:  c,
		Markers: len(markers),
	}), nil
}

func candidatePopup(p place.PlaceRecord) string {
	return template.HTMLEscapeString(p.DisplayName()) + "<br>" +
		template.HTMLEscapeString(p.DisplayAddress()) + "<br>" +
		template.HTMLEscapeString(p.DisplayAmenities())
}

type pageData struct {
	Center  place.Coordinate
	Zoom    int
	Markers []Marker
}

func renderHTML(data pageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render map template: %w", err)
	}
	return buf.String(), nil
}

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>proplens map</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lng}}], {{.Zoom}});
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
function coloredIcon(color) {
  return new L.Icon({
    iconUrl: 'https://raw.githubusercontent.com/pointhi/leaflet-color-markers/master/img/marker-icon-2x-' + color + '.png',
    shadowUrl: 'https://unpkg.com/leaflet@1.9.4/dist/images/marker-shadow.png',
    iconSize: [25, 41], iconAnchor: [12, 41], popupAnchor: [1, -34], shadowSize: [41, 41]
  });
}
{{range .Markers}}L.marker([{{.Lat}}, {{.Lng}}], {icon: coloredIcon({{.Color}})}).bindTooltip({{.Tooltip}}).bindPopup({{.Popup}}).addTo(map);
{{end}}</script>
</body>
</html>
`))
