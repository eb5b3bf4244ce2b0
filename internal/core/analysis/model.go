package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/proplens/internal/core/place"
)

var (
	// ErrEmptyPlace は入力された地名が空の場合のエラー
	ErrEmptyPlace = errors.New("place is empty")

	// ErrEmptySelection は比較対象が選択されていない場合のエラー
	ErrEmptySelection = errors.New("no results selected")

	// ErrInvalidSelection は選択番号が結果一覧の範囲外の場合のエラー
	ErrInvalidSelection = errors.New("selection out of range")

	// ErrNoResults は検索結果がまだない状態で比較しようとした場合のエラー
	ErrNoResults = errors.New("no search results to compare")

	// ErrBusy は別のタスクが実行中の場合のエラー
	ErrBusy = errors.New("another task is running")
)

// State はアプリケーションの状態
type State string

const (
	StateIdle             State = "idle"
	StateSearching        State = "searching"
	StateResultsDisplayed State = "results_displayed"
	StateComparing        State = "comparing"
)

// Stage は検索パイプラインの各段階
type Stage string

const (
	StageGeocode   Stage = "geocode"
	StageNearby    Stage = "find_nearby"
	StageScrape    Stage = "scrape"
	StageSummarize Stage = "summarize"
	StageMap       Stage = "render_map"
	StageMapWrite  Stage = "write_map"
	StageCompare   Stage = "compare"
)

// FailureKind は段階の失敗の種類
type FailureKind string

const (
	// KindNoData はプロバイダが結果なしと応答したことを表す
	KindNoData FailureKind = "no-data"
	// KindFailed はプロバイダの呼び出し自体が失敗したことを表す
	KindFailed FailureKind = "failed"
)

// StageError はパイプラインのどの段階がどのように失敗したかを表す
type StageError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UserMessage はエラーダイアログに表示する文言を返す
func (e *StageError) UserMessage() string {
	switch e.Stage {
	case StageGeocode:
		if e.Kind == KindNoData {
			return "Could not find the location. Please check the input."
		}
		return "The geocoding service is unavailable. Please try again later."
	case StageNearby:
		if e.Kind == KindNoData {
			return "Could not find nearby projects."
		}
		return "The nearby search service is unavailable. Please try again later."
	case StageSummarize:
		return "Could not summarize the neighborhood information."
	case StageMap, StageMapWrite:
		return "Could not generate the map."
	case StageCompare:
		return "Could not compare the selected projects."
	default:
		return fmt.Sprintf("The %s step failed.", e.Stage)
	}
}

// UserMessage は任意のエラーをユーザー向けの文言に変換する
func UserMessage(err error) string {
	var stageErr *StageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyPlace):
		return "Please enter a valid place."
	case errors.Is(err, ErrEmptySelection):
		return "Please select at least one project."
	case errors.Is(err, ErrInvalidSelection):
		return "The selection does not match the current results."
	case errors.Is(err, ErrNoResults):
		return "Search for a place before comparing projects."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current task to finish."
	case errors.As(err, &stageErr):
		return stageErr.UserMessage()
	default:
		return err.Error()
	}
}

// SearchResult は1回の検索で得られた結果一式
type SearchResult struct {
	ID        uuid.UUID
	Place     string
	Center    place.Coordinate
	Places    []place.PlaceRecord
	Info      place.NeighborhoodInfo
	Summary   string
	MapPath   string
	Markers   int
	CreatedAt time.Time
}

// Snapshot は画面表示用のアプリケーション状態のコピー
type Snapshot struct {
	State      State               `json:"state"`
	Place      string              `json:"place"`
	Places     []place.PlaceRecord `json:"places"`
	Summary    string              `json:"summary"`
	Comparison string              `json:"comparison"`
	MapPath    string              `json:"mapPath"`
	Markers    int                 `json:"markers"`
	Error      string              `json:"error,omitempty"`
}
