package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/place"
	"github.com/jinford/proplens/internal/platform/database"
)

//go:embed schema.sql
var schemaSQL string

// ErrSearchNotFound は指定IDの検索履歴が存在しない場合のエラー
var ErrSearchNotFound = errors.New("search not found")

// DBTX はリポジトリが使用する接続（pgxpool.Pool が満たす）
type DBTX interface {
	database.TxBeginner
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SearchRepository は検索履歴を PostgreSQL に保存するリポジトリ
type SearchRepository struct {
	db DBTX
}

// NewSearchRepository は新しい SearchRepository を返す
func NewSearchRepository(db DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

var _ analysis.HistoryRecorder = (*SearchRepository)(nil)

// SearchSummary は履歴一覧の1行
type SearchSummary struct {
	ID          uuid.UUID `json:"id"`
	Place       string    `json:"place"`
	ResultCount int       `json:"resultCount"`
	Markers     int       `json:"markers"`
	MapPath     string    `json:"mapPath"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EnsureSchema は履歴用のテーブルが存在しなければ作成する
func (r *SearchRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure history schema: %w", err)
	}
	return nil
}

// Save は検索結果と結果一覧を1トランザクションで保存する
func (r *SearchRepository) Save(ctx context.Context, result *analysis.SearchResult) error {
	if result == nil {
		return errors.New("search result is nil")
	}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	info, err := json.Marshal(result.Info)
	if err != nil {
		return fmt.Errorf("failed to encode neighborhood info: %w", err)
	}

	_, err = database.Transact(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		query := `
			INSERT INTO searches (id, place, lat, lng, result_count, summary, neighborhood, map_path, markers, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		if _, err := tx.Exec(ctx, query,
			result.ID,
			result.Place,
			result.Center.Lat,
			result.Center.Lng,
			len(result.Places),
			result.Summary,
			info,
			result.MapPath,
			result.Markers,
			createdAtOrNow(result.CreatedAt),
		); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert search: %w", err)
		}

		for i, p := range result.Places {
			raw, err := encodeRaw(p.Raw)
			if err != nil {
				return struct{}{}, err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO search_places (search_id, position, place_id, name, formatted_address, amenities, raw)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, result.ID, i, p.ID, p.Name, p.FormattedAddress, p.Amenities, raw); err != nil {
				return struct{}{}, fmt.Errorf("failed to insert search place %d: %w", i, err)
			}
		}

		return struct{}{}, nil
	})
	return err
}

// List は新しい順に検索履歴を返す
func (r *SearchRepository) List(ctx context.Context, limit int) ([]SearchSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, place, result_count, markers, map_path, created_at
		FROM searches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var summaries []SearchSummary
	for rows.Next() {
		var s SearchSummary
		if err := rows.Scan(&s.ID, &s.Place, &s.ResultCount, &s.Markers, &s.MapPath, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate searches: %w", err)
	}

	return summaries, nil
}

// GetByID はIDで検索履歴を取得する。結果一覧は検索時の順序で返す。
func (r *SearchRepository) GetByID(ctx context.Context, id uuid.UUID) (*analysis.SearchResult, error) {
	var (
		result analysis.SearchResult
		info   []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, place, lat, lng, summary, neighborhood, map_path, markers, created_at
		FROM searches
		WHERE id = $1
	`, id).Scan(
		&result.ID,
		&result.Place,
		&result.Center.Lat,
		&result.Center.Lng,
		&result.Summary,
		&info,
		&result.MapPath,
		&result.Markers,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSearchNotFound, id)
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	if len(info) > 0 {
		if err := json.Unmarshal(info, &result.Info); err != nil {
			return nil, fmt.Errorf("failed to decode neighborhood info: %w", err)
		}
	}

	rows, err := r.db.Query(ctx, `
		SELECT place_id, name, formatted_address, amenities, raw
		FROM search_places
		WHERE search_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get search places: %w", err)
	}
	defer rows.Close()

	result.Places = []place.PlaceRecord{}
	for rows.Next() {
		var (
			p   place.PlaceRecord
			raw []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.FormattedAddress, &p.Amenities, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan search place: %w", err)
		}
		if p.Raw, err = decodeRaw(raw); err != nil {
			return nil, err
		}
		result.Places = append(result.Places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search places: %w", err)
	}

	return &result, nil
}

func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
