package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownDimension = errors.New("unknown dimension table")

// DimensionTable names a dimension table and its natural-key column
type DimensionTable struct {
	Name      string
	KeyColumn string
}

var (
	MetalTable  = DimensionTable{Name: "dim_metal", KeyColumn: "metal_name"}
	MarketTable = DimensionTable{Name: "dim_market", KeyColumn: "market_name"}
)

// dimensionTables whitelists the tables a caller may resolve against
var dimensionTables = map[string]DimensionTable{
	MetalTable.Name:  MetalTable,
	MarketTable.Name: MarketTable,
}

// LookupTable returns the registered dimension for name, checking the key column matches
func LookupTable(name, keyColumn string) (DimensionTable, error) {
	t, ok := dimensionTables[name]
	if !ok || t.KeyColumn != keyColumn {
		return DimensionTable{}, fmt.Errorf("%w: %s.%s", ErrUnknownDimension, name, keyColumn)
	}
	return t, nil
}

// DimensionRepository handles database operations for dim_metal and dim_market
type DimensionRepository struct {
	pool *pgxpool.Pool
}

// NewDimensionRepository creates a new DimensionRepository
func NewDimensionRepository(pool *pgxpool.Pool) *DimensionRepository {
	return &DimensionRepository{pool: pool}
}

// LookupID returns the id of the row whose natural key equals value.
// The boolean is false when no row exists.
func (r *DimensionRepository) LookupID(ctx context.Context, table DimensionTable, value string) (int64, bool, error) {
	if _, err := LookupTable(table.Name, table.KeyColumn); err != nil {
		return 0, false, err
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1 ORDER BY id LIMIT 1`,
		pgx.Identifier{table.Name}.Sanitize(), pgx.Identifier{table.KeyColumn}.Sanitize())

	var id int64
	err := r.pool.QueryRow(ctx, query, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up %s %q: %w", table.Name, value, err)
	}
	return id, true, nil
}

// InsertDimension inserts a row with the natural key and extra attributes and returns its id.
// A concurrent insert of the same key is absorbed by the unique constraint: the existing
// row's non-key attributes are refreshed and its id returned.
func (r *DimensionRepository) InsertDimension(ctx context.Context, table DimensionTable, value string, extra map[string]any) (int64, error) {
	if _, err := LookupTable(table.Name, table.KeyColumn); err != nil {
		return 0, err
	}

	key := pgx.Identifier{table.KeyColumn}.Sanitize()
	columns := []string{key}
	placeholders := []string{"$1"}
	updates := []string{key + " = EXCLUDED." + key}
	args := []any{value}

	// stable column order keeps the statement cacheable
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		col := pgx.Identifier{name}.Sanitize()
		columns = append(columns, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		updates = append(updates, col+" = EXCLUDED."+col)
		args = append(args, extra[name])
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (%s) DO UPDATE SET %s
		RETURNING id
	`, pgx.Identifier{table.Name}.Sanitize(), strings.Join(columns, ", "), strings.Join(placeholders, ", "),
		key, strings.Join(updates, ", "))

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create %s %q: %w", table.Name, value, err)
	}
	return id, nil
}

// GetAll returns a map of natural key to id for every row in table
func (r *DimensionRepository) GetAll(ctx context.Context, table DimensionTable) (map[string]int64, error) {
	if _, err := LookupTable(table.Name, table.KeyColumn); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s`,
		pgx.Identifier{table.KeyColumn}.Sanitize(), pgx.Identifier{table.Name}.Sanitize())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table.Name, err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table.Name, err)
		}
		result[name] = id
	}

	return result, rows.Err()
}
