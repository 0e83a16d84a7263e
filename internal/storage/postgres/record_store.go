// Package postgres provides the Postgres-backed record sink.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shoplens/extractor/internal/product"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for record rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RecordStore persists assembled product records. Rows are keyed by payload
// signature, so re-extracting an unchanged page is a no-op.
type RecordStore struct {
	pool  querier
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool querier, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "product_records"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveRecord inserts the record. An existing row with the same payload
// signature is left untouched.
func (s *RecordStore) SaveRecord(ctx context.Context, record product.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if record.PayloadSignature == "" {
		return fmt.Errorf("payload signature is required")
	}
	attrsJSON, err := json.Marshal(record.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	imagesJSON, err := json.Marshal(record.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	var priceAmount, priceCurrency *string
	if record.Price != nil {
		amount := record.Price.Amount.String()
		priceAmount = &amount
		priceCurrency = &record.Price.Currency
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	payload_signature,
	source_url,
	title,
	description_html,
	price_amount,
	price_currency,
	status,
	attributes,
	images,
	extracted_at,
	run_id
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (payload_signature) DO NOTHING`, s.table)

	args := []any{
		record.PayloadSignature,
		record.SourceURL,
		record.Title,
		record.DescriptionHTML,
		priceAmount,
		priceCurrency,
		string(record.Status),
		attrsJSON,
		imagesJSON,
		record.ExtractedAt,
		record.RunID,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetRecord loads a record by payload signature.
func (s *RecordStore) GetRecord(ctx context.Context, signature string) (product.Record, error) {
	if s == nil || s.pool == nil {
		return product.Record{}, fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
SELECT
	payload_signature,
	source_url,
	title,
	description_html,
	price_amount,
	price_currency,
	status,
	attributes,
	images,
	extracted_at,
	run_id
FROM %s
WHERE payload_signature = $1`, s.table)

	var (
		record        product.Record
		status        string
		priceAmount   *string
		priceCurrency *string
		attrsJSON     []byte
		imagesJSON    []byte
	)
	err := s.pool.QueryRow(ctx, query, signature).Scan(
		&record.PayloadSignature,
		&record.SourceURL,
		&record.Title,
		&record.DescriptionHTML,
		&priceAmount,
		&priceCurrency,
		&status,
		&attrsJSON,
		&imagesJSON,
		&record.ExtractedAt,
		&record.RunID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return product.Record{}, product.ErrRecordNotFound
	}
	if err != nil {
		return product.Record{}, fmt.Errorf("select record: %w", err)
	}

	record.Status = product.RecordStatus(status)
	if priceAmount != nil && priceCurrency != nil {
		amount, err := decimal.NewFromString(*priceAmount)
		if err != nil {
			return product.Record{}, fmt.Errorf("parse stored price %q: %w", *priceAmount, err)
		}
		record.Price = &product.PriceValue{Amount: amount, Currency: *priceCurrency}
	}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &record.Attributes); err != nil {
			return product.Record{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &record.Images); err != nil {
			return product.Record{}, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	return record, nil
}
