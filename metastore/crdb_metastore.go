package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Siyun/carbondata/schema"
	"github.com/Siyun/carbondata/utils"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type (
	CRDBMetaStore struct {
		pool *pgxpool.Pool
	}
)

func NewCRDBMetaStore(pool *pgxpool.Pool) (*CRDBMetaStore, error) {
	return &CRDBMetaStore{
		pool: pool,
	}, nil
}

func (cms *CRDBMetaStore) GetTableSchema(ctx context.Context, table string) (schema.TableSchema, error) {
	ts := schema.TableSchema{}
	err := utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		var (
			rawSchema []byte
			id        string
			createdAt time.Time
			updatedAt time.Time
		)
		err := conn.QueryRow(ctx, "SELECT id, schema, created_at, updated_at FROM table_schemas WHERE name = $1", table).Scan(&id, &rawSchema, &createdAt, &updatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return utils.PermError(fmt.Sprintf("table '%s' not found", table))
		}
		if err != nil {
			return fmt.Errorf("error in QueryRow: %w", err)
		}
		if err := json.Unmarshal(rawSchema, &ts); err != nil {
			return fmt.Errorf("error in json.Unmarshal: %w", err)
		}
		ts.ID = id
		ts.Name = table
		ts.CreatedAt = createdAt
		ts.UpdatedAt = updatedAt
		return nil
	})
	if err != nil {
		var pe utils.PermError
		if errors.As(err, &pe) {
			return ts, fmt.Errorf("table '%s': %w", table, ErrTableNotFound)
		}
		return ts, err
	}
	return ts, nil
}

func (cms *CRDBMetaStore) CreateTableSchema(ctx context.Context, ts schema.TableSchema) error {
	if ts.ID == "" {
		ts.ID = utils.GenRandomShortID()
	}
	jsonBytes, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}

	err = utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, "INSERT INTO table_schemas (name, id, schema) VALUES ($1, $2, $3)", ts.Name, ts.ID, jsonBytes)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return utils.PermError(ErrTableExists.Error())
		}
		if err != nil {
			return fmt.Errorf("error in Exec: %w", err)
		}
		return nil
	})
	var pe utils.PermError
	if errors.As(err, &pe) {
		return fmt.Errorf("table '%s': %w", ts.Name, ErrTableExists)
	}
	return err
}

func (cms *CRDBMetaStore) UpdatePartitionInfo(ctx context.Context, table string, info schema.PartitionInfo) error {
	return utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.BeginFunc(ctx, func(tx pgx.Tx) error {
			var rawSchema []byte
			ts := schema.TableSchema{}
			err := tx.QueryRow(ctx, "SELECT schema FROM table_schemas WHERE name = $1 FOR UPDATE", table).Scan(&rawSchema)
			if errors.Is(err, pgx.ErrNoRows) {
				return utils.PermError(ErrTableNotFound.Error())
			}
			if err != nil {
				return fmt.Errorf("error in QueryRow: %w", err)
			}
			if err := json.Unmarshal(rawSchema, &ts); err != nil {
				return fmt.Errorf("error in json.Unmarshal: %w", err)
			}
			ts.PartitionInfo = info
			jsonBytes, err := json.Marshal(ts)
			if err != nil {
				return fmt.Errorf("error in json.Marshal: %w", err)
			}
			if _, err := tx.Exec(ctx, "UPDATE table_schemas SET schema = $2, updated_at = now() WHERE name = $1", table, jsonBytes); err != nil {
				return fmt.Errorf("error in Exec: %w", err)
			}
			return nil
		})
	})
}

func (cms *CRDBMetaStore) ListSegments(ctx context.Context, table string) ([]Segment, error) {
	var segments []Segment
	err := utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, "SELECT id, partition, alive, row_count, cardinalities, created_at FROM segments WHERE table_name = $1 AND alive ORDER BY id", table)
		if err != nil {
			return fmt.Errorf("error in Query: %w", err)
		}
		defer rows.Close()

		segments = segments[:0]
		for rows.Next() {
			var seg Segment
			var cards pgtype.Int8Array
			if err := rows.Scan(&seg.ID, &seg.Partition, &seg.Alive, &seg.RowCount, &cards, &seg.CreatedAt); err != nil {
				return fmt.Errorf("error in rows.Scan: %w", err)
			}
			if err := cards.AssignTo(&seg.Cardinalities); err != nil {
				return fmt.Errorf("error in cards.AssignTo: %w", err)
			}
			segments = append(segments, seg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (cms *CRDBMetaStore) GetSegmentCardinalities(ctx context.Context, table, segmentID string) ([]int64, error) {
	var cardinalities []int64
	err := utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		var cards pgtype.Int8Array
		err := conn.QueryRow(ctx, "SELECT cardinalities FROM segments WHERE table_name = $1 AND id = $2", table, segmentID).Scan(&cards)
		if errors.Is(err, pgx.ErrNoRows) {
			return utils.PermError(fmt.Sprintf("segment '%s' not found", segmentID))
		}
		if err != nil {
			return fmt.Errorf("error in QueryRow: %w", err)
		}
		return cards.AssignTo(&cardinalities)
	})
	if err != nil {
		var pe utils.PermError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("segment '%s': %w", segmentID, ErrSegmentNotFound)
		}
		return nil, err
	}
	return cardinalities, nil
}

func (cms *CRDBMetaStore) CreateSegment(ctx context.Context, table string, seg Segment) error {
	cards := pgtype.Int8Array{}
	if err := cards.Set(seg.Cardinalities); err != nil {
		return fmt.Errorf("error in cards.Set: %w", err)
	}

	return utils.ReliableExec(ctx, cms.pool, time.Second*10, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx,
			"INSERT INTO segments (table_name, id, partition, alive, row_count, cardinalities) VALUES ($1, $2, $3, $4, $5, $6)",
			table, seg.ID, seg.Partition, seg.Alive, seg.RowCount, cards)
		if err != nil {
			return fmt.Errorf("error in Exec: %w", err)
		}
		return nil
	})
}

func (cms *CRDBMetaStore) SwapSegments(ctx context.Context, table string, oldIDs, newIDs []string) error {
	return utils.ReliableExec(ctx, cms.pool, time.Second*30, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.BeginFunc(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, "UPDATE segments SET alive = false WHERE table_name = $1 AND id = ANY($2)", table, oldIDs); err != nil {
				return fmt.Errorf("error marking old segments dead: %w", err)
			}
			if _, err := tx.Exec(ctx, "UPDATE segments SET alive = true WHERE table_name = $1 AND id = ANY($2)", table, newIDs); err != nil {
				return fmt.Errorf("error marking new segments alive: %w", err)
			}
			return nil
		})
	})
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	cms.pool.Close()
	return nil
}
