package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/example/ec-inventory/internal/readmodel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PostgresReadStore implements ReadStoreInterface on the read_* tables.
// Only the variants collection is persisted; other collections are ignored.
type PostgresReadStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresReadStore(db *sql.DB, logger *zap.Logger) *PostgresReadStore {
	return &PostgresReadStore{
		db:     sqlx.NewDb(db, "postgres"),
		logger: logger.With(zap.String("component", "postgres_read_store")),
	}
}

const upsertVariant = `
	INSERT INTO read_variants (code, name, tracked, on_hand, on_hold, available, version, updated_at)
	VALUES (:code, :name, :tracked, :on_hand, :on_hold, :available, :version, :updated_at)
	ON CONFLICT (code) DO UPDATE SET
		name = EXCLUDED.name,
		tracked = EXCLUDED.tracked,
		on_hand = EXCLUDED.on_hand,
		on_hold = EXCLUDED.on_hold,
		available = EXCLUDED.available,
		version = EXCLUDED.version,
		updated_at = EXCLUDED.updated_at
	WHERE read_variants.version < EXCLUDED.version`

// Set upserts a variant unless the stored row is already newer.
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	if collection != CollectionVariants {
		return
	}
	v, ok := data.(*readmodel.VariantReadModel)
	if !ok {
		rs.logger.Error("unexpected read model type", zap.String("collection", collection), zap.String("id", id))
		return
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now()
	}
	if _, err := rs.db.NamedExec(upsertVariant, v); err != nil {
		rs.logger.Error("failed to upsert variant", zap.String("code", id), zap.Error(err))
	}
}

func (rs *PostgresReadStore) Get(collection, id string) (any, bool) {
	if collection != CollectionVariants {
		return nil, false
	}
	var v readmodel.VariantReadModel
	err := rs.db.Get(&v, `SELECT * FROM read_variants WHERE code = $1`, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			rs.logger.Error("failed to get variant", zap.String("code", id), zap.Error(err))
		}
		return nil, false
	}
	return &v, true
}

func (rs *PostgresReadStore) GetAll(collection string) []any {
	if collection != CollectionVariants {
		return nil
	}
	var variants []readmodel.VariantReadModel
	if err := rs.db.Select(&variants, `SELECT * FROM read_variants ORDER BY code`); err != nil {
		rs.logger.Error("failed to list variants", zap.Error(err))
		return nil
	}
	items := make([]any, 0, len(variants))
	for i := range variants {
		items = append(items, &variants[i])
	}
	return items
}
