package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/x-research-team/post-query/internal/config"
	"github.com/x-research-team/post-query/readmodel"
	"github.com/x-research-team/post-query/readstore/fixture"
	"github.com/x-research-team/post-query/readstore/memory"
	"github.com/x-research-team/post-query/readstore/postgres"
	"github.com/x-research-team/post-query/readstore/sqlite"
)

// openStore открывает хранилище выбранного драйвера и загружает фикстуры.
// Возвращаемая функция закрывает соединения.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (readmodel.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		if cfg.Fixtures != "" {
			n, err := store.LoadFixtures(ctx, cfg.Fixtures)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("фикстуры загружены", "driver", cfg.Driver, "posts", n)
		}
		return store, func() {}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		var opts []postgres.Option
		if cfg.Migrate {
			opts = append(opts, postgres.WithSchema())
		}
		store, err := postgres.NewStore(ctx, pool, opts...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if cfg.Fixtures != "" {
			logger.Warn("фикстуры не загружаются в postgres: таблицы заполняет проектор", "path", cfg.Fixtures)
		}
		return store, pool.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() { _ = db.Close() }

		if cfg.Migrate {
			applied, err := sqlite.Migrate(ctx, db)
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			logger.Info("миграции применены", "driver", cfg.Driver, "applied", applied)
		}

		store := sqlite.NewStore(db)
		if cfg.Fixtures != "" {
			posts, err := fixture.Load(cfg.Fixtures)
			if err == nil {
				err = store.Seed(ctx, posts...)
			}
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			logger.Info("фикстуры загружены", "driver", cfg.Driver, "posts", len(posts))
		}
		return store, closeDB, nil
	}

	return nil, nil, fmt.Errorf("неизвестный драйвер хранилища: %q", cfg.Driver)
}
