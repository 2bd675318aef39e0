package main

import (
	"context"
	"fmt"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/memory"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/prestamos-api/pkg/config"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

type txRunner interface {
	inventory.TxRunner
	borrowing.BorrowTxRunner
}

// storage agrupa los adaptadores de lectura y el runner transaccional del driver elegido.
type storage struct {
	tx        txRunner
	items     repository.ItemRepository
	movements repository.StockMovementRepository
	requests  repository.BorrowRequestRepository
	users     repository.UserRepository
	seed      func(ctx context.Context, ledger *inventory.StockLedger, log *logger.Logger)
	close     func()
}

func newPostgresStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return &storage{
		tx:        postgres.NewTxRunner(pool, cfg.Workflow.LockTimeout),
		items:     postgres.NewItemRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		requests:  postgres.NewBorrowRequestRepository(pool),
		users:     postgres.NewUserRepository(pool),
		close:     pool.Close,
	}, nil
}

func newMemoryStorage(cfg *config.Config) *storage {
	store := memory.NewStore(cfg.Workflow.LockTimeout)
	return &storage{
		tx:        memory.NewTxRunner(store),
		items:     memory.NewItemRepository(store),
		movements: memory.NewStockMovementRepository(store),
		requests:  memory.NewBorrowRequestRepository(store),
		users:     memory.NewUserRepository(store),
		seed: func(ctx context.Context, ledger *inventory.StockLedger, log *logger.Logger) {
			seedDemo(ctx, store, ledger, log)
		},
		close: func() {},
	}
}

// seedDemo carga un catálogo mínimo para desarrollo. El stock entra por el libro, como en producción.
func seedDemo(ctx context.Context, store *memory.Store, ledger *inventory.StockLedger, log *logger.Logger) {
	store.SeedDepartment(entity.Department{ID: "dep-sistemas", Name: "Sistemas"})
	store.SeedDepartment(entity.Department{ID: "dep-almacen", Name: "Almacén"})
	store.SeedUser(entity.User{ID: "usr-funcionario", EmployeeNumber: "0001", Name: "Funcionario Demo", Role: entity.RoleFuncionario, DepartmentID: "dep-sistemas", Status: "active"})
	store.SeedUser(entity.User{ID: "usr-almacen", EmployeeNumber: "0002", Name: "Almacén Demo", Role: entity.RoleAlmacen, DepartmentID: "dep-almacen", Status: "active"})

	system := entity.NewPrincipal("system", "dep-almacen", entity.RoleAlmacen)
	catalog := []struct {
		item entity.Item
		qty  int64
	}{
		{entity.Item{ID: "itm-proyector", Code: "AV-001", Name: "Proyector", Category: "audiovisual"}, 5},
		{entity.Item{ID: "itm-portatil", Code: "TI-001", Name: "Portátil", Category: "computo"}, 10},
		{entity.Item{ID: "itm-camara", Code: "AV-002", Name: "Cámara fotográfica", Category: "audiovisual"}, 2},
	}
	for _, c := range catalog {
		store.SeedItem(c.item)
		if _, err := ledger.Adjust(ctx, system, c.item.ID, entity.MovementTypeIN, c.qty, "carga inicial de demostración"); err != nil {
			log.Error().Err(err).Str("item_id", c.item.ID).Msg("carga demo")
		}
	}
	log.Info().Int("items", len(catalog)).Msg("catálogo de demostración cargado")
}
