// seed carga bodegas, productos y compras iniciales desde CSV.
//
// Uso: go run ./cmd/seed [-dir ./seed] [-encoding windows-1252] [-actor seed]
// Archivos opcionales en dir: warehouses.csv (id;name;address), products.csv
// (code;name;unit_measure;price;cost) y purchases.csv (reference;product_code;warehouse_id;quantity;unit_cost;date).
// Cada alta queda en audit_logs como create a nombre de -actor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger-api/internal/application/audit"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

func main() {
	var dir, encoding, actor string
	flag.StringVar(&dir, "dir", "seed", "directorio con los CSV")
	flag.StringVar(&encoding, "encoding", "utf-8", "codificación de los CSV (utf-8, windows-1252, iso-8859-1)")
	flag.StringVar(&actor, "actor", "seed", "actor registrado en la auditoría")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: "development", Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("iniciar transacción")
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	s := &seeder{
		warehouses: postgres.NewWarehouseRepository(tx),
		products:   postgres.NewProductRepository(tx),
		events:     postgres.NewStockSourceRepository(tx),
		audit:      audit.NewTrailUseCase(postgres.NewAuditLogRepository(tx)),
		actor:      actor,
		log:        log,
		now:        time.Now,
	}
	stats, err := s.run(ctx, dir, encoding)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("seed fallido")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("confirmar seed")
	}
	log.Info().
		Int("warehouses", stats.warehouses).
		Int("products", stats.products).
		Int("purchases", stats.purchases).
		Msg("seed completado")
}

type seedStats struct {
	warehouses, products, purchases int
}

type seeder struct {
	warehouses repository.WarehouseRepository
	products   repository.ProductRepository
	events     repository.StockEventRepository
	audit      auditRecorder // nil: sin auditoría
	actor      string
	log        *logger.Logger
	now        func() time.Time
}

type auditRecorder interface {
	Record(ctx context.Context, actorID string, action entity.AuditAction, resourceType, resourceID string, oldValues, newValues map[string]any) error
}

// created audita un alta. Una falla de auditoría se registra y no detiene la carga.
func (s *seeder) created(ctx context.Context, resourceType, resourceID string, values map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, s.actor, entity.AuditCreate, resourceType, resourceID, nil, values); err != nil {
		s.log.Warn().Err(err).
			Str("resource_type", resourceType).
			Str("resource_id", resourceID).
			Msg("auditoría no registrada")
	}
}

func (s *seeder) run(ctx context.Context, dir, encoding string) (seedStats, error) {
	var st seedStats

	if f, err := open(dir, "warehouses.csv"); err != nil {
		return st, err
	} else if f != nil {
		rows, err := parseWarehouses(f, encoding)
		f.Close()
		if err != nil {
			return st, fmt.Errorf("warehouses.csv: %w", err)
		}
		if st.warehouses, err = s.seedWarehouses(ctx, rows); err != nil {
			return st, err
		}
	}

	codes := map[string]string{}
	if f, err := open(dir, "products.csv"); err != nil {
		return st, err
	} else if f != nil {
		rows, err := parseProducts(f, encoding)
		f.Close()
		if err != nil {
			return st, fmt.Errorf("products.csv: %w", err)
		}
		if st.products, err = s.seedProducts(ctx, rows, codes); err != nil {
			return st, err
		}
	}

	if f, err := open(dir, "purchases.csv"); err != nil {
		return st, err
	} else if f != nil {
		rows, err := parsePurchases(f, encoding)
		f.Close()
		if err != nil {
			return st, fmt.Errorf("purchases.csv: %w", err)
		}
		if st.purchases, err = s.seedPurchases(ctx, rows, codes); err != nil {
			return st, err
		}
	}
	return st, nil
}

// open devuelve (nil, nil) si el archivo no existe.
func open(dir, name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return f, err
}

func (s *seeder) seedWarehouses(ctx context.Context, rows []warehouseRow) (int, error) {
	n := 0
	for _, r := range rows {
		existing, err := s.warehouses.GetByID(ctx, r.ID)
		if err != nil {
			return n, fmt.Errorf("bodega %s: %w", r.ID, err)
		}
		if existing != nil {
			s.log.Debug().Str("warehouse_id", r.ID).Msg("bodega existente, se omite")
			continue
		}
		now := s.now()
		w := &entity.Warehouse{ID: r.ID, Name: r.Name, Address: r.Address, CreatedAt: now, UpdatedAt: now}
		if err := s.warehouses.Create(ctx, w); err != nil {
			return n, fmt.Errorf("crear bodega %s: %w", r.ID, err)
		}
		s.created(ctx, entity.ResourceWarehouse, w.ID, w.AuditValues())
		n++
	}
	return n, nil
}

// seedProducts crea los productos nuevos y llena codes (código → id), incluidos los existentes.
func (s *seeder) seedProducts(ctx context.Context, rows []productRow, codes map[string]string) (int, error) {
	n := 0
	for _, r := range rows {
		existing, err := s.products.GetByCode(ctx, r.Code)
		if err != nil {
			return n, fmt.Errorf("producto %s: %w", r.Code, err)
		}
		if existing != nil {
			codes[r.Code] = existing.ID
			continue
		}
		now := s.now()
		p := &entity.Product{
			ID:          uuid.New().String(),
			Code:        r.Code,
			Name:        r.Name,
			Price:       r.Price,
			Cost:        r.Cost,
			UnitMeasure: r.UnitMeasure,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.products.Create(ctx, p); err != nil {
			return n, fmt.Errorf("crear producto %s: %w", r.Code, err)
		}
		codes[r.Code] = p.ID
		s.created(ctx, entity.ResourceProduct, p.ID, p.AuditValues())
		n++
	}
	return n, nil
}

func (s *seeder) seedPurchases(ctx context.Context, rows []purchaseRow, codes map[string]string) (int, error) {
	for i, r := range rows {
		productID, ok := codes[r.ProductCode]
		if !ok {
			p, err := s.products.GetByCode(ctx, r.ProductCode)
			if err != nil {
				return i, fmt.Errorf("producto %s: %w", r.ProductCode, err)
			}
			if p == nil {
				return i, fmt.Errorf("compra %s: producto %s no existe", r.Reference, r.ProductCode)
			}
			productID = p.ID
			codes[r.ProductCode] = productID
		}
		line := &entity.PurchaseLine{
			ID:          uuid.New().String(),
			Reference:   r.Reference,
			ProductID:   productID,
			WarehouseID: r.WarehouseID,
			Quantity:    r.Quantity,
			UnitCost:    r.UnitCost,
			Date:        r.Date,
			CreatedAt:   s.now(),
		}
		if err := s.events.CreatePurchaseLine(ctx, line); err != nil {
			return i, fmt.Errorf("compra %s: %w", r.Reference, err)
		}
		s.created(ctx, entity.ResourcePurchase, line.ID, line.AuditValues())
	}
	return len(rows), nil
}
