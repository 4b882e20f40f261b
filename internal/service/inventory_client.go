package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// InventoryClient is the single source of truth for available stock. It
// satisfies domain.StockReserver: reservation is an atomic check-and-decrement
// in Redis (Lua), with the Postgres FOR UPDATE transaction as fallback when
// Redis is unavailable.
type InventoryClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventoryClient creates a new inventory client
func NewInventoryClient(store *store.Store, redis *redisclient.Client) *InventoryClient {
	return &InventoryClient{
		store:  store,
		redis:  redis,
		logger: util.NamedLogger("inventory"),
	}
}

// Reserve reserves stock for a product (fast path via Redis). Returns false
// with no mutation when fewer than qty units are available.
func (ic *InventoryClient) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryClient.Reserve")
	defer span.End()

	success, err := ic.redis.ReserveStock(ctx, productID, qty)
	if err != nil {
		ic.logger.Warn("Redis reservation failed, falling back to DB",
			zap.String("product_id", productID),
			zap.Error(err))

		return ic.reserveStockDB(ctx, productID, qty)
	}

	if !success {
		return false, nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := ic.store.ReserveStockTx(ctx, productID, qty); err != nil {
			ic.logger.Error("Failed to sync reservation to DB",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}()

	return true, nil
}

// reserveStockDB reserves stock using database transaction (fallback)
func (ic *InventoryClient) reserveStockDB(ctx context.Context, productID string, qty int) (bool, error) {
	err := ic.store.ReserveStockTx(ctx, productID, qty)
	if err != nil {
		if strings.Contains(err.Error(), "insufficient stock") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release releases reserved stock (compensation)
func (ic *InventoryClient) Release(ctx context.Context, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.Release")
	defer span.End()

	if err := ic.redis.ReleaseStock(ctx, productID, qty); err != nil {
		ic.logger.Error("Failed to release stock in Redis",
			zap.String("product_id", productID),
			zap.Error(err))
	}

	return ic.store.ReleaseStock(ctx, productID, qty)
}

// Commit commits reserved stock after payment settles (final deduction)
func (ic *InventoryClient) Commit(ctx context.Context, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.Commit")
	defer span.End()

	if err := ic.redis.CommitStock(ctx, productID, qty); err != nil {
		ic.logger.Error("Failed to commit stock in Redis",
			zap.String("product_id", productID),
			zap.Error(err))
	}

	return ic.store.CommitStock(ctx, productID, qty)
}

// SyncInventoryToRedis seeds Redis from the database at startup
func (ic *InventoryClient) SyncInventoryToRedis(ctx context.Context) error {
	ic.logger.Info("Starting inventory sync to Redis")

	products, err := ic.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		inv, err := ic.store.GetInventory(ctx, product.ID)
		if err != nil {
			ic.logger.Error("Failed to get inventory",
				zap.String("product_id", product.ID),
				zap.Error(err))
			continue
		}

		if err := ic.redis.InitInventory(ctx, product.ID, inv.Available, inv.Reserved); err != nil {
			ic.logger.Error("Failed to init Redis inventory",
				zap.String("product_id", product.ID),
				zap.Error(err))
		}
	}

	ic.logger.Info("Inventory sync completed", zap.Int("count", len(products)))
	return nil
}

// GetInventory retrieves inventory counts for a product
func (ic *InventoryClient) GetInventory(ctx context.Context, productID string) (*models.Inventory, error) {
	return ic.store.GetInventory(ctx, productID)
}
