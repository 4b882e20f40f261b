package service

import (
	"context"
	"fmt"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService owns the product catalog and the admin-facing mutations on
// it. Admin mutations are recorded in the append-only action log.
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		logger: util.NamedLogger("catalog"),
	}
}

// CreateProductRequest adds a product with its opening stock
type CreateProductRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	CategoryID   string          `json:"category_id,omitempty"`
	InitialStock int             `json:"initial_stock"`
	AdminID      string          `json:"admin_id" binding:"required"`
}

// CreateProduct registers a product, seeds its inventory in both stores and
// logs the admin action
func (cs *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative, got %s", req.Price)
	}
	if req.InitialStock < 0 {
		return nil, fmt.Errorf("initial stock must not be negative, got %d", req.InitialStock)
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Discount:    decimal.Zero,
		CategoryID:  req.CategoryID,
	}
	if err := cs.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := cs.store.AddStock(ctx, product.ID, req.InitialStock); err != nil {
		return nil, fmt.Errorf("failed to seed inventory: %w", err)
	}
	if err := cs.redis.InitInventory(ctx, product.ID, req.InitialStock, 0); err != nil {
		cs.logger.Error("Failed to seed Redis inventory",
			zap.String("product_id", product.ID),
			zap.Error(err))
	}

	cs.logAction(ctx, req.AdminID, "CREATE_PRODUCT",
		fmt.Sprintf("created product %s (%s) with stock %d", product.ID, product.Name, req.InitialStock))

	return product, nil
}

// ApplyDiscount sets a flat discount on a product's list price
func (cs *CatalogService) ApplyDiscount(ctx context.Context, productID, adminID string, discount decimal.Decimal) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.ApplyDiscount")
	defer span.End()

	if discount.IsNegative() {
		return fmt.Errorf("discount must not be negative, got %s", discount)
	}
	if err := cs.store.UpdateProductDiscount(ctx, productID, discount); err != nil {
		return err
	}

	cs.logAction(ctx, adminID, "APPLY_DISCOUNT",
		fmt.Sprintf("set discount %s on product %s", discount, productID))
	return nil
}

// Restock adds qty units to a product's available stock
func (cs *CatalogService) Restock(ctx context.Context, productID, adminID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Restock")
	defer span.End()

	if qty <= 0 {
		return fmt.Errorf("restock quantity must be positive, got %d", qty)
	}
	if _, err := cs.store.GetProductByID(ctx, productID); err != nil {
		return err
	}
	if err := cs.store.AddStock(ctx, productID, qty); err != nil {
		return err
	}

	inv, err := cs.store.GetInventory(ctx, productID)
	if err != nil {
		return err
	}
	if err := cs.redis.InitInventory(ctx, productID, inv.Available, inv.Reserved); err != nil {
		cs.logger.Error("Failed to refresh Redis inventory after restock",
			zap.String("product_id", productID),
			zap.Error(err))
	}

	cs.logAction(ctx, adminID, "RESTOCK",
		fmt.Sprintf("added %d units to product %s", qty, productID))
	return nil
}

// ListProducts lists the catalog
func (cs *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return cs.store.GetProducts(ctx)
}

// GetProduct retrieves a product by ID
func (cs *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	return cs.store.GetProductByID(ctx, productID)
}

// GetInventory reports available and reserved counts for a product. Redis
// holds the live counts; the database row is the fallback when the key is
// missing.
func (cs *CatalogService) GetInventory(ctx context.Context, productID string) (*models.Inventory, error) {
	available, reserved, err := cs.redis.GetInventory(ctx, productID)
	if err == nil {
		return &models.Inventory{ProductID: productID, Available: available, Reserved: reserved}, nil
	}
	return cs.store.GetInventory(ctx, productID)
}

// LeaveReview appends a customer review on a product
func (cs *CatalogService) LeaveReview(ctx context.Context, productID, customerID string, rating int, text string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	if _, err := cs.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	if _, err := cs.store.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ID:         uuid.New().String(),
		ProductID:  productID,
		CustomerID: customerID,
		Rating:     rating,
		Text:       text,
	}
	if err := cs.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// GetReviews lists reviews for a product, newest first
func (cs *CatalogService) GetReviews(ctx context.Context, productID string) ([]models.Review, error) {
	return cs.store.GetReviewsByProductID(ctx, productID)
}

func (cs *CatalogService) logAction(ctx context.Context, adminID, actionType, description string) {
	action := &models.AdminAction{
		AdminID:     adminID,
		Type:        actionType,
		Description: description,
	}
	if err := cs.store.LogAdminAction(ctx, action); err != nil {
		cs.logger.Error("Failed to log admin action",
			zap.String("admin_id", adminID),
			zap.String("type", actionType),
			zap.Error(err))
	}
}
