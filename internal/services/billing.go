package stamps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	plans "github.com/glkeru/loyalty/stamps/internal/plans"
	"go.uber.org/zap"
)

var errNoValidator = errors.New("purchase validator is not configured")

// Подписки: каталог и подтверждение покупки
type Billing struct {
	catalog   []model.Product
	validator interf.PurchaseValidator
	engine    *StampsEngine
	logger    *zap.Logger
}

func NewBilling(catalog []model.Product, validator interf.PurchaseValidator, engine *StampsEngine, logger *zap.Logger) *Billing {
	return &Billing{catalog, validator, engine, logger}
}

// Каталог из JSON, пустая строка - пустой каталог
func ParseCatalog(raw string) ([]model.Product, error) {
	if raw == "" {
		return []model.Product{}, nil
	}
	var products []model.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	for _, p := range products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("catalog: product without id")
		}
	}
	return products, nil
}

func (b *Billing) Catalog() []model.Product {
	return append([]model.Product{}, b.catalog...)
}

// Confirm validates the purchase on the backend and switches the plan.
func (b *Billing) Confirm(ctx context.Context, purchase model.PurchaseConfirmation) (model.PlanID, error) {
	if purchase.ProductID == "" || purchase.PurchaseToken == "" {
		return "", fmt.Errorf("purchase %q: %w", purchase.ProductID, model.ErrInvalidPurchase)
	}
	if b.validator == nil {
		return "", errNoValidator
	}
	productID, err := b.validator.Validate(ctx, purchase)
	if err != nil {
		b.logger.Error("Purchase validation",
			zap.String("service", "Billing"),
			zap.String("product", purchase.ProductID),
			zap.Error(err),
		)
		return "", fmt.Errorf("validate purchase: %w", err)
	}
	if productID == "" {
		productID = purchase.ProductID
	}
	plan, ok := plans.PlanForProduct(productID)
	if !ok {
		return "", fmt.Errorf("product %q: %w", productID, model.ErrUnknownProduct)
	}
	b.engine.ChangePlan(ctx, plan)
	b.logger.Info("plan changed", zap.String("plan", string(plan)), zap.String("product", productID))
	return plan, nil
}
