package services

import (
	"context"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/pkg/logger"
)

// CatalogProvisioner makes sure a sellable product and a fresh price exist
// for a plan label. Products are reused by exact name; prices never are.
// Two concurrent calls for a new label can both create a product; that is
// tolerated.
type CatalogProvisioner struct {
	gateway  billing.Gateway
	currency string
	logger   *logger.Logger
}

// NewCatalogProvisioner creates a new catalog provisioner
func NewCatalogProvisioner(gateway billing.Gateway, currency string, log *logger.Logger) *CatalogProvisioner {
	return &CatalogProvisioner{
		gateway:  gateway,
		currency: currency,
		logger:   log,
	}
}

// EnsurePrice returns the id of a newly created price for label
func (p *CatalogProvisioner) EnsurePrice(ctx context.Context, label string, amount int64, isOneTime bool) (string, error) {
	productID, found, err := p.gateway.FindProductByName(ctx, label)
	if err != nil {
		return "", err
	}

	if found {
		p.logger.WithFields(map[string]interface{}{
			"product_id": productID,
			"label":      label,
		}).Info("Reusing existing product")
	} else {
		productID, err = p.gateway.CreateProduct(ctx, label)
		if err != nil {
			return "", err
		}
		p.logger.WithFields(map[string]interface{}{
			"product_id": productID,
			"label":      label,
		}).Info("Created new product")
	}

	return p.gateway.CreatePrice(ctx, billing.PriceParams{
		ProductID:  productID,
		UnitAmount: amount,
		Currency:   p.currency,
		Monthly:    !isOneTime,
	})
}
