package service

import (
	"context"
	"fmt"

	"dorbot/internal/models"
	"dorbot/internal/util"

	"go.uber.org/zap"
)

// PackageStore is the persistence surface for operator package overrides.
type PackageStore interface {
	ListPackages(ctx context.Context) ([]models.Package, error)
	UpsertPackage(ctx context.Context, pkg *models.Package) error
	DeletePackage(ctx context.Context, code string) error
	SetPackageActive(ctx context.Context, code string, active bool) (bool, error)
}

// DefaultPackages returns the static built-in catalog. Operator overrides
// stored by code win on conflict.
func DefaultPackages() []models.Package {
	return []models.Package{
		{
			Code:           "vidio",
			PackageID:      "XL_VIDIO_PREMIER_30D",
			Name:           "Paket Vidio Unlimited",
			Price:          4500,
			Cost:           4000,
			Description:    "Nonton Vidio sepuasnya 30 hari",
			PaymentMethods: "DANA",
			Active:         true,
		},
		{
			Code:           "masa_aktif",
			PackageID:      "XL_MASA_AKTIF_1Y",
			Name:           "Masa Aktif 1 Tahun",
			Price:          10000,
			Cost:           9000,
			Description:    "Perpanjang masa aktif kartu 1 tahun",
			PaymentMethods: "",
			Active:         true,
		},
	}
}

// Catalog resolves selectable packages from the static default set merged
// with operator-stored overrides.
type Catalog struct {
	store    PackageStore
	defaults []models.Package
	logger   *zap.Logger
}

// NewCatalog creates a new package catalog
func NewCatalog(store PackageStore) *Catalog {
	return &Catalog{
		store:    store,
		defaults: DefaultPackages(),
		logger:   util.NamedLogger("catalog"),
	}
}

// merged returns defaults overlaid with stored overrides: default order
// first with overrides replacing by code, then new override codes in store
// order. A store read failure degrades to the default set only.
func (c *Catalog) merged(ctx context.Context) []models.Package {
	overrides, err := c.store.ListPackages(ctx)
	if err != nil {
		c.logger.Warn("Package store read failed, serving defaults only", zap.Error(err))
		overrides = nil
	}

	byCode := make(map[string]models.Package, len(overrides))
	for _, pkg := range overrides {
		byCode[pkg.Code] = pkg
	}

	out := make([]models.Package, 0, len(c.defaults)+len(overrides))
	seen := make(map[string]bool, len(c.defaults))
	for _, pkg := range c.defaults {
		if override, ok := byCode[pkg.Code]; ok {
			out = append(out, override)
		} else {
			out = append(out, pkg)
		}
		seen[pkg.Code] = true
	}
	for _, pkg := range overrides {
		if !seen[pkg.Code] {
			out = append(out, pkg)
		}
	}
	return out
}

// ListActive returns the selectable packages in menu order.
func (c *Catalog) ListActive(ctx context.Context) []models.Package {
	var out []models.Package
	for _, pkg := range c.merged(ctx) {
		if pkg.Active {
			out = append(out, pkg)
		}
	}
	return out
}

// ListAll returns every known package including inactive ones, for the
// admin view.
func (c *Catalog) ListAll(ctx context.Context) []models.Package {
	return c.merged(ctx)
}

// Resolve finds a package by code.
func (c *Catalog) Resolve(ctx context.Context, code string) (*models.Package, bool) {
	for _, pkg := range c.merged(ctx) {
		if pkg.Code == code {
			p := pkg
			return &p, true
		}
	}
	return nil, false
}

// Upsert stores an operator package override.
func (c *Catalog) Upsert(ctx context.Context, pkg *models.Package) error {
	if pkg.Code == "" || pkg.Name == "" || pkg.Price <= 0 {
		return fmt.Errorf("invalid package: code, name and positive price are required")
	}
	if err := c.store.UpsertPackage(ctx, pkg); err != nil {
		return fmt.Errorf("failed to upsert package: %w", err)
	}
	c.logger.Info("Package upserted", zap.String("code", pkg.Code), zap.Int64("price", pkg.Price))
	return nil
}

// Remove deletes an operator package override. Built-in defaults cannot be
// removed, only deactivated.
func (c *Catalog) Remove(ctx context.Context, code string) error {
	if err := c.store.DeletePackage(ctx, code); err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	c.logger.Info("Package removed", zap.String("code", code))
	return nil
}

// SetActive flips a package's active flag. Toggling a default that has no
// stored override materializes the override first.
func (c *Catalog) SetActive(ctx context.Context, code string, active bool) error {
	updated, err := c.store.SetPackageActive(ctx, code, active)
	if err != nil {
		return fmt.Errorf("failed to toggle package: %w", err)
	}
	if updated {
		return nil
	}

	pkg, ok := c.Resolve(ctx, code)
	if !ok {
		return fmt.Errorf("package not found: %s", code)
	}
	pkg.Active = active
	return c.Upsert(ctx, pkg)
}
