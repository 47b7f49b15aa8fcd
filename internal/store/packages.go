package store

import (
	"context"

	"dorbot/internal/models"
)

// ListPackages retrieves all operator-stored package overrides in insertion
// order.
func (s *Store) ListPackages(ctx context.Context) ([]models.Package, error) {
	var pkgs []models.Package
	err := s.db.SelectContext(ctx, &pkgs, "SELECT * FROM packages ORDER BY updated_at, code")
	return pkgs, err
}

// UpsertPackage stores or replaces a package override by code.
func (s *Store) UpsertPackage(ctx context.Context, pkg *models.Package) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (code, package_id, name, price, cost, description, payment_methods, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (code) DO UPDATE
		SET package_id = EXCLUDED.package_id,
		    name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    cost = EXCLUDED.cost,
		    description = EXCLUDED.description,
		    payment_methods = EXCLUDED.payment_methods,
		    active = EXCLUDED.active,
		    updated_at = NOW()`,
		pkg.Code, pkg.PackageID, pkg.Name, pkg.Price, pkg.Cost,
		pkg.Description, pkg.PaymentMethods, pkg.Active)
	return err
}

// DeletePackage removes a package override by code.
func (s *Store) DeletePackage(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM packages WHERE code = $1", code)
	return err
}

// SetPackageActive flips the active flag on a stored package. Returns
// whether a row was updated.
func (s *Store) SetPackageActive(ctx context.Context, code string, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE packages SET active = $1, updated_at = NOW() WHERE code = $2", active, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
