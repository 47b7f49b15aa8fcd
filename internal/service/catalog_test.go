package service

import (
	"context"
	"testing"

	"dorbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogListsDefaultsWithEmptyStore(t *testing.T) {
	catalog := NewCatalog(&fakePackageStore{})

	pkgs := catalog.ListActive(context.Background())
	require.Len(t, pkgs, 2)
	assert.Equal(t, "vidio", pkgs[0].Code)
	assert.Equal(t, "masa_aktif", pkgs[1].Code)
}

func TestCatalogOverrideWinsByCode(t *testing.T) {
	store := &fakePackageStore{pkgs: []models.Package{
		{Code: "vidio", PackageID: "XL_VIDIO_PREMIER_30D", Name: "Vidio Promo", Price: 4000, Active: true},
	}}
	catalog := NewCatalog(store)

	pkg, ok := catalog.Resolve(context.Background(), "vidio")
	require.True(t, ok)
	assert.Equal(t, "Vidio Promo", pkg.Name)
	assert.Equal(t, int64(4000), pkg.Price)

	// Default order is preserved; the override replaces in place.
	pkgs := catalog.ListAll(context.Background())
	require.Len(t, pkgs, 2)
	assert.Equal(t, "vidio", pkgs[0].Code)
}

func TestCatalogNewOverrideCodesAppend(t *testing.T) {
	store := &fakePackageStore{pkgs: []models.Package{
		{Code: "akrab", PackageID: "XL_AKRAB_L", Name: "Akrab L", Price: 60000, Active: true},
	}}
	catalog := NewCatalog(store)

	pkgs := catalog.ListAll(context.Background())
	require.Len(t, pkgs, 3)
	assert.Equal(t, "akrab", pkgs[2].Code)
}

func TestCatalogDegradesToDefaultsOnStoreFailure(t *testing.T) {
	store := &fakePackageStore{listErr: assert.AnError}
	catalog := NewCatalog(store)

	pkgs := catalog.ListActive(context.Background())
	require.Len(t, pkgs, 2)
}

func TestCatalogListActiveFiltersInactive(t *testing.T) {
	store := &fakePackageStore{pkgs: []models.Package{
		{Code: "vidio", Name: "Paket Vidio", Price: 4500, Active: false},
	}}
	catalog := NewCatalog(store)

	pkgs := catalog.ListActive(context.Background())
	require.Len(t, pkgs, 1)
	assert.Equal(t, "masa_aktif", pkgs[0].Code)
}

func TestCatalogUpsertValidation(t *testing.T) {
	catalog := NewCatalog(&fakePackageStore{})
	ctx := context.Background()

	assert.Error(t, catalog.Upsert(ctx, &models.Package{Name: "x", Price: 1}))
	assert.Error(t, catalog.Upsert(ctx, &models.Package{Code: "x", Price: 1}))
	assert.Error(t, catalog.Upsert(ctx, &models.Package{Code: "x", Name: "x", Price: 0}))
	assert.NoError(t, catalog.Upsert(ctx, &models.Package{Code: "x", Name: "x", Price: 1}))
}

func TestCatalogSetActiveMaterializesDefault(t *testing.T) {
	store := &fakePackageStore{}
	catalog := NewCatalog(store)
	ctx := context.Background()

	// No stored row for the default yet; toggling writes one.
	require.NoError(t, catalog.SetActive(ctx, "vidio", false))

	pkg, ok := catalog.Resolve(ctx, "vidio")
	require.True(t, ok)
	assert.False(t, pkg.Active)
	require.Len(t, store.pkgs, 1)

	// A second toggle updates the stored row directly.
	require.NoError(t, catalog.SetActive(ctx, "vidio", true))
	pkg, _ = catalog.Resolve(ctx, "vidio")
	assert.True(t, pkg.Active)
	require.Len(t, store.pkgs, 1)
}

func TestCatalogSetActiveUnknownCode(t *testing.T) {
	catalog := NewCatalog(&fakePackageStore{})
	assert.Error(t, catalog.SetActive(context.Background(), "nope", true))
}
