package products_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/centralhq/central/auth"
	"github.com/centralhq/central/products"
)

func newTestService(t *testing.T) *products.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().Model((*products.Product)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	return products.NewService(products.NewStore(db)).WithLogger(auth.NopLogger{})
}

func ptr[T any](v T) *T { return &v }

func TestProductCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("creates an active product", func(t *testing.T) {
		record, err := svc.Create(ctx, products.CreateInput{
			Title:    "Mechanical Keyboard",
			Price:    129.99,
			Quantity: 25,
		})
		require.NoError(t, err)

		assert.Equal(t, "Mechanical Keyboard", record.Title)
		assert.True(t, record.IsActive)
		assert.NotEmpty(t, record.ID)
	})

	t.Run("rejects a duplicate title", func(t *testing.T) {
		_, err := svc.Create(ctx, products.CreateInput{
			Title:    "Mechanical Keyboard",
			Price:    99.99,
			Quantity: 5,
		})
		assert.ErrorIs(t, err, products.ErrTitleTaken)
	})

	t.Run("honors an explicit inactive flag", func(t *testing.T) {
		record, err := svc.Create(ctx, products.CreateInput{
			Title:    "Discontinued Mouse",
			Price:    10,
			Quantity: 1,
			IsActive: ptr(false),
		})
		require.NoError(t, err)
		assert.False(t, record.IsActive)

		// The flag must survive the round trip, not just the returned struct.
		stored, err := svc.GetByID(ctx, record.ID.String())
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
	})
}

func TestProductGetByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, products.CreateInput{
		Title:    "Webcam",
		Price:    59.99,
		Quantity: 12,
	})
	require.NoError(t, err)

	t.Run("finds an existing product", func(t *testing.T) {
		record, err := svc.GetByID(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, created.ID, record.ID)
	})

	t.Run("reports a missing product", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "0d4ff844-5f21-4f28-a7b9-9f28ee5c660c")
		assert.ErrorIs(t, err, products.ErrNotFound)
	})

	t.Run("treats a malformed id as missing", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, products.ErrNotFound)
	})
}

func TestProductList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("empty catalog lists as empty, not nil", func(t *testing.T) {
		records, err := svc.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Len(t, records, 0)
	})

	t.Run("lists everything", func(t *testing.T) {
		for _, title := range []string{"Desk", "Chair", "Lamp"} {
			_, err := svc.Create(ctx, products.CreateInput{Title: title, Price: 10, Quantity: 1})
			require.NoError(t, err)
		}

		records, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}

func TestProductUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, products.CreateInput{Title: "Monitor", Price: 199, Quantity: 4})
	require.NoError(t, err)
	_, err = svc.Create(ctx, products.CreateInput{Title: "Monitor Stand", Price: 39, Quantity: 9})
	require.NoError(t, err)

	t.Run("patches only the provided fields", func(t *testing.T) {
		updated, err := svc.Update(ctx, first.ID.String(), products.UpdateInput{
			Price: ptr(149.0),
		})
		require.NoError(t, err)

		assert.Equal(t, "Monitor", updated.Title)
		assert.Equal(t, 149.0, updated.Price)
		assert.Equal(t, 4, updated.Quantity)
	})

	t.Run("rejects a title owned by another product", func(t *testing.T) {
		_, err := svc.Update(ctx, first.ID.String(), products.UpdateInput{
			Title: ptr("Monitor Stand"),
		})
		assert.ErrorIs(t, err, products.ErrTitleTaken)
	})

	t.Run("keeping the same title is not a conflict", func(t *testing.T) {
		updated, err := svc.Update(ctx, first.ID.String(), products.UpdateInput{
			Title:    ptr("Monitor"),
			Quantity: ptr(7),
		})
		require.NoError(t, err)
		assert.Equal(t, 7, updated.Quantity)
	})

	t.Run("reports a missing product", func(t *testing.T) {
		_, err := svc.Update(ctx, "11f6e6bb-5f56-4efc-b34b-0f40fcd6f687", products.UpdateInput{
			Price: ptr(1.0),
		})
		assert.ErrorIs(t, err, products.ErrNotFound)
	})
}

func TestProductDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, products.CreateInput{Title: "Headset", Price: 79, Quantity: 3})
	require.NoError(t, err)

	t.Run("deletes an existing product", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created.ID.String()))

		_, err := svc.GetByID(ctx, created.ID.String())
		assert.ErrorIs(t, err, products.ErrNotFound)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		err := svc.Delete(ctx, created.ID.String())
		assert.ErrorIs(t, err, products.ErrNotFound)
	})
}
