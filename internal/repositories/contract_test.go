package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"freshharvest/internal/models"
	"freshharvest/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend builds fresh, empty repositories for one test.
type backend struct {
	products func(t *testing.T) repositories.ProductRepository
	users    func(t *testing.T) repositories.UserRepository
	orders   func(t *testing.T) repositories.OrderRepository
}

func runRepositoryContract(t *testing.T, b backend) {
	t.Run("Products", func(t *testing.T) { testProductRepository(t, b.products) })
	t.Run("Users", func(t *testing.T) { testUserRepository(t, b.users) })
	t.Run("Orders", func(t *testing.T) { testOrderRepository(t, b.orders) })
}

func ptr[T any](v T) *T { return &v }

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func productID(p models.Product) string { return p.ID }
func orderID(o models.Order) string     { return o.ID }

func seedProducts(t *testing.T, repo repositories.ProductRepository) []*models.Product {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	products := []*models.Product{
		{Name: "Mango Juice", Description: "Alphonso mango", Category: models.CategoryFruitJuice, Price: 120, Stock: 10, Unit: models.UnitMillilitre, Images: []string{"mango.jpg"}, IsActive: true, VendorID: "v1"},
		{Name: "Almonds", Description: "California almonds", Category: models.CategoryDryFruits, Price: 650, Stock: 5, Unit: models.UnitKilogram, IsActive: true, VendorID: "v1"},
		{Name: "Cashews", Description: "Goan cashews", Category: models.CategoryDryFruits, Price: 900, Stock: 0, Unit: models.UnitKilogram, IsActive: true, VendorID: "v2"},
		{Name: "Orange Juice", Description: "Fresh NAGPUR oranges", Category: models.CategoryFruitJuice, Price: 80, Stock: 20, Unit: models.UnitLitre, IsActive: false, VendorID: "v2"},
	}
	for i, p := range products {
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, p))
		require.NotEmpty(t, p.ID)
	}
	return products
}

func testProductRepository(t *testing.T, newRepo func(t *testing.T) repositories.ProductRepository) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		seeded := seedProducts(t, repo)

		got, err := repo.GetByID(ctx, seeded[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Mango Juice", got.Name)
		assert.Equal(t, []string{"mango.jpg"}, got.Images)
		assert.Equal(t, 10, got.Stock)
		assert.True(t, got.IsActive)

		_, err = repo.GetByID(ctx, uuid.New().String())
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("GetByIDs", func(t *testing.T) {
		repo := newRepo(t)
		seeded := seedProducts(t, repo)

		got, err := repo.GetByIDs(ctx, []string{seeded[1].ID, uuid.New().String(), seeded[2].ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{seeded[1].ID, seeded[2].ID}, ids(got, productID))

		got, err = repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("List", func(t *testing.T) {
		repo := newRepo(t)
		s := seedProducts(t, repo)

		tests := []struct {
			name   string
			filter models.ProductFilter
			want   []string
		}{
			{"all newest first", models.ProductFilter{}, []string{s[3].ID, s[2].ID, s[1].ID, s[0].ID}},
			{"active only", models.ProductFilter{ActiveOnly: true}, []string{s[2].ID, s[1].ID, s[0].ID}},
			{"category", models.ProductFilter{Category: models.CategoryDryFruits}, []string{s[2].ID, s[1].ID}},
			{"vendor", models.ProductFilter{VendorID: "v2"}, []string{s[3].ID, s[2].ID}},
			{"search name ignores case", models.ProductFilter{Search: "JUICE"}, []string{s[3].ID, s[0].ID}},
			{"search description", models.ProductFilter{Search: "nagpur"}, []string{s[3].ID}},
			{"price range", models.ProductFilter{MinPrice: ptr(100.0), MaxPrice: ptr(650.0)}, []string{s[1].ID, s[0].ID}},
			{"combined", models.ProductFilter{ActiveOnly: true, Category: models.CategoryFruitJuice}, []string{s[0].ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, total, err := repo.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got, productID))
				assert.Equal(t, int64(len(tt.want)), total)
			})
		}
	})

	t.Run("ListPaginates", func(t *testing.T) {
		repo := newRepo(t)
		s := seedProducts(t, repo)

		got, total, err := repo.List(ctx, models.ProductFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, []string{s[1].ID, s[0].ID}, ids(got, productID))

		got, total, err = repo.List(ctx, models.ProductFilter{Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Empty(t, got)
	})

	t.Run("Counts", func(t *testing.T) {
		repo := newRepo(t)
		seedProducts(t, repo)

		total, err := repo.Count(ctx, models.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)

		active, err := repo.Count(ctx, models.ProductFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(3), active)

		byCategory, err := repo.CountByCategory(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.CategoryCount{
			{Category: models.CategoryDryFruits, Count: 2},
			{Category: models.CategoryFruitJuice, Count: 2},
		}, byCategory)
	})

	t.Run("Update", func(t *testing.T) {
		repo := newRepo(t)
		s := seedProducts(t, repo)

		p := *s[0]
		p.Price = 0
		p.IsActive = false
		p.Images = nil
		require.NoError(t, repo.Update(ctx, &p))

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Price)
		assert.False(t, got.IsActive)
		assert.Empty(t, got.Images)

		missing := models.Product{ID: uuid.New().String(), Name: "Ghost", VendorID: "v1"}
		assert.True(t, errors.Is(repo.Update(ctx, &missing), models.ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		s := seedProducts(t, repo)

		require.NoError(t, repo.Delete(ctx, s[0].ID))
		_, err := repo.GetByID(ctx, s[0].ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.True(t, errors.Is(repo.Delete(ctx, s[0].ID), models.ErrNotFound))
	})

	t.Run("Stock", func(t *testing.T) {
		repo := newRepo(t)
		s := seedProducts(t, repo)
		id := s[1].ID

		require.NoError(t, repo.DecrementStock(ctx, id, 3))
		err := repo.DecrementStock(ctx, id, 3)
		assert.True(t, errors.Is(err, models.ErrInsufficientStock))

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Stock)

		require.NoError(t, repo.DecrementStock(ctx, id, 2))
		require.NoError(t, repo.IncrementStock(ctx, id, 4))
		got, err = repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Stock)

		missing := uuid.New().String()
		assert.True(t, errors.Is(repo.DecrementStock(ctx, missing, 1), models.ErrNotFound))
		assert.True(t, errors.Is(repo.IncrementStock(ctx, missing, 1), models.ErrNotFound))
	})
}

func testUserRepository(t *testing.T, newRepo func(t *testing.T) repositories.UserRepository) {
	ctx := context.Background()

	newUser := func(email string, role models.Role) *models.User {
		return &models.User{Name: "Test User", Email: email, Password: "hash", Role: role, IsActive: true}
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		user := newUser("asha@example.com", models.RoleUser)
		require.NoError(t, repo.Create(ctx, user))
		require.NotEmpty(t, user.ID)

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "asha@example.com", byID.Email)
		assert.Equal(t, models.RoleUser, byID.Role)

		byEmail, err := repo.GetByEmail(ctx, "asha@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.True(t, errors.Is(err, models.ErrNotFound))
		_, err = repo.GetByID(ctx, uuid.New().String())
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newUser("asha@example.com", models.RoleUser)))

		err := repo.Create(ctx, newUser("asha@example.com", models.RoleVendor))
		assert.True(t, errors.Is(err, models.ErrConflict))
	})

	t.Run("Update", func(t *testing.T) {
		repo := newRepo(t)
		user := newUser("asha@example.com", models.RoleUser)
		require.NoError(t, repo.Create(ctx, user))

		user.Role = models.RoleVendor
		user.IsActive = false
		user.Phone = "+91 98765 43210"
		require.NoError(t, repo.Update(ctx, user))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleVendor, got.Role)
		assert.False(t, got.IsActive)
		assert.Equal(t, "+91 98765 43210", got.Phone)

		ghost := newUser("ghost@example.com", models.RoleUser)
		ghost.ID = uuid.New().String()
		assert.True(t, errors.Is(repo.Update(ctx, ghost), models.ErrNotFound))
	})

	t.Run("GetByIDs", func(t *testing.T) {
		repo := newRepo(t)
		a := newUser("a@example.com", models.RoleVendor)
		b := newUser("b@example.com", models.RoleVendor)
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Create(ctx, b))

		got, err := repo.GetByIDs(ctx, []string{a.ID, uuid.New().String(), b.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("List", func(t *testing.T) {
		repo := newRepo(t)
		s := seedUsers(t, repo)

		tests := []struct {
			name   string
			filter models.UserFilter
			want   []string
		}{
			{"all newest first", models.UserFilter{}, []string{s[2].ID, s[1].ID, s[0].ID}},
			{"role", models.UserFilter{Role: models.RoleUser}, []string{s[2].ID, s[0].ID}},
			{"search name ignores case", models.UserFilter{Search: "ORCHARD"}, []string{s[1].ID}},
			{"search email", models.UserFilter{Search: "farm.example"}, []string{s[2].ID}},
			{"created since", models.UserFilter{CreatedSince: s[1].CreatedAt}, []string{s[2].ID, s[1].ID}},
			{"role and since", models.UserFilter{Role: models.RoleUser, CreatedSince: s[1].CreatedAt}, []string{s[2].ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, total, err := repo.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got, userID))
				assert.Equal(t, int64(len(tt.want)), total)

				count, err := repo.Count(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, total, count)
			})
		}

		got, total, err := repo.List(ctx, models.UserFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []string{s[1].ID}, ids(got, userID))
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		s := seedUsers(t, repo)

		require.NoError(t, repo.Delete(ctx, s[0].ID))
		_, err := repo.GetByID(ctx, s[0].ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.True(t, errors.Is(repo.Delete(ctx, s[0].ID), models.ErrNotFound))

		remaining, err := repo.Count(ctx, models.UserFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), remaining)
	})
}

func seedUsers(t *testing.T, repo repositories.UserRepository) []*models.User {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	users := []*models.User{
		{Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleUser},
		{Name: "Orchard Co", Email: "sales@orchard.example", Role: models.RoleVendor},
		{Name: "Ravi", Email: "ravi@farm.example", Role: models.RoleUser},
	}
	for i, u := range users {
		u.Password = "hash"
		u.IsActive = true
		u.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, u))
	}
	return users
}

func userID(u models.User) string { return u.ID }

func seedOrders(t *testing.T, repo repositories.OrderRepository) []*models.Order {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	address := models.ShippingAddress{Street: "12 Market Road", City: "Pune", State: "MH", ZipCode: "411001", Country: "India"}

	orders := []*models.Order{
		{
			UserID: "c1",
			Items: []models.OrderItem{
				{ProductID: "p1", Quantity: 2, Price: 100, VendorID: "v1"},
				{ProductID: "p2", Quantity: 1, Price: 50, VendorID: "v2"},
			},
			Total: 300, OrderStatus: models.OrderStatusPending,
		},
		{
			UserID: "c1",
			Items:  []models.OrderItem{{ProductID: "p2", Quantity: 3, Price: 50, VendorID: "v2"}},
			Total:  215, OrderStatus: models.OrderStatusConfirmed,
		},
		{
			UserID: "c2",
			Items:  []models.OrderItem{{ProductID: "p1", Quantity: 1, Price: 100, VendorID: "v1"}},
			Total:  160, OrderStatus: models.OrderStatusDelivered,
		},
	}
	for i, o := range orders {
		o.ShippingAddress = address
		o.PaymentMethod = models.PaymentMethodCOD
		o.PaymentStatus = models.PaymentStatusPending
		o.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repo.Create(ctx, o))
		require.NotEmpty(t, o.ID)
	}
	return orders
}

func testOrderRepository(t *testing.T, newRepo func(t *testing.T) repositories.OrderRepository) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		s := seedOrders(t, repo)

		got, err := repo.GetByID(ctx, s[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "c1", got.UserID)
		assert.Equal(t, "Pune", got.ShippingAddress.City)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "p1", got.Items[0].ProductID)
		assert.Equal(t, "p2", got.Items[1].ProductID)
		assert.Equal(t, 100.0, got.Items[0].Price)
		assert.True(t, got.HasVendor("v2"))

		_, err = repo.GetByID(ctx, uuid.New().String())
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("List", func(t *testing.T) {
		repo := newRepo(t)
		s := seedOrders(t, repo)

		tests := []struct {
			name   string
			filter models.OrderFilter
			want   []string
		}{
			{"all newest first", models.OrderFilter{}, []string{s[2].ID, s[1].ID, s[0].ID}},
			{"customer", models.OrderFilter{UserID: "c1"}, []string{s[1].ID, s[0].ID}},
			{"vendor on any line", models.OrderFilter{VendorID: "v2"}, []string{s[1].ID, s[0].ID}},
			{"statuses", models.OrderFilter{Statuses: models.SalesStatuses}, []string{s[2].ID, s[1].ID}},
			{"since", models.OrderFilter{Since: s[1].CreatedAt}, []string{s[2].ID, s[1].ID}},
			{"vendor and status", models.OrderFilter{VendorID: "v1", Statuses: []models.OrderStatus{models.OrderStatusPending}}, []string{s[0].ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, total, err := repo.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got, orderID))
				assert.Equal(t, int64(len(tt.want)), total)
				for _, o := range got {
					assert.NotEmpty(t, o.Items)
				}
			})
		}

		got, total, err := repo.List(ctx, models.OrderFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []string{s[1].ID}, ids(got, orderID))
	})

	t.Run("Summarize", func(t *testing.T) {
		repo := newRepo(t)
		seedOrders(t, repo)

		tests := []struct {
			name    string
			filter  models.OrderFilter
			count   int64
			revenue float64
		}{
			{"all", models.OrderFilter{}, 3, 675},
			{"sales only", models.OrderFilter{Statuses: models.SalesStatuses}, 2, 375},
			{"vendor on any line", models.OrderFilter{VendorID: "v1"}, 2, 460},
			{"ignores pagination", models.OrderFilter{Limit: 1, Offset: 1}, 3, 675},
			{"no match", models.OrderFilter{UserID: "nobody"}, 0, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.Summarize(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.count, got.Count)
				assert.InDelta(t, tt.revenue, got.Revenue, 1e-9)
			})
		}
	})

	t.Run("VendorSales", func(t *testing.T) {
		repo := newRepo(t)
		seedOrders(t, repo)

		tests := []struct {
			name   string
			filter models.OrderFilter
			limit  int
			want   []models.VendorSales
		}{
			{"all lines", models.OrderFilter{}, 0, []models.VendorSales{
				{VendorID: "v1", TotalSales: 300, OrderCount: 2},
				{VendorID: "v2", TotalSales: 200, OrderCount: 2},
			}},
			{"sales only", models.OrderFilter{Statuses: models.SalesStatuses}, 0, []models.VendorSales{
				{VendorID: "v2", TotalSales: 150, OrderCount: 1},
				{VendorID: "v1", TotalSales: 100, OrderCount: 1},
			}},
			{"limited", models.OrderFilter{}, 1, []models.VendorSales{
				{VendorID: "v1", TotalSales: 300, OrderCount: 2},
			}},
			{"single vendor", models.OrderFilter{VendorID: "v2"}, 0, []models.VendorSales{
				{VendorID: "v2", TotalSales: 200, OrderCount: 2},
			}},
			{"no match", models.OrderFilter{UserID: "nobody"}, 5, []models.VendorSales{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.VendorSales(ctx, tt.filter, tt.limit)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		repo := newRepo(t)
		s := seedOrders(t, repo)
		eta := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

		require.NoError(t, repo.UpdateStatus(ctx, s[0].ID, models.StatusUpdate{
			OrderStatus:       models.OrderStatusShipped,
			TrackingNumber:    "TRK-42",
			EstimatedDelivery: &eta,
		}))

		got, err := repo.GetByID(ctx, s[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, got.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
		assert.Equal(t, "TRK-42", got.TrackingNumber)
		require.NotNil(t, got.EstimatedDelivery)
		assert.True(t, eta.Equal(*got.EstimatedDelivery))

		require.NoError(t, repo.UpdateStatus(ctx, s[0].ID, models.StatusUpdate{
			OrderStatus:   models.OrderStatusDelivered,
			PaymentStatus: models.PaymentStatusCompleted,
		}))
		got, err = repo.GetByID(ctx, s[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
		assert.Equal(t, "TRK-42", got.TrackingNumber)

		err = repo.UpdateStatus(ctx, uuid.New().String(), models.StatusUpdate{OrderStatus: models.OrderStatusCancelled})
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})
}
