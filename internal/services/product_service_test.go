package services_test

import (
	"context"
	"fmt"
	"testing"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"
	"freshharvest/internal/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter models.ProductFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CategoryCount), args.Error(1)
}

func validInput() services.ProductInput {
	return services.ProductInput{
		Name:        "Cold Pressed Orange",
		Description: "Fresh orange juice",
		Category:    models.CategoryFruitJuice,
		Price:       120,
		Stock:       30,
		Unit:        models.UnitMillilitre,
	}
}

func TestProductService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: 10.0, Stock: 100, IsActive: true},
		{ID: "2", Name: "Product B", Price: 20.0, Stock: 50, IsActive: true},
	}
	minPrice := 5.0

	mockRepo.On("List", mock.Anything, models.ProductFilter{
		Category:   models.CategoryFruitJuice,
		Search:     "product",
		MinPrice:   &minPrice,
		ActiveOnly: true,
		Limit:      2,
		Offset:     2,
	}).Return(expectedProducts, int64(5), nil).Once()

	page, err := service.ListProducts(context.Background(), services.ProductListQuery{
		Category: models.CategoryFruitJuice,
		Search:   "product",
		MinPrice: &minPrice,
		Page:     2,
		Limit:    2,
	})

	require.NoError(t, err)
	assert.Equal(t, expectedProducts, page.Products)
	assert.Equal(t, models.ProductPagination{CurrentPage: 2, TotalPages: 3, TotalProducts: 5}, page.Pagination)
	mockRepo.AssertExpectations(t)

	// Test unknown category
	_, err = service.ListProducts(context.Background(), services.ProductListQuery{Category: "vegetables"})
	assert.ErrorIs(t, err, models.ErrValidationFailed)
}

func TestProductService_ListProductsByVendor(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())
	ctx := context.Background()

	owned := []models.Product{{ID: "p1", VendorID: vendor.ID, IsActive: false}}
	mockRepo.On("List", mock.Anything, models.ProductFilter{VendorID: vendor.ID, Limit: 10}).Return(owned, int64(1), nil).Twice()

	page, err := service.ListProductsByVendor(ctx, admin, vendor.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, owned, page.Products)
	assert.Equal(t, models.ProductPagination{CurrentPage: 1, TotalPages: 1, TotalProducts: 1}, page.Pagination)

	_, err = service.ListProductsByVendor(ctx, vendor, vendor.ID, 1, 10)
	require.NoError(t, err)

	_, err = service.ListProductsByVendor(ctx, vendor2, vendor.ID, 1, 10)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = service.ListProductsByVendor(ctx, customer, vendor.ID, 1, 10)
	assert.ErrorIs(t, err, models.ErrForbidden)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())
	ctx := context.Background()

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: 10.0, Stock: 100, IsActive: true}

	// Test successful retrieval
	mockRepo.On("GetByID", mock.Anything, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProduct(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)
	mockRepo.AssertExpectations(t)

	// Test product not found
	mockRepo.On("GetByID", mock.Anything, "99").Return(nil, notFound("product with ID 99")).Once()
	product, err = service.GetProduct(ctx, "99")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)

	// Test inactive product is hidden
	mockRepo.On("GetByID", mock.Anything, "2").Return(&models.Product{ID: "2", IsActive: false}, nil).Once()
	_, err = service.GetProduct(ctx, "2")
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	userRepo := new(MockUserRepository)
	service := services.NewProductService(mockRepo, userRepo, zerolog.Nop())
	ctx := context.Background()
	vendorActor := authz.Actor{ID: "vendor-1", Role: models.RoleVendor}
	adminActor := authz.Actor{ID: "admin-1", Role: models.RoleAdmin}

	// Test vendor owns what they create, whatever vendorId says
	in := validInput()
	in.VendorID = "vendor-2"
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.VendorID == "vendor-1" && p.IsActive && p.Name == in.Name
	})).Return(nil).Once()
	product, err := service.CreateProduct(ctx, vendorActor, in)
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "vendor-1", product.VendorID)
	mockRepo.AssertExpectations(t)

	// Test admin creates on behalf of a vendor
	in.VendorID = "vendor-2"
	userRepo.On("GetByID", mock.Anything, "vendor-2").Return(&models.User{ID: "vendor-2", Role: models.RoleVendor}, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.VendorID == "vendor-2"
	})).Return(nil).Once()
	_, err = service.CreateProduct(ctx, adminActor, in)
	require.NoError(t, err)

	// Test admin must name a vendor account
	in.VendorID = ""
	_, err = service.CreateProduct(ctx, adminActor, in)
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	in.VendorID = "user-1"
	userRepo.On("GetByID", mock.Anything, "user-1").Return(&models.User{ID: "user-1", Role: models.RoleUser}, nil).Once()
	_, err = service.CreateProduct(ctx, adminActor, in)
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	// Test shoppers are forbidden
	_, err = service.CreateProduct(ctx, authz.Actor{ID: "user-1", Role: models.RoleUser}, validInput())
	assert.ErrorIs(t, err, models.ErrForbidden)

	// Test invalid input
	bad := validInput()
	bad.Unit = "bushel"
	bad.Price = -1
	_, err = service.CreateProduct(ctx, vendorActor, bad)
	require.ErrorIs(t, err, models.ErrValidationFailed)
	var de *models.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Fields, "unit")
	assert.Contains(t, de.Fields, "price")

	// Test creation failure (e.g., database error)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).Return(fmt.Errorf("database error")).Once()
	_, err = service.CreateProduct(ctx, vendorActor, validInput())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	mockRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())
	ctx := context.Background()

	existing := func() *models.Product {
		return &models.Product{ID: "1", Name: "Product A", Price: 10.0, Stock: 100, IsActive: true, VendorID: "vendor-1"}
	}

	// Test owning vendor updates
	mockRepo.On("GetByID", mock.Anything, "1").Return(existing(), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.ID == "1" && p.Price == 120 && p.VendorID == "vendor-1"
	})).Return(nil).Once()
	product, err := service.UpdateProduct(ctx, authz.Actor{ID: "vendor-1", Role: models.RoleVendor}, "1", validInput())
	require.NoError(t, err)
	assert.Equal(t, "Cold Pressed Orange", product.Name)
	mockRepo.AssertExpectations(t)

	// Test other vendors are forbidden
	mockRepo.On("GetByID", mock.Anything, "1").Return(existing(), nil).Once()
	_, err = service.UpdateProduct(ctx, authz.Actor{ID: "vendor-2", Role: models.RoleVendor}, "1", validInput())
	assert.ErrorIs(t, err, models.ErrForbidden)
	mockRepo.AssertExpectations(t)

	// Test update of a missing product
	mockRepo.On("GetByID", mock.Anything, "99").Return(nil, notFound("product with ID 99")).Once()
	_, err = service.UpdateProduct(ctx, authz.Actor{ID: "admin-1", Role: models.RoleAdmin}, "99", validInput())
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())
	ctx := context.Background()
	owned := &models.Product{ID: "1", VendorID: "vendor-1"}

	// Test successful deletion by admin
	mockRepo.On("GetByID", mock.Anything, "1").Return(owned, nil).Once()
	mockRepo.On("Delete", mock.Anything, "1").Return(nil).Once()
	err := service.DeleteProduct(ctx, authz.Actor{ID: "admin-1", Role: models.RoleAdmin}, "1")
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)

	// Test shoppers cannot delete
	mockRepo.On("GetByID", mock.Anything, "1").Return(owned, nil).Once()
	err = service.DeleteProduct(ctx, authz.Actor{ID: "user-1", Role: models.RoleUser}, "1")
	assert.ErrorIs(t, err, models.ErrForbidden)
	mockRepo.AssertExpectations(t)

	// Test deletion failure (e.g., database error)
	mockRepo.On("GetByID", mock.Anything, "1").Return(owned, nil).Once()
	mockRepo.On("Delete", mock.Anything, "1").Return(fmt.Errorf("database error")).Once()
	err = service.DeleteProduct(ctx, authz.Actor{ID: "vendor-1", Role: models.RoleVendor}, "1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	mockRepo.AssertExpectations(t)
}

func TestProductService_SetProductActive(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())
	ctx := context.Background()

	mockRepo.On("GetByID", mock.Anything, "1").Return(&models.Product{ID: "1", IsActive: true, VendorID: "vendor-1"}, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Product) bool { return !p.IsActive })).Return(nil).Once()
	product, err := service.SetProductActive(ctx, authz.Actor{ID: "admin-1", Role: models.RoleAdmin}, "1", false)
	require.NoError(t, err)
	assert.False(t, product.IsActive)

	// Test owning vendor still cannot change status
	_, err = service.SetProductActive(ctx, authz.Actor{ID: "vendor-1", Role: models.RoleVendor}, "1", true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	mockRepo.AssertExpectations(t)
}

func TestProductService_ListVendorProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, new(MockUserRepository), zerolog.Nop())

	mockRepo.On("List", mock.Anything, models.ProductFilter{VendorID: "vendor-1", Limit: 10}).
		Return([]models.Product{{ID: "1", VendorID: "vendor-1"}}, int64(1), nil).Once()
	page, err := service.ListVendorProducts(context.Background(), authz.Actor{ID: "vendor-1", Role: models.RoleVendor}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)

	_, err = service.ListVendorProducts(context.Background(), authz.Actor{ID: "user-1", Role: models.RoleUser}, 1, 10)
	assert.ErrorIs(t, err, models.ErrForbidden)
	mockRepo.AssertExpectations(t)
}
