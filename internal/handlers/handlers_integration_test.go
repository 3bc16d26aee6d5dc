package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"royalchoice/internal/handlers"
	"royalchoice/internal/models"
	"royalchoice/internal/repositories"
	"royalchoice/internal/services"
	"royalchoice/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_integration"

// fakeGateway records payment intents instead of calling the provider.
type fakeGateway struct {
	amounts []int64
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*services.PaymentIntent, error) {
	g.amounts = append(g.amounts, amount)
	id := fmt.Sprintf("pi_%d", len(g.amounts))
	return &services.PaymentIntent{ID: id, ClientSecret: id + "_secret", Amount: amount, Currency: currency}, nil
}

type testEnv struct {
	app         *fiber.App
	store       *storage.Store
	authService *services.AuthService
	gateway     *fakeGateway
	adminToken  string
	userToken   string
	user        *models.User
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	// A fresh named in-memory database per test
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := repositories.OpenGORM(storage.DriverSQLite, dsn)
	require.NoError(t, err)
	store, err := storage.NewGORM(storage.DriverSQLite, db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	log := zap.NewNop()
	gateway := &fakeGateway{}

	authService := services.NewAuthService(store.Users, "test_jwt_secret", time.Hour)
	productService := services.NewProductService(store.Products, nil, log)
	cartService := services.NewCartService(store.Users, store.Products)
	orderService := services.NewOrderService(store.Orders, cartService, nil, log)
	paymentService := services.NewPaymentService(cartService, orderService, gateway, webhookSecret, "usd", log)

	paymentHandler := handlers.NewPaymentHandler(paymentService, authService, log)

	app := fiber.New()
	paymentHandler.RegisterWebhook(app)
	apiV1 := app.Group("/api/v1")
	handlers.NewProductHandler(productService, cartService, authService, log).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(authService, log).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService, authService).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService, authService).RegisterRoutes(apiV1)
	paymentHandler.RegisterRoutes(apiV1)

	env := &testEnv{app: app, store: store, authService: authService, gateway: gateway}

	// Admins are only created directly in the database
	ctx := context.Background()
	admin := &models.User{Email: "admin@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, store.Users.Create(ctx, admin))
	env.adminToken, err = authService.GenerateToken(admin)
	require.NoError(t, err)

	env.user, err = authService.RegisterUser(ctx, "shopper@example.com", "password123")
	require.NoError(t, err)
	env.userToken, err = authService.GenerateToken(env.user)
	require.NoError(t, err)

	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func productBody(title string, price float64) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "A fine " + title,
		"brand":       "Acme",
		"price":       price,
		"category":    "gadgets",
		"imageUrl":    "https://img.example/" + title + ".png",
		"amazonUrl":   "https://amazon.example/" + title,
	}
}

func (e *testEnv) listProducts(t *testing.T) []models.Product {
	t.Helper()
	products, err := e.store.Products.GetAll(context.Background())
	require.NoError(t, err)
	return products
}

// createProduct posts a product as the admin and returns the stored document.
// The create response carries no product, so the new one is found in the store.
func (e *testEnv) createProduct(t *testing.T, title string, price float64) models.Product {
	t.Helper()
	before := make(map[string]bool)
	for _, p := range e.listProducts(t) {
		before[p.ID] = true
	}

	status, data := e.do(t, http.MethodPost, "/api/v1/product", e.adminToken, productBody(title, price))
	require.Equal(t, http.StatusCreated, status, string(data))
	assert.JSONEq(t, `{"success":"Product added successfully"}`, string(data))

	var added []models.Product
	for _, p := range e.listProducts(t) {
		if !before[p.ID] {
			added = append(added, p)
		}
	}
	require.Len(t, added, 1)
	return added[0]
}

func TestProductCreate(t *testing.T) {
	env := setupApp(t)

	product := env.createProduct(t, "Laptop", 1200)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Laptop", product.Title)
	assert.Equal(t, "A fine Laptop", product.Description)
	assert.Equal(t, "Acme", product.Brand)
	assert.Equal(t, 1200.0, product.Price)
	assert.Equal(t, "gadgets", product.Category)
	assert.Equal(t, "https://img.example/Laptop.png", product.ImageURL)
	assert.Equal(t, "https://amazon.example/Laptop", product.AmazonURL)

	status, _ := env.do(t, http.MethodPost, "/api/v1/product", env.userToken, productBody("Mouse", 25))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/product", "", productBody("Mouse", 25))
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Len(t, env.listProducts(t), 1)
}

func TestProductCreateRequiresEveryField(t *testing.T) {
	fields := []string{"title", "description", "brand", "price", "category", "imageUrl", "amazonUrl"}

	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "absent"},
		{name: "empty", value: ""},
		{name: "blank", value: "   "},
	}

	env := setupApp(t)
	for _, field := range fields {
		for _, tt := range tests {
			t.Run(field+"/"+tt.name, func(t *testing.T) {
				body := productBody("Mouse", 25)
				if tt.name == "absent" {
					delete(body, field)
				} else if field == "price" {
					body[field] = 0
				} else {
					body[field] = tt.value
				}

				status, data := env.do(t, http.MethodPost, "/api/v1/product", env.adminToken, body)
				assert.Equal(t, http.StatusBadRequest, status)
				assert.Contains(t, string(data), "Provide all required arguments")
				assert.Empty(t, env.listProducts(t))
			})
		}
	}
}

func TestProductCreateThenFeatured(t *testing.T) {
	env := setupApp(t)

	mug := map[string]interface{}{
		"title":       "Mug",
		"description": "Ceramic",
		"brand":       "Acme",
		"price":       9.99,
		"category":    "Home",
		"imageUrl":    "http://x/y.png",
		"amazonUrl":   "http://amzn/z",
	}
	status, data := env.do(t, http.MethodPost, "/api/v1/product", env.adminToken, mug)
	require.Equal(t, http.StatusCreated, status, string(data))
	assert.JSONEq(t, `{"success":"Product added successfully"}`, string(data))

	status, data = env.do(t, http.MethodGet, "/api/v1/product/featuredProducts", "", nil)
	require.Equal(t, http.StatusOK, status)
	var featured []models.Product
	require.NoError(t, json.Unmarshal(data, &featured))
	require.Len(t, featured, 1)
	assert.Equal(t, "Mug", featured[0].Title)
	assert.Equal(t, 9.99, featured[0].Price)
	assert.Equal(t, "http://amzn/z", featured[0].AmazonURL)
}

func TestProductReadRoutes(t *testing.T) {
	env := setupApp(t)

	status, data := env.do(t, http.MethodGet, "/api/v1/product/featuredProducts", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"No featured products found"}`, string(data))

	var created []models.Product
	for i := 0; i < 20; i++ {
		created = append(created, env.createProduct(t, fmt.Sprintf("item%02d", i), float64(i+1)))
	}

	status, data = env.do(t, http.MethodGet, "/api/v1/product/featuredProducts", "", nil)
	require.Equal(t, http.StatusOK, status)
	var featured []models.Product
	require.NoError(t, json.Unmarshal(data, &featured))
	assert.Len(t, featured, services.FeaturedProductsLimit)

	status, _ = env.do(t, http.MethodGet, "/api/v1/product/all-products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, data = env.do(t, http.MethodGet, "/api/v1/product/all-products", env.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var all []models.Product
	require.NoError(t, json.Unmarshal(data, &all))
	assert.Len(t, all, 20)

	status, data = env.do(t, http.MethodGet, "/api/v1/product/"+created[3].ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var one models.Product
	require.NoError(t, json.Unmarshal(data, &one))
	assert.Equal(t, "item03", one.Title)

	status, _ = env.do(t, http.MethodGet, "/api/v1/product/"+uuid.New().String(), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductUpdate(t *testing.T) {
	env := setupApp(t)
	product := env.createProduct(t, "Laptop", 1200)
	path := "/api/v1/product/" + product.ID

	status, _ := env.do(t, http.MethodPut, path, "", productBody("Hacked", 1))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPut, path, env.userToken, productBody("Hacked", 1))
	assert.Equal(t, http.StatusForbidden, status)

	// The document is unchanged after the rejected update
	stored, err := env.store.Products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", stored.Title)

	status, _ = env.do(t, http.MethodPut, path, env.adminToken, map[string]interface{}{"title": "Only title"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPut, "/api/v1/product/"+uuid.New().String(), env.adminToken, productBody("Ghost", 5))
	assert.Equal(t, http.StatusNotFound, status)

	status, data := env.do(t, http.MethodPut, path, env.adminToken, productBody("Laptop Pro", 1500))
	require.Equal(t, http.StatusOK, status, string(data))
	var resp struct {
		Success string         `json:"success"`
		Product models.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "Product updated successfully", resp.Success)
	assert.Equal(t, product.ID, resp.Product.ID)
	assert.Equal(t, "Laptop Pro", resp.Product.Title)
	assert.Equal(t, 1500.0, resp.Product.Price)
	assert.Equal(t, "https://amazon.example/Laptop Pro", resp.Product.AmazonURL)
}

func TestProductDelete(t *testing.T) {
	env := setupApp(t)
	product := env.createProduct(t, "Laptop", 1200)
	path := "/api/v1/product/" + product.ID

	status, _ := env.do(t, http.MethodDelete, path, env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, data := env.do(t, http.MethodDelete, path, env.adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":"Product deleted successfully"}`, string(data))

	status, _ = env.do(t, http.MethodDelete, path, env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserProducts(t *testing.T) {
	env := setupApp(t)
	product := env.createProduct(t, "Laptop", 1200)

	status, _ := env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": product.ID})
	require.Equal(t, http.StatusOK, status)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{"missing email", map[string]interface{}{}, http.StatusBadRequest},
		{"unknown email", map[string]interface{}{"email": "nobody@example.com"}, http.StatusNotFound},
		{"someone else", map[string]interface{}{"email": "admin@example.com"}, http.StatusForbidden},
		{"own email", map[string]interface{}{"email": "shopper@example.com"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.do(t, http.MethodPost, "/api/v1/product/user-products", env.userToken, tt.body)
			assert.Equal(t, tt.wantStatus, status, string(data))
			if tt.wantStatus == http.StatusOK {
				var lines []models.CartLine
				require.NoError(t, json.Unmarshal(data, &lines))
				require.Len(t, lines, 1)
				assert.Equal(t, "Laptop", lines[0].Product.Title)
			}
		})
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	env := setupApp(t)
	creds := map[string]interface{}{"email": "new@example.com", "password": "password123"}

	status, data := env.do(t, http.MethodPost, "/api/v1/user/signup", "", creds)
	require.Equal(t, http.StatusCreated, status, string(data))
	assert.Contains(t, string(data), "User registered successfully")
	assert.NotContains(t, string(data), "password")

	status, _ = env.do(t, http.MethodPost, "/api/v1/user/signup", "", creds)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/user/signup", "", map[string]interface{}{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = env.do(t, http.MethodPost, "/api/v1/user/signin", "", creds)
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Success string      `json:"success"`
		Token   string      `json:"token"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(data, &login))
	assert.Equal(t, "Login successful", login.Success)
	assert.False(t, login.User.IsAdmin)

	status, data = env.do(t, http.MethodGet, "/api/v1/user/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "new@example.com")

	status, data = env.do(t, http.MethodPost, "/api/v1/user/signin", "", map[string]interface{}{"email": "new@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, string(data))
}

func TestCartRoutes(t *testing.T) {
	env := setupApp(t)
	laptop := env.createProduct(t, "Laptop", 1200)
	mouse := env.createProduct(t, "Mouse", 25)

	status, _ := env.do(t, http.MethodGet, "/api/v1/user/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID})
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": mouse.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": uuid.New().String()})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID, "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID, "quantity": 1000})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID, "quantity": services.MaxItemQuantity})
	assert.Equal(t, http.StatusBadRequest, status, "accumulating past the cap")

	status, data := env.do(t, http.MethodGet, "/api/v1/user/cart", env.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var lines []models.CartLine
	require.NoError(t, json.Unmarshal(data, &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, laptop.ID, lines[0].Product.ID)
	assert.Equal(t, 3, lines[0].Quantity)

	status, _ = env.do(t, http.MethodPut, "/api/v1/user/cart/"+mouse.ID, env.userToken, map[string]interface{}{"quantity": 5})
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPut, "/api/v1/user/cart/"+mouse.ID, env.userToken, map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPut, "/api/v1/user/cart/"+mouse.ID, env.userToken, map[string]interface{}{"quantity": 1000})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/user/cart/"+laptop.ID, env.userToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodDelete, "/api/v1/user/cart/"+laptop.ID, env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/user/cart", env.userToken, nil)
	assert.Equal(t, http.StatusOK, status)
	_, data = env.do(t, http.MethodGet, "/api/v1/user/cart", env.userToken, nil)
	assert.JSONEq(t, `[]`, string(data))
}

func signedWebhook(t *testing.T, eventType, object string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	return signed.Payload, signed.Header
}

func TestCheckoutFlow(t *testing.T) {
	env := setupApp(t)
	laptop := env.createProduct(t, "Laptop", 1200)
	mouse := env.createProduct(t, "Mouse", 25.5)

	status, _ := env.do(t, http.MethodPost, "/api/v1/payment/create-payment-intent", env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": laptop.ID})
	env.do(t, http.MethodPost, "/api/v1/user/cart", env.userToken, map[string]interface{}{"productId": mouse.ID, "quantity": 2})

	status, data := env.do(t, http.MethodPost, "/api/v1/payment/create-payment-intent", env.userToken, nil)
	require.Equal(t, http.StatusOK, status, string(data))
	var intent struct {
		ClientSecret    string `json:"clientSecret"`
		PaymentIntentID string `json:"paymentIntentId"`
		Amount          int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(data, &intent))
	assert.Equal(t, int64(125100), intent.Amount)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)

	// Tampered signature
	payload, _ := signedWebhook(t, "payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=123,v1=bogus")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	object := fmt.Sprintf(`{"id":%q,"object":"payment_intent","metadata":{"user_id":%q}}`, intent.PaymentIntentID, env.user.ID)
	payload, header := signedWebhook(t, "payment_intent.succeeded", object)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"received":true}`, string(body))

	status, data = env.do(t, http.MethodGet, "/api/v1/user/orders", env.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPaid, orders[0].Status)
	assert.InDelta(t, 1251.0, orders[0].TotalAmount, 0.001)
	assert.Len(t, orders[0].Items, 2)

	status, _ = env.do(t, http.MethodGet, "/api/v1/user/orders/"+orders[0].ID, env.userToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/user/orders/"+orders[0].ID, env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	_, data = env.do(t, http.MethodGet, "/api/v1/user/cart", env.userToken, nil)
	assert.JSONEq(t, `[]`, string(data))
}
