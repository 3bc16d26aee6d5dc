package services

import (
	"context"
	"strings"

	"royalchoice/internal/models"
	"royalchoice/internal/repositories"
)

// MaxItemQuantity caps the quantity of a single cart entry.
const MaxItemQuantity = 999

// CartService manages the cart stored on each user.
type CartService struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(users repositories.UserRepository, products repositories.ProductRepository) *CartService {
	return &CartService{
		users:    users,
		products: products,
	}
}

// GetCart returns the populated cart of userID.
func (s *CartService) GetCart(ctx context.Context, userID string) ([]models.CartLine, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, user.UserCart)
}

// GetUserProducts returns the caller's populated cart after checking that
// email names an existing user and that this user is the caller. It stops at
// the first failing check.
func (s *CartService) GetUserProducts(ctx context.Context, callerID, email string) ([]models.CartLine, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	owner, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if owner.ID != callerID {
		return nil, ErrEmailMismatch
	}
	return s.populate(ctx, owner.UserCart)
}

// AddItem puts quantity units of productID in the cart. A zero quantity means
// one; an existing entry accumulates.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) ([]models.CartLine, error) {
	if quantity < 0 || quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		quantity = 1
	}

	productID = strings.TrimSpace(productID)
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if i := user.FindCartItem(productID); i >= 0 {
		if user.UserCart[i].Quantity > MaxItemQuantity-quantity {
			return nil, ErrInvalidQuantity
		}
		user.UserCart[i].Quantity += quantity
	} else {
		user.UserCart = append(user.UserCart, models.CartItem{ProductID: productID, Quantity: quantity})
	}
	return s.save(ctx, user)
}

// UpdateItemQuantity sets the quantity of a product already in the cart.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) ([]models.CartLine, error) {
	if quantity < 1 || quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := user.FindCartItem(productID)
	if i < 0 {
		return nil, ErrCartItemNotFound
	}
	user.UserCart[i].Quantity = quantity
	return s.save(ctx, user)
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) ([]models.CartLine, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := user.FindCartItem(productID)
	if i < 0 {
		return nil, ErrCartItemNotFound
	}
	user.UserCart = append(user.UserCart[:i], user.UserCart[i+1:]...)
	return s.save(ctx, user)
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	return s.users.UpdateCart(ctx, userID, []models.CartItem{})
}

func (s *CartService) save(ctx context.Context, user *models.User) ([]models.CartLine, error) {
	if err := s.users.UpdateCart(ctx, user.ID, user.UserCart); err != nil {
		return nil, err
	}
	return s.populate(ctx, user.UserCart)
}

// populate resolves cart references in cart order. Entries pointing at
// deleted products are left out.
func (s *CartService) populate(ctx context.Context, cart []models.CartItem) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0, len(cart))
	if len(cart) == 0 {
		return lines, nil
	}

	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range cart {
		if p, ok := byID[item.ProductID]; ok {
			lines = append(lines, models.CartLine{Product: p, Quantity: item.Quantity})
		}
	}
	return lines, nil
}

// CartTotal sums price × quantity over lines.
func CartTotal(lines []models.CartLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}
