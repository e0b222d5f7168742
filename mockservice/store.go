package mockservice

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apiharness/api-contract-tests/datagen"
)

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type OrderItem struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	ID                 int         `json:"id"`
	UserID             int         `json:"user_id"`
	Items              []OrderItem `json:"items"`
	Total              float64     `json:"total"`
	Status             string      `json:"status"`
	TrackingNumber     string      `json:"tracking_number,omitempty"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
}

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

var orderStatuses = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// allowedTransitions holds the moves an order may make from each status.
// Delivered and cancelled orders are terminal.
var allowedTransitions = map[string][]string{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

var (
	errNotFound          = errors.New("not found")
	errDuplicateSKU      = errors.New("duplicate sku")
	errInsufficientStock = errors.New("insufficient stock")
	errBadTransition     = errors.New("invalid status transition")
	errUnknownReference  = errors.New("unknown reference")
)

// store holds the mock dataset. All access goes through its methods, which
// return copies so callers never share memory with the maps.
type store struct {
	mu          sync.Mutex
	users       map[int]*User
	products    map[int]*Product
	orders      map[int]*Order
	nextUser    int
	nextProduct int
	nextOrder   int
	gen         *datagen.Generator
}

func newStore(seed int64) *store {
	s := &store{
		users:    map[int]*User{},
		products: map[int]*Product{},
		orders:   map[int]*Order{},
		gen:      datagen.NewStream(seed, "mock"),
	}
	s.seed()
	return s
}

func (s *store) seed() {
	for i := 0; i < 8; i++ {
		role := "user"
		if i == 0 {
			role = "admin"
		}
		s.createUser(userRequest{
			Name:  s.gen.FullName(),
			Email: s.gen.Email(),
			Phone: s.gen.Phone(),
			Role:  role,
		})
	}
	for i := 0; i < 12; i++ {
		_, _ = s.createProduct(productRequest{
			Name:        s.gen.ProductName(),
			Description: s.gen.Description(),
			SKU:         s.gen.SKU(),
			Category:    s.gen.Category(),
			Price:       s.gen.Price(5, 500),
			Stock:       s.gen.IntBetween(10, 100),
		})
	}

	_, _ = s.createOrder(1, []orderItemRequest{{ProductID: 1, Quantity: 2}})
	o2, _ := s.createOrder(2, []orderItemRequest{{ProductID: 2, Quantity: 1}})
	_, _ = s.setOrderStatus(o2.ID, OrderProcessing)
	o3, _ := s.createOrder(3, []orderItemRequest{{ProductID: 3, Quantity: 1}, {ProductID: 4, Quantity: 2}})
	_, _ = s.setOrderStatus(o3.ID, OrderProcessing)
	_, _ = s.setOrderStatus(o3.ID, OrderShipped)
	o4, _ := s.createOrder(4, []orderItemRequest{{ProductID: 5, Quantity: 1}})
	_, _ = s.cancelOrder(o4.ID, "changed my mind")
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedIDs[T any](m map[int]T) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func cloneOrder(o *Order) Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return c
}

func (s *store) listUsers(role string, page, pageSize int) ([]User, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := make([]User, 0, len(s.users))
	for _, id := range sortedIDs(s.users) {
		u := s.users[id]
		if role != "" && u.Role != role {
			continue
		}
		filtered = append(filtered, *u)
	}
	return paginate(filtered, page, pageSize), len(filtered)
}

func (s *store) getUser(id int) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *store) createUser(req userRequest) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u := &User{
		ID:        s.nextUser,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		CreatedAt: time.Now(),
	}
	s.users[u.ID] = u
	return *u
}

func (s *store) updateUser(id int, req userRequest) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	u.Name = req.Name
	u.Email = req.Email
	u.Phone = req.Phone
	if req.Role != "" {
		u.Role = req.Role
	}
	return *u, true
}

// patchUser changes only the fields the request names.
func (s *store) patchUser(id int, req userPatchRequest) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	return *u, true
}

func (s *store) deleteUser(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

func (s *store) ordersForUser(userID int) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]Order, 0)
	for _, id := range sortedIDs(s.orders) {
		if o := s.orders[id]; o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	return orders
}

func (s *store) listProducts(category string, page, pageSize int) ([]Product, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := make([]Product, 0, len(s.products))
	for _, id := range sortedIDs(s.products) {
		p := s.products[id]
		if category != "" && p.Category != category {
			continue
		}
		filtered = append(filtered, *p)
	}
	return paginate(filtered, page, pageSize), len(filtered)
}

// inventory returns every product regardless of pagination, with the total
// number of units in stock and their combined value at current prices.
func (s *store) inventory() ([]Product, int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]Product, 0, len(s.products))
	units := 0
	value := 0.0
	for _, id := range sortedIDs(s.products) {
		p := s.products[id]
		all = append(all, *p)
		units += p.Stock
		value += float64(p.Stock) * p.Price
	}
	return all, units, value
}

func (s *store) getProduct(id int) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, false
	}
	return *p, true
}

func (s *store) createProduct(req productRequest) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.SKU == req.SKU {
			return Product{}, fmt.Errorf("%w: %s is already in use", errDuplicateSKU, req.SKU)
		}
	}
	s.nextProduct++
	p := &Product{
		ID:          s.nextProduct,
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	s.products[p.ID] = p
	return *p, nil
}

func (s *store) updateProduct(id int, req productRequest) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: no product with id %d", errNotFound, id)
	}
	for _, other := range s.products {
		if other.ID != id && other.SKU == req.SKU {
			return Product{}, fmt.Errorf("%w: %s is already in use", errDuplicateSKU, req.SKU)
		}
	}
	p.Name = req.Name
	p.Description = req.Description
	p.SKU = req.SKU
	p.Category = req.Category
	p.Price = req.Price
	p.Stock = req.Stock
	return *p, nil
}

func (s *store) deleteProduct(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return false
	}
	delete(s.products, id)
	return true
}

func (s *store) listOrders(status string, page, pageSize int) ([]Order, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := make([]Order, 0, len(s.orders))
	for _, id := range sortedIDs(s.orders) {
		o := s.orders[id]
		if status != "" && o.Status != status {
			continue
		}
		filtered = append(filtered, cloneOrder(o))
	}
	return paginate(filtered, page, pageSize), len(filtered)
}

func (s *store) getOrder(id int) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return cloneOrder(o), true
}

// createOrder validates the whole order before touching any stock, so a
// rejected order never leaves a partial decrement behind.
func (s *store) createOrder(userID int, items []orderItemRequest) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return Order{}, fmt.Errorf("%w: no user with id %d", errUnknownReference, userID)
	}
	// Quantities are summed per product, so an order naming the same product
	// twice cannot pass the check and drive stock negative.
	wanted := make(map[int]int, len(items))
	for _, item := range items {
		p, ok := s.products[item.ProductID]
		if !ok {
			return Order{}, fmt.Errorf("%w: no product with id %d", errUnknownReference, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
		if p.Stock < wanted[item.ProductID] {
			return Order{}, fmt.Errorf("%w: product %d has %d left, wanted %d",
				errInsufficientStock, p.ID, p.Stock, wanted[item.ProductID])
		}
	}

	var total float64
	orderItems := make([]OrderItem, 0, len(items))
	for _, item := range items {
		p := s.products[item.ProductID]
		p.Stock -= item.Quantity
		orderItems = append(orderItems, OrderItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
		total += p.Price * float64(item.Quantity)
	}

	s.nextOrder++
	o := &Order{
		ID:        s.nextOrder,
		UserID:    userID,
		Items:     orderItems,
		Total:     math.Round(total*100) / 100,
		Status:    OrderPending,
		CreatedAt: time.Now(),
	}
	s.orders[o.ID] = o
	return cloneOrder(o), nil
}

// deleteOrder removes the record outright. Stock stays as it is; callers who
// want the reserved units back cancel the order instead.
func (s *store) deleteOrder(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return false
	}
	delete(s.orders, id)
	return true
}

func (s *store) setOrderStatus(id int, status string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: no order with id %d", errNotFound, id)
	}
	if !slices.Contains(orderStatuses, status) {
		return Order{}, fmt.Errorf("unknown order status %q", status)
	}
	if status == OrderCancelled {
		return s.cancelLocked(o, "")
	}
	if !slices.Contains(allowedTransitions[o.Status], status) {
		return Order{}, fmt.Errorf("%w: %s orders cannot move to %s", errBadTransition, o.Status, status)
	}
	o.Status = status
	if status == OrderShipped && o.TrackingNumber == "" {
		o.TrackingNumber = "TRK-" + strings.ToUpper(s.gen.String(10))
	}
	return cloneOrder(o), nil
}

func (s *store) cancelOrder(id int, reason string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: no order with id %d", errNotFound, id)
	}
	return s.cancelLocked(o, reason)
}

// cancelLocked restores the stock the order had reserved. Caller holds s.mu.
func (s *store) cancelLocked(o *Order, reason string) (Order, error) {
	if !slices.Contains(allowedTransitions[o.Status], OrderCancelled) {
		return Order{}, fmt.Errorf("%w: %s orders cannot be cancelled", errBadTransition, o.Status)
	}
	for _, item := range o.Items {
		if p, ok := s.products[item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
	now := time.Now()
	o.Status = OrderCancelled
	o.CancelledAt = &now
	if reason != "" {
		o.CancellationReason = reason
	}
	return cloneOrder(o), nil
}
