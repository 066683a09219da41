package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"
	"order-inventory-service/internal/search"
	"order-inventory-service/internal/store"

	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory Repository. Transactions run one at a time on a
// copy of the data that replaces the committed state only on success, which
// gives the same guarantees as row locks plus rollback.
type fakeRepo struct {
	*fakeQueries
	mu       sync.Mutex
	data     *fakeData
	failures map[string]error
	searches []store.OrderFilter
	// aborts are returned, one per transaction, after fn ran on its copy
	aborts   []error
	attempts int
}

type fakeData struct {
	products map[int64]*models.Product
	orders   map[int64]*models.Order
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{
		data: &fakeData{
			products: map[int64]*models.Product{},
			orders:   map[int64]*models.Order{},
		},
		failures: map[string]error{},
	}
	r.fakeQueries = &fakeQueries{repo: r, data: r.data, lock: &r.mu}
	return r
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(q store.Querier) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	work := r.data.clone()
	if err := fn(&fakeQueries{repo: r, data: work}); err != nil {
		return err
	}
	if len(r.aborts) > 0 {
		err := r.aborts[0]
		r.aborts = r.aborts[1:]
		return err
	}
	if err := r.failures["commit"]; err != nil {
		return err
	}
	*r.data = *work
	return nil
}

// addProduct seeds a committed product and returns its id
func (r *fakeRepo) addProduct(name, price string, stock int) int64 {
	p := &models.Product{Name: name, Description: name + " desc", Price: decimal.RequireFromString(price), StockQuantity: stock}
	if err := r.CreateProduct(context.Background(), p); err != nil {
		panic(err)
	}
	return p.ID
}

func (r *fakeRepo) stock(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.products[id]
	if !ok {
		return -1
	}
	return p.StockQuantity
}

func (r *fakeRepo) txAttempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *fakeRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data.orders)
}

// removeProduct drops a product regardless of references, as an operator
// would by hand.
func (r *fakeRepo) removeProduct(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data.products, id)
}

func (d *fakeData) clone() *fakeData {
	c := &fakeData{
		products: make(map[int64]*models.Product, len(d.products)),
		orders:   make(map[int64]*models.Order, len(d.orders)),
		nextID:   d.nextID,
	}
	for id, p := range d.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, o := range d.orders {
		c.orders[id] = copyOrder(o)
	}
	return c
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = make([]*models.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		item := *it
		cp.Items = append(cp.Items, &item)
	}
	return &cp
}

type fakeQueries struct {
	repo *fakeRepo
	data *fakeData
	lock *sync.Mutex
}

func (q *fakeQueries) enter(op string) (func(), error) {
	if q.lock != nil {
		q.lock.Lock()
	}
	unlock := func() {
		if q.lock != nil {
			q.lock.Unlock()
		}
	}
	if err := q.repo.failures[op]; err != nil {
		unlock()
		return func() {}, err
	}
	return unlock, nil
}

func (q *fakeQueries) id() int64 {
	q.data.nextID++
	return q.data.nextID
}

func (q *fakeQueries) getProduct(id int64) (*models.Product, error) {
	p, ok := q.data.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound)
	}
	cp := *p
	return &cp, nil
}

func (q *fakeQueries) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	done, err := q.enter("GetProduct")
	defer done()
	if err != nil {
		return nil, err
	}
	return q.getProduct(id)
}

func (q *fakeQueries) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	done, err := q.enter("GetProductForUpdate")
	defer done()
	if err != nil {
		return nil, err
	}
	return q.getProduct(id)
}

func (q *fakeQueries) ListProducts(ctx context.Context) ([]models.Product, error) {
	done, err := q.enter("ListProducts")
	defer done()
	if err != nil {
		return nil, err
	}
	out := []models.Product{}
	for _, p := range q.data.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *fakeQueries) SearchProductsByName(ctx context.Context, name string) ([]models.Product, error) {
	done, err := q.enter("SearchProductsByName")
	defer done()
	if err != nil {
		return nil, err
	}
	out := []models.Product{}
	for _, p := range q.data.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *fakeQueries) CreateProduct(ctx context.Context, p *models.Product) error {
	done, err := q.enter("CreateProduct")
	defer done()
	if err != nil {
		return err
	}
	p.ID = q.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	q.data.products[p.ID] = &cp
	return nil
}

func (q *fakeQueries) UpdateProduct(ctx context.Context, p *models.Product) error {
	done, err := q.enter("UpdateProduct")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := q.data.products[p.ID]; !ok {
		return fmt.Errorf("product %d: %w", p.ID, ordererrors.ErrProductNotFound)
	}
	if p.StockQuantity < 0 || p.Price.IsNegative() {
		return ordererrors.ErrConstraintViolation
	}
	p.UpdatedAt = time.Now()
	cp := *p
	q.data.products[p.ID] = &cp
	return nil
}

func (q *fakeQueries) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	done, err := q.enter("UpdateProductStock")
	defer done()
	if err != nil {
		return err
	}
	p, ok := q.data.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound)
	}
	if stock < 0 {
		return ordererrors.ErrConstraintViolation
	}
	p.StockQuantity = stock
	return nil
}

func (q *fakeQueries) DeleteProduct(ctx context.Context, id int64) error {
	done, err := q.enter("DeleteProduct")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := q.data.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound)
	}
	if q.referenced(id) {
		return ordererrors.ErrDependentReference
	}
	delete(q.data.products, id)
	return nil
}

func (q *fakeQueries) ProductReferenced(ctx context.Context, id int64) (bool, error) {
	done, err := q.enter("ProductReferenced")
	defer done()
	if err != nil {
		return false, err
	}
	return q.referenced(id), nil
}

func (q *fakeQueries) referenced(id int64) bool {
	for _, o := range q.data.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return true
			}
		}
	}
	return false
}

// withProducts copies o and fills in product details the way the LEFT JOIN does
func (q *fakeQueries) withProducts(o *models.Order) *models.Order {
	cp := copyOrder(o)
	for _, it := range cp.Items {
		it.ProductName, it.ProductDescription = "", ""
		if p, ok := q.data.products[it.ProductID]; ok {
			it.ProductName, it.ProductDescription = p.Name, p.Description
		}
	}
	return cp
}

func (q *fakeQueries) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	done, err := q.enter("GetOrder")
	defer done()
	if err != nil {
		return nil, err
	}
	o, ok := q.data.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ordererrors.ErrOrderNotFound)
	}
	return q.withProducts(o), nil
}

func (q *fakeQueries) ListOrders(ctx context.Context) ([]*models.Order, error) {
	done, err := q.enter("ListOrders")
	defer done()
	if err != nil {
		return nil, err
	}
	return q.sortedOrders(), nil
}

func (q *fakeQueries) sortedOrders() []*models.Order {
	out := []*models.Order{}
	for _, o := range q.data.orders {
		out = append(out, q.withProducts(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (q *fakeQueries) storeItems(o *models.Order) {
	for _, it := range o.Items {
		it.OrderID = o.ID
		it.ID = q.id()
	}
	q.data.orders[o.ID] = copyOrder(o)
}

func (q *fakeQueries) CreateOrder(ctx context.Context, o *models.Order) error {
	done, err := q.enter("CreateOrder")
	defer done()
	if err != nil {
		return err
	}
	if o.Status == "" {
		return ordererrors.ErrConstraintViolation
	}
	o.ID = q.id()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	q.storeItems(o)
	return nil
}

func (q *fakeQueries) UpdateOrder(ctx context.Context, o *models.Order, replaceItems bool) error {
	done, err := q.enter("UpdateOrder")
	defer done()
	if err != nil {
		return err
	}
	stored, ok := q.data.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", o.ID, ordererrors.ErrOrderNotFound)
	}
	o.UpdatedAt = time.Now()
	if !replaceItems {
		cp := copyOrder(o)
		cp.Items = stored.Items
		q.data.orders[o.ID] = cp
		return nil
	}
	q.storeItems(o)
	return nil
}

func (q *fakeQueries) DeleteOrder(ctx context.Context, id int64) error {
	done, err := q.enter("DeleteOrder")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := q.data.orders[id]; !ok {
		return fmt.Errorf("order %d: %w", id, ordererrors.ErrOrderNotFound)
	}
	delete(q.data.orders, id)
	return nil
}

func (q *fakeQueries) SearchOrders(ctx context.Context, f store.OrderFilter) ([]*models.Order, int64, error) {
	done, err := q.enter("SearchOrders")
	defer done()
	if err != nil {
		return nil, 0, err
	}
	q.repo.searches = append(q.repo.searches, f)

	var allowed map[int64]bool
	if f.IDs != nil {
		allowed = map[int64]bool{}
		for _, id := range f.IDs {
			allowed[id] = true
		}
	}
	text := strings.ToLower(f.Text)

	var matched []*models.Order
	for _, o := range q.sortedOrders() {
		switch {
		case f.CustomerID != nil && o.CustomerID != *f.CustomerID:
			continue
		case f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom):
			continue
		case f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo):
			continue
		case allowed != nil && !allowed[o.ID]:
			continue
		case text != "" && !orderMatches(o, text):
			continue
		}
		matched = append(matched, o)
	}

	less := func(a, b *models.Order) bool {
		switch f.SortBy {
		case "id":
			return a.ID < b.ID
		case "totalAmount":
			return a.TotalAmount.LessThan(b.TotalAmount)
		case "customerId":
			return a.CustomerID < b.CustomerID
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if f.Descending {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := int64(len(matched))
	start := f.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func orderMatches(o *models.Order, text string) bool {
	if strings.Contains(strings.ToLower(o.Description), text) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.ProductName), text) ||
			strings.Contains(strings.ToLower(it.ProductDescription), text) {
			return true
		}
	}
	return false
}

// fakeCache stores JSON like the Redis cache does
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
	onEvict func(keys []string)
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	if c.onEvict != nil {
		c.onEvict(keys)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *fakeCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]byte{}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type fakePublisher struct {
	mu        sync.Mutex
	changed   []int64
	deleted   []int64
	onChanged func(o *models.Order)
}

func (p *fakePublisher) PublishOrderChanged(o *models.Order) {
	if p.onChanged != nil {
		p.onChanged(o)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, o.ID)
}

func (p *fakePublisher) PublishOrderDeleted(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
}

// fakeSearcher serves engine searches from canned data or fails
type fakeSearcher struct {
	err      error
	ids      []int64
	result   *search.Result
	queries  []search.Query
	idLimits []int
}

func (s *fakeSearcher) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *fakeSearcher) SearchIDs(ctx context.Context, text string, limit int) ([]int64, error) {
	s.idLimits = append(s.idLimits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}
