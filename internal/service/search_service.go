package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-inventory-service/internal/search"
	"order-inventory-service/internal/store"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// SearchCriteria filters, pages and sorts orders. Dates are calendar days
// (YYYY-MM-DD, UTC) and both bounds are inclusive.
type SearchCriteria struct {
	CustomerID *int64  `json:"customer_id,omitempty"`
	Query      string  `json:"query,omitempty"`
	StartDate  *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate    *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Page       int     `json:"page" validate:"gte=0,lte=10000"`
	Size       int     `json:"size" validate:"gte=1,lte=100"`
	Sort       string  `json:"sort" validate:"oneof=id createdAt updatedAt totalAmount status customerId"`
	Direction  string  `json:"direction" validate:"oneof=asc desc"`
}

// withDefaults returns a copy with page size, sort field and direction filled in
func (c SearchCriteria) withDefaults() SearchCriteria {
	if c.Size == 0 {
		c.Size = 20
	}
	if c.Sort == "" {
		c.Sort = "createdAt"
	}
	c.Direction = strings.ToLower(c.Direction)
	if c.Direction == "" {
		c.Direction = "desc"
	}
	c.Query = strings.TrimSpace(c.Query)
	return c
}

func (c SearchCriteria) hasDateBounds() bool {
	return c.StartDate != nil || c.EndDate != nil
}

// filter translates the criteria into a store query. Dates were validated.
func (c SearchCriteria) filter() store.OrderFilter {
	f := store.OrderFilter{
		CustomerID: c.CustomerID,
		Text:       c.Query,
		SortBy:     c.Sort,
		Descending: c.Direction == "desc",
		Limit:      c.Size,
		Offset:     c.Page * c.Size,
	}
	if c.StartDate != nil {
		day, _ := time.Parse(dateLayout, *c.StartDate)
		f.CreatedFrom = &day
	}
	if c.EndDate != nil {
		day, _ := time.Parse(dateLayout, *c.EndDate)
		end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.CreatedTo = &end
	}
	return f
}

// OrderSearcher is the part of the search engine the query router reads from
type OrderSearcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
	SearchIDs(ctx context.Context, text string, limit int) ([]int64, error)
}

var engineSortable = map[string]bool{}

func init() {
	for _, attr := range search.SortableAttributes {
		engineSortable[attr] = true
	}
}

// SearchService answers order searches from the database, the search engine
// or both. Engine failures never reach the caller.
type SearchService struct {
	repo         Repository
	engine       OrderSearcher
	maxHybridIDs int
	logger       *zap.Logger
}

// NewSearchService creates a new search service. maxHybridIDs caps how many
// engine ids a hybrid search re-filters through the database.
func NewSearchService(repo Repository, engine OrderSearcher, maxHybridIDs int) *SearchService {
	if maxHybridIDs <= 0 {
		maxHybridIDs = 1000
	}
	return &SearchService{
		repo:         repo,
		engine:       engine,
		maxHybridIDs: maxHybridIDs,
		logger:       util.GetLogger(),
	}
}

// SearchWithDB runs the search entirely against the database
func (s *SearchService) SearchWithDB(ctx context.Context, criteria SearchCriteria) (*OrderPage, error) {
	ctx, span := util.StartSpan(ctx, "SearchService.SearchWithDB")
	defer span.End()

	c := criteria.withDefaults()
	if err := validateStruct(c); err != nil {
		return nil, err
	}
	return s.searchDB(ctx, c, c.filter())
}

// SearchWithEngine uses the engine for text relevance. Criteria the engine
// cannot express (dates, customer) are applied by re-filtering the engine's
// ids through the database. Any engine error falls back to SearchWithDB.
func (s *SearchService) SearchWithEngine(ctx context.Context, criteria SearchCriteria) (*OrderPage, error) {
	ctx, span := util.StartSpan(ctx, "SearchService.SearchWithEngine")
	defer span.End()

	c := criteria.withDefaults()
	if err := validateStruct(c); err != nil {
		return nil, err
	}

	hybrid := c.hasDateBounds() || c.CustomerID != nil
	if hybrid && c.Query == "" {
		// No text for the engine to match.
		return s.searchDB(ctx, c, c.filter())
	}
	if !hybrid && !engineSortable[c.Sort] {
		s.logger.Debug("Sort field not sortable in engine, using database", zap.String("sort", c.Sort))
		return s.searchDB(ctx, c, c.filter())
	}

	if hybrid {
		ids, err := s.engine.SearchIDs(ctx, c.Query, s.maxHybridIDs)
		if err != nil {
			util.RecordError(span, err)
			return s.fallback(ctx, c, err)
		}
		if len(ids) == 0 {
			return newOrderPage([]*OrderResponse{}, c, 0), nil
		}
		f := c.filter()
		f.Text = ""
		f.IDs = ids
		return s.searchDB(ctx, c, f)
	}

	page, err := s.searchEngine(ctx, c)
	if err != nil {
		util.RecordError(span, err)
		return s.fallback(ctx, c, err)
	}
	return page, nil
}

func (s *SearchService) fallback(ctx context.Context, c SearchCriteria, cause error) (*OrderPage, error) {
	util.SearchFallbackTotal.Inc()
	s.logger.Warn("Engine search failed, falling back to database",
		zap.String("query", c.Query),
		zap.Error(cause))
	return s.searchDB(ctx, c, c.filter())
}

func (s *SearchService) searchEngine(ctx context.Context, c SearchCriteria) (*OrderPage, error) {
	res, err := s.engine.Search(ctx, search.Query{
		Text:   c.Query,
		Limit:  c.Size,
		Offset: c.Page * c.Size,
		Sort:   []string{c.Sort + ":" + c.Direction},
	})
	if err != nil {
		return nil, err
	}
	content := make([]*OrderResponse, 0, len(res.Documents))
	for _, doc := range res.Documents {
		content = append(content, ToOrderResponse(doc.Order()))
	}
	return newOrderPage(content, c, res.Total), nil
}

func (s *SearchService) searchDB(ctx context.Context, c SearchCriteria, f store.OrderFilter) (*OrderPage, error) {
	orders, total, err := s.repo.SearchOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	return newOrderPage(ToOrderResponses(orders), c, total), nil
}

func newOrderPage(content []*OrderResponse, c SearchCriteria, total int64) *OrderPage {
	pages := 0
	if c.Size > 0 {
		pages = int((total + int64(c.Size) - 1) / int64(c.Size))
	}
	return &OrderPage{
		Content:       content,
		Page:          c.Page,
		Size:          c.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
