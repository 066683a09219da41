// Package search wraps the full-text search engine that mirrors orders.
package search

import "context"

// Index attribute settings applied on creation and on every full resync
var (
	SearchableAttributes = []string{"customerId", "description", "items.productName", "items.productDescription"}
	SortableAttributes   = []string{"id", "createdAt", "totalAmount", "status"}
)

// Task is a handle on an asynchronous engine operation
type Task struct {
	UID int64
}

// Query is a relevance search with paging and sort expressions ("field:asc")
type Query struct {
	Text   string
	Limit  int
	Offset int
	Sort   []string
}

// Result is one page of engine hits
type Result struct {
	Documents []OrderDocument
	Total     int64
}

// Engine is the index surface the rest of the service uses
type Engine interface {
	IndexExists(ctx context.Context) (bool, error)
	CreateIndex(ctx context.Context) (Task, error)
	DeleteIndex(ctx context.Context) (Task, error)
	UpdateSettings(ctx context.Context) (Task, error)
	UpsertDocuments(ctx context.Context, docs []OrderDocument) (Task, error)
	DeleteDocument(ctx context.Context, id int64) (Task, error)
	DeleteAllDocuments(ctx context.Context) (Task, error)
	WaitForTask(ctx context.Context, task Task) error

	Search(ctx context.Context, q Query) (*Result, error)
	SearchIDs(ctx context.Context, text string, limit int) ([]int64, error)
}
