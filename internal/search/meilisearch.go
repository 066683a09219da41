package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

const taskPollInterval = 50 * time.Millisecond

// MeiliEngine implements Engine on top of Meilisearch
type MeiliEngine struct {
	client  meilisearch.ServiceManager
	indexID string
}

// NewMeiliEngine creates a client for the given index
func NewMeiliEngine(host, apiKey, indexID string) *MeiliEngine {
	return &MeiliEngine{
		client:  meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		indexID: indexID,
	}
}

// Healthy reports whether the engine answers its health check
func (e *MeiliEngine) Healthy() bool {
	return e.client.IsHealthy()
}

func (e *MeiliEngine) IndexExists(ctx context.Context) (bool, error) {
	_, err := e.client.GetIndexWithContext(ctx, e.indexID)
	if err == nil {
		return true, nil
	}
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) && meiliErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to get index %s: %w", e.indexID, err)
}

func (e *MeiliEngine) CreateIndex(ctx context.Context) (Task, error) {
	info, err := e.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
		Uid:        e.indexID,
		PrimaryKey: "id",
	})
	return task(info, err, "create index")
}

func (e *MeiliEngine) DeleteIndex(ctx context.Context) (Task, error) {
	info, err := e.client.DeleteIndexWithContext(ctx, e.indexID)
	return task(info, err, "delete index")
}

func (e *MeiliEngine) UpdateSettings(ctx context.Context) (Task, error) {
	info, err := e.client.Index(e.indexID).UpdateSettingsWithContext(ctx, &meilisearch.Settings{
		SearchableAttributes: SearchableAttributes,
		SortableAttributes:   SortableAttributes,
	})
	return task(info, err, "update settings")
}

func (e *MeiliEngine) UpsertDocuments(ctx context.Context, docs []OrderDocument) (Task, error) {
	info, err := e.client.Index(e.indexID).AddDocumentsWithContext(ctx, docs)
	return task(info, err, "upsert documents")
}

func (e *MeiliEngine) DeleteDocument(ctx context.Context, id int64) (Task, error) {
	info, err := e.client.Index(e.indexID).DeleteDocumentWithContext(ctx, strconv.FormatInt(id, 10))
	return task(info, err, "delete document")
}

func (e *MeiliEngine) DeleteAllDocuments(ctx context.Context) (Task, error) {
	info, err := e.client.Index(e.indexID).DeleteAllDocumentsWithContext(ctx)
	return task(info, err, "delete all documents")
}

// WaitForTask blocks until the task settles and fails if the engine rejected it
func (e *MeiliEngine) WaitForTask(ctx context.Context, t Task) error {
	res, err := e.client.WaitForTaskWithContext(ctx, t.UID, taskPollInterval)
	if err != nil {
		return fmt.Errorf("failed to wait for task %d: %w", t.UID, err)
	}
	if res.Status == meilisearch.TaskStatusFailed {
		return fmt.Errorf("task %d failed: %s (%s)", t.UID, res.Error.Message, res.Error.Code)
	}
	return nil
}

type searchResponse struct {
	Hits               []OrderDocument `json:"hits"`
	EstimatedTotalHits int64           `json:"estimatedTotalHits"`
	TotalHits          int64           `json:"totalHits"`
}

func (e *MeiliEngine) Search(ctx context.Context, q Query) (*Result, error) {
	res, err := e.search(ctx, q.Text, &meilisearch.SearchRequest{
		Limit:  int64(q.Limit),
		Offset: int64(q.Offset),
		Sort:   q.Sort,
	})
	if err != nil {
		return nil, err
	}
	total := res.TotalHits
	if total == 0 {
		total = res.EstimatedTotalHits
	}
	return &Result{Documents: res.Hits, Total: total}, nil
}

// SearchIDs returns up to limit matching order ids in relevance order
func (e *MeiliEngine) SearchIDs(ctx context.Context, text string, limit int) ([]int64, error) {
	res, err := e.search(ctx, text, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (e *MeiliEngine) search(ctx context.Context, text string, req *meilisearch.SearchRequest) (*searchResponse, error) {
	raw, err := e.client.Index(e.indexID).SearchRawWithContext(ctx, text, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.indexID, err)
	}
	var res searchResponse
	if err := json.Unmarshal(*raw, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}

func task(info *meilisearch.TaskInfo, err error, op string) (Task, error) {
	if err != nil {
		return Task{}, fmt.Errorf("failed to %s: %w", op, err)
	}
	return Task{UID: info.TaskUID}, nil
}
