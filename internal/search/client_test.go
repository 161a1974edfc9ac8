package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sadaka/internal/domain"
	"sadaka/internal/ledger"
	"sadaka/pkg/config"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]interface{}
}

// fakeCluster answers like an Elasticsearch node and records each request.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recorded
	search   string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: body})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/sadaka_funds/_search" || r.URL.Path == "/sadaka_campaigns/_search" {
		_, _ = w.Write([]byte(f.search))
		return
	}
	_, _ = w.Write([]byte(`{"result":"created"}`))
}

func (f *fakeCluster) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, cluster *fakeCluster) *Client {
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	c, err := New(config.ElasticsearchConfig{
		Enabled:     true,
		Addresses:   []string{srv.URL},
		IndexPrefix: "sadaka",
	}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestDisabledClient(t *testing.T) {
	c, err := New(config.ElasticsearchConfig{Enabled: false}, logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.NoError(t, c.IndexFund(ctx, &domain.Fund{ID: 1}))
	assert.NoError(t, c.UpdateCampaignTotals(ctx, &ledger.CampaignTotals{CampaignID: 1}))
	assert.NoError(t, c.Ping(ctx))

	_, err = c.Search(ctx, Query{Scope: ScopeFunds})
	assert.True(t, errors.Is(err, errors.ErrSearchUnavailable))
}

func TestSearch_InvalidScope(t *testing.T) {
	c := newTestClient(t, &fakeCluster{})
	_, err := c.Search(context.Background(), Query{Scope: "users"})
	assert.True(t, errors.Is(err, errors.ErrInvalidSearchScope))
}

func TestIndexCampaign(t *testing.T) {
	cluster := &fakeCluster{}
	c := newTestClient(t, cluster)

	err := c.IndexCampaign(context.Background(), &domain.Campaign{
		ID:              9,
		OwnerID:         uuid.New(),
		Title:           "Колодец",
		GoalAmount:      decimal.NewFromInt(5000),
		CollectedAmount: decimal.RequireFromString("120.50"),
		Status:          domain.CampaignActive,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	})
	require.NoError(t, err)

	req := cluster.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/sadaka_campaigns/_doc/9", req.path)
	assert.Equal(t, "Колодец", req.body["title"])
	assert.Equal(t, 120.5, req.body["collected_amount"])
}

func TestUpdateCampaignTotals(t *testing.T) {
	cluster := &fakeCluster{}
	c := newTestClient(t, cluster)

	err := c.UpdateCampaignTotals(context.Background(), &ledger.CampaignTotals{
		CampaignID:        4,
		CollectedAmount:   decimal.NewFromInt(1000),
		GoalAmount:        decimal.NewFromInt(1000),
		ParticipantsCount: 7,
		Status:            domain.CampaignCompleted,
	})
	require.NoError(t, err)

	req := cluster.last()
	assert.Equal(t, "/sadaka_campaigns/_update/4", req.path)
	doc := req.body["doc"].(map[string]interface{})
	assert.Equal(t, "completed", doc["status"])
	assert.Equal(t, float64(7), doc["participants_count"])
}

func TestSearch(t *testing.T) {
	cluster := &fakeCluster{search: `{
		"took": 3,
		"hits": {
			"total": {"value": 1},
			"hits": [{"_id": "5", "_score": 1.7, "_source": {"id": 5, "name": "Закят фонд"}}]
		}
	}`}
	c := newTestClient(t, cluster)

	res, err := c.Search(context.Background(), Query{Text: "закят", Scope: ScopeFunds, CountryCode: "ru"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 3, res.Took)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "5", res.Hits[0].ID)
	assert.JSONEq(t, `{"id": 5, "name": "Закят фонд"}`, string(res.Hits[0].Source))

	req := cluster.last()
	assert.Equal(t, "/sadaka_funds/_search", req.path)
	assert.Equal(t, float64(20), req.body["size"])
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery(Query{Scope: ScopeCampaigns, Category: "water", Page: domain.Page{Limit: 10, Offset: 20}})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	assert.Contains(t, must[0], "match_all")

	filter := boolQuery["filter"].([]interface{})
	assert.Len(t, filter, 2)
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"status": "active"}})
	assert.Contains(t, filter, map[string]interface{}{"term": map[string]interface{}{"category": "water"}})
	assert.Equal(t, 20, q["from"])
	assert.Equal(t, 10, q["size"])

	q = buildQuery(Query{Text: "вода", Scope: ScopeFunds})
	must = q["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, []string{"name^2", "description"}, mm["fields"])
}
