// Package search mirrors funds and campaigns into Elasticsearch and serves
// full-text queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sadaka/internal/domain"
	"sadaka/internal/ledger"
	"sadaka/pkg/config"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Scope string

const (
	ScopeFunds     Scope = "funds"
	ScopeCampaigns Scope = "campaigns"
)

// Client is safe for concurrent use. A Client built with search disabled
// accepts index calls as no-ops and rejects queries with ErrSearchUnavailable.
type Client struct {
	es     *elasticsearch.Client
	prefix string
	logger logger.Logger
}

func New(cfg config.ElasticsearchConfig, log logger.Logger) (*Client, error) {
	c := &Client{prefix: cfg.IndexPrefix, logger: log}
	if c.prefix == "" {
		c.prefix = "sadaka"
	}
	if !cfg.Enabled || len(cfg.Addresses) == 0 {
		log.Warn("Search disabled", nil)
		return c, nil
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	c.es = es
	return c, nil
}

func (c *Client) Enabled() bool { return c.es != nil }

func (c *Client) index(scope Scope) string {
	return c.prefix + "_" + string(scope)
}

// EnsureIndices creates the fund and campaign indices when they are missing.
func (c *Client) EnsureIndices(ctx context.Context) error {
	if c.es == nil {
		return nil
	}
	for scope, mapping := range map[Scope]string{ScopeFunds: fundsMapping, ScopeCampaigns: campaignsMapping} {
		name := c.index(scope)
		res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", name, err)
		}
		res.Body.Close()
		if res.StatusCode == 200 {
			continue
		}

		res, err = c.es.Indices.Create(name,
			c.es.Indices.Create.WithContext(ctx),
			c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		if err := checkResponse(res); err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		c.logger.Info("Search index created", map[string]interface{}{"index": name})
	}
	return nil
}

// Ping reports whether the cluster answers. A disabled client is always healthy.
func (c *Client) Ping(ctx context.Context) error {
	if c.es == nil {
		return nil
	}
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	return checkResponse(res)
}

type fundDoc struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CountryCode string   `json:"country_code"`
	Purposes    []string `json:"purposes"`
	Verified    bool     `json:"verified"`
	Active      bool     `json:"active"`
	Website     string   `json:"website,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type campaignDoc struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	CountryCode       string  `json:"country_code"`
	GoalAmount        float64 `json:"goal_amount"`
	CollectedAmount   float64 `json:"collected_amount"`
	ParticipantsCount int     `json:"participants_count"`
	Status            string  `json:"status"`
	OwnerID           string  `json:"owner_id"`
	FundID            *int64  `json:"fund_id,omitempty"`
	EndDate           *string `json:"end_date,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

const dateLayout = "2006-01-02T15:04:05Z07:00"

func (c *Client) IndexFund(ctx context.Context, f *domain.Fund) error {
	doc := fundDoc{
		ID:          f.ID,
		Name:        f.Name,
		CountryCode: f.CountryCode,
		Purposes:    []string(f.Purposes),
		Verified:    f.Verified,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt.Format(dateLayout),
		UpdatedAt:   f.UpdatedAt.Format(dateLayout),
	}
	if f.Description != nil {
		doc.Description = *f.Description
	}
	if f.Website != nil {
		doc.Website = *f.Website
	}
	return c.put(ctx, ScopeFunds, f.ID, doc)
}

func (c *Client) IndexCampaign(ctx context.Context, cm *domain.Campaign) error {
	goal, _ := cm.GoalAmount.Float64()
	collected, _ := cm.CollectedAmount.Float64()
	doc := campaignDoc{
		ID:                cm.ID,
		Title:             cm.Title,
		Description:       cm.Description,
		Category:          cm.Category,
		CountryCode:       cm.CountryCode,
		GoalAmount:        goal,
		CollectedAmount:   collected,
		ParticipantsCount: cm.ParticipantsCount,
		Status:            string(cm.Status),
		OwnerID:           cm.OwnerID.String(),
		FundID:            cm.FundID,
		CreatedAt:         cm.CreatedAt.Format(dateLayout),
		UpdatedAt:         cm.UpdatedAt.Format(dateLayout),
	}
	if cm.EndDate != nil {
		end := cm.EndDate.Format(dateLayout)
		doc.EndDate = &end
	}
	return c.put(ctx, ScopeCampaigns, cm.ID, doc)
}

// UpdateCampaignTotals patches the aggregate fields of an indexed campaign.
func (c *Client) UpdateCampaignTotals(ctx context.Context, t *ledger.CampaignTotals) error {
	if c.es == nil {
		return nil
	}
	collected, _ := t.CollectedAmount.Float64()
	goal, _ := t.GoalAmount.Float64()
	body, err := json.Marshal(map[string]interface{}{
		"doc": map[string]interface{}{
			"collected_amount":   collected,
			"goal_amount":        goal,
			"participants_count": t.ParticipantsCount,
			"status":             string(t.Status),
		},
	})
	if err != nil {
		return err
	}

	res, err := c.es.Update(c.index(ScopeCampaigns), strconv.FormatInt(t.CampaignID, 10), bytes.NewReader(body),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign %d: %w", t.CampaignID, err)
	}
	if res.StatusCode == 404 {
		res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

func (c *Client) put(ctx context.Context, scope Scope, id int64, doc interface{}) error {
	if c.es == nil {
		return nil
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := c.es.Index(c.index(scope), bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(strconv.FormatInt(id, 10)),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s %d: %w", scope, id, err)
	}
	return checkResponse(res)
}

// Query is a search request. Empty Text matches everything in scope.
type Query struct {
	Text        string
	Scope       Scope
	CountryCode string
	Category    string
	Status      string
	Page        domain.Page
}

type Hit struct {
	ID     string          `json:"id"`
	Score  float64         `json:"score"`
	Source json.RawMessage `json:"source"`
}

type Result struct {
	Scope Scope `json:"type"`
	Total int   `json:"total"`
	Took  int   `json:"took"`
	Hits  []Hit `json:"results"`
}

func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	if c.es == nil {
		return nil, errors.ErrSearchUnavailable
	}
	if q.Scope != ScopeFunds && q.Scope != ScopeCampaigns {
		return nil, errors.ErrInvalidSearchScope
	}
	q.Page = q.Page.Normalize()

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index(q.Scope)),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search request failed: %s", res.Status())
	}

	var raw struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &Result{Scope: q.Scope, Total: raw.Hits.Total.Value, Took: raw.Took, Hits: make([]Hit, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	fields := []string{"name^2", "description"}
	if q.Scope == ScopeCampaigns {
		fields = []string{"title^2", "description"}
	}

	must := []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = []interface{}{map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    fields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}}
	}

	filter := []interface{}{}
	term := func(field, value string) {
		if value != "" {
			filter = append(filter, map[string]interface{}{"term": map[string]interface{}{field: value}})
		}
	}
	term("country_code", strings.ToUpper(q.CountryCode))
	switch q.Scope {
	case ScopeFunds:
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"active": true}})
	case ScopeCampaigns:
		term("category", q.Category)
		status := q.Status
		if status == "" {
			status = string(domain.CampaignActive)
		}
		term("status", status)
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must, "filter": filter},
		},
		"from": q.Page.Offset,
		"size": q.Page.Limit,
		"sort": []interface{}{"_score", map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}}},
	}
}

func checkResponse(res *esapi.Response) error {
	defer res.Body.Close()
	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("elasticsearch %s: %s", res.Status(), strings.TrimSpace(string(msg)))
}
