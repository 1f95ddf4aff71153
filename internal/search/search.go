// Package search keeps an Elasticsearch index of accounts and product
// offerings for search-as-you-type lookups in the wizard.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"cpq-console/internal/common/database"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/models"
)

// Kind selects the lookup index.
type Kind string

const (
	KindAccount          Kind = "accounts"
	KindProductOffering  Kind = "product-offerings"
	defaultLookupSize         = 10
	maxLookupSize             = 50
)

// Document is what gets indexed for either kind.
type Document struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"code,omitempty"`
	Status      string   `json:"status,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	PriceType   string   `json:"priceType,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Email       string   `json:"email,omitempty"`
}

// Hit is one lookup match.
type Hit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Code  string  `json:"code,omitempty"`
	Score float64 `json:"score"`
}

type Index struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, log logger.Logger) *Index {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Index{es: es, logger: logger.Component(log, "search")}
}

func (x *Index) name(k Kind) string { return x.es.Index(string(k)) }

// IndexAccounts upserts accounts by id.
func (x *Index) IndexAccounts(ctx context.Context, accounts []models.Account) error {
	docs := make([]Document, 0, len(accounts))
	for _, a := range accounts {
		docs = append(docs, Document{ID: a.ID, Name: a.Name, Industry: a.Industry, Email: a.Email})
	}
	return x.bulk(ctx, KindAccount, docs)
}

// IndexOfferings upserts product offerings by id.
func (x *Index) IndexOfferings(ctx context.Context, offerings []models.ProductOffering) error {
	docs := make([]Document, 0, len(offerings))
	for _, o := range offerings {
		d := Document{
			ID:          o.ID,
			Name:        o.Name,
			Code:        o.Code,
			Status:      string(o.Status),
			Description: o.Description,
			PriceType:   o.PricingType(),
		}
		for _, c := range o.Category {
			d.Categories = append(d.Categories, c.Name)
		}
		docs = append(docs, d)
	}
	return x.bulk(ctx, KindProductOffering, docs)
}

func (x *Index) bulk(ctx context.Context, kind Kind, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	index := x.name(kind)

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		meta := map[string]map[string]string{"index": {"_index": index, "_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return errors.NewSearchQueryFailedError(index, err)
		}
		if err := enc.Encode(d); err != nil {
			return errors.NewSearchQueryFailedError(index, err)
		}
	}

	res, err := x.es.Client.Bulk(bytes.NewReader(body.Bytes()),
		x.es.Client.Bulk.WithContext(ctx),
		x.es.Client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError(index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError(index, responseError(res))
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return errors.NewSearchQueryFailedError(index, err)
	}
	if out.Errors {
		var failed []string
		for _, item := range out.Items {
			for _, r := range item {
				if r.Status >= 300 {
					failed = append(failed, r.ID)
				}
			}
		}
		x.logger.Warn("Bulk index partially failed", map[string]interface{}{"index": index, "failed": failed})
		return errors.NewSearchQueryFailedError(index, fmt.Errorf("%d documents rejected", len(failed)))
	}

	x.logger.Debug("Documents indexed", map[string]interface{}{"index": index, "count": len(docs)})
	return nil
}

// Lookup matches q as a prefix against names and codes. An empty q lists
// the first size documents by name.
func (x *Index) Lookup(ctx context.Context, kind Kind, q string, size int) ([]Hit, error) {
	if size <= 0 {
		size = defaultLookupSize
	}
	if size > maxLookupSize {
		size = maxLookupSize
	}
	index := x.name(kind)

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if q = strings.TrimSpace(q); q != "" {
		query = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"type":   "bool_prefix",
				"fields": []string{"name^3", "code^2", "description"},
			},
		}
	}
	body, err := json.Marshal(map[string]interface{}{"query": query, "size": size})
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.es.Client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}
	defer res.Body.Close()

	// A lookup before the first sync should not fail the form.
	if res.StatusCode == 404 {
		return []Hit{}, nil
	}
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(index, responseError(res))
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}

	hits := make([]Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		hits = append(hits, Hit{ID: h.Source.ID, Name: h.Source.Name, Code: h.Source.Code, Score: h.Score})
	}
	return hits, nil
}

func responseError(res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("%s: %s", res.Status(), strings.TrimSpace(string(b)))
}
