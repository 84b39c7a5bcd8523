package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/rakibdev/topup-shop/internal/models"
)

type productDoc struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CategoryID  uint   `json:"category_id"`
	IsActive    bool   `json:"is_active"`
}

// IndexProduct writes the product document, overwriting any previous version.
func IndexProduct(ctx context.Context, client *elasticsearch.Client, index string, p *models.Product) error {
	doc := productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		IsActive:    p.IsActive,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: strconv.FormatUint(uint64(p.ID), 10),
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func DeleteProduct(ctx context.Context, client *elasticsearch.Client, index string, id uint) error {
	req := esapi.DeleteRequest{
		Index:      index,
		DocumentID: strconv.FormatUint(uint64(id), 10),
	}

	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete product %d: %s", id, res.Status())
	}
	return nil
}

// Search runs a fuzzy multi-field query over indexed products and returns
// the total hit count with the matching documents for the requested page.
func Search(ctx context.Context, client *elasticsearch.Client, index, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"is_active": true},
				},
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, nil, err
	}

	products := make([]models.Product, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		products = append(products, models.Product{
			ID:          h.Source.ID,
			Name:        h.Source.Name,
			Slug:        h.Source.Slug,
			Description: h.Source.Description,
			CategoryID:  h.Source.CategoryID,
			IsActive:    h.Source.IsActive,
		})
	}

	return parsed.Hits.Total.Value, products, nil
}
