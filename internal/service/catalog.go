package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
	"github.com/ogmarket/checkout/pkg/logging"
)

// CatalogService owns product CRUD and the search index. Indexing is
// best-effort: a dead Elasticsearch never fails a product write.
type CatalogService struct {
	Repo     *repo.GormRepo
	ES       *elasticsearch.Client
	Index    string
	Notifier notify.Enqueuer
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"price_minor"`
	Stock       *int64 `json:"stock"`
}

func (s *CatalogService) CreateProduct(ctx context.Context, merchant User, req CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.PriceMinor < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}

	p := &models.Product{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		PriceMinor:    req.PriceMinor,
		Stock:         req.Stock,
		MerchantID:    merchant.ID,
		MerchantEmail: merchant.Email,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.indexProduct(ctx, p)
	if s.Notifier != nil {
		s.Notifier.Enqueue(notify.KindProductCreated, uuid.Nil, p.MerchantEmail,
			map[string]string{"product_id": p.ID.String(), "name": p.Name})
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	return s.Repo.ListProducts(ctx, limit, offset)
}

func (s *CatalogService) indexProduct(ctx context.Context, p *models.Product) {
	if s.ES == nil {
		return
	}
	l := logging.FromContext(ctx)

	doc, err := json.Marshal(p)
	if err != nil {
		l.Error("product index marshal failed", "product_id", p.ID, "error", err)
		return
	}
	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(doc),
		s.ES.Index.WithDocumentID(p.ID.String()),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		l.Error("product index failed", "product_id", p.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		l.Error("product index rejected", "product_id", p.ID, "status", res.Status())
	}
}

// Search queries the product index with a fuzzy multi-field match.
func (s *CatalogService) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if s.ES == nil {
		return 0, nil, fmt.Errorf("%w: search unavailable", ErrValidation)
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}
