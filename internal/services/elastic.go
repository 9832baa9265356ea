package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"threadsntrends_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
)

const productIndex = "products"

var ErrSearchUnavailable = errors.New("recherche indisponible")

// ProductIndex maintient l'index Elasticsearch du catalogue.
type ProductIndex struct {
	client *elasticsearch.Client
}

func NewProductIndex(client *elasticsearch.Client) *ProductIndex {
	return &ProductIndex{client: client}
}

type indexedProduct struct {
	ProductID   string   `json:"productID"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Sizes       []string `json:"sizes"`
	IsFeatured  bool     `json:"isFeatured"`
}

func (i *ProductIndex) Index(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(indexedProduct{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Sizes:       p.Sizes,
		IsFeatured:  p.IsFeatured,
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      productIndex,
		DocumentID: p.ID.Hex(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("indexation elastic: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexation elastic: %s", res.String())
	}
	log.Debug().Str("product", p.Name).Msg("✅ Produit indexé dans Elasticsearch")
	return nil
}

func (i *ProductIndex) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: productIndex, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("suppression elastic: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("suppression elastic: %s", res.String())
	}
	return nil
}

// Search renvoie les identifiants Mongo des produits qui correspondent,
// du plus pertinent au moins pertinent.
func (i *ProductIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "category^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{Index: []string{productIndex}, Body: &buf}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("décodage de la réponse elastic: %w", err)
	}
	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
