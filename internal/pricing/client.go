package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
)

// Predictor estimates a fair asking price for a used book from its
// physical features. The marketplace treats it as a black box; an
// unavailable predictor fails listing creation outright.
type Predictor interface {
	PredictPrice(ctx context.Context, book model.Book) (float64, error)
}

type httpPredictor struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a Predictor against the prediction service URL
func NewHTTP(baseURL string) Predictor {
	return &httpPredictor{baseURL: baseURL, client: &http.Client{}}
}

func (p *httpPredictor) PredictPrice(ctx context.Context, book model.Book) (float64, error) {
	payload := map[string]any{
		"title":        book.Title,
		"author":       book.Author,
		"category":     book.Category,
		"language":     book.Language,
		"editor":       book.Editor,
		"edition":      book.Edition,
		"totalPages":   book.TotalPages,
		"damagedPages": book.DamagedPages,
		"age":          book.Age,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("predict price: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("predict price: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("predict price: %w", marketerrors.ErrPredictionUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("predict price: status %s: %w", resp.Status, marketerrors.ErrPredictionUnavailable)
	}

	var out struct {
		Prediction float64 `json:"prediction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("predict price: %w", marketerrors.ErrPredictionUnavailable)
	}
	return out.Prediction, nil
}
