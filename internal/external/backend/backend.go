package stamps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type validateResponse struct {
	ProductID string `json:"productId"`
	Message   string `json:"message"`
}

// Проверка покупки на backend
type Backend struct {
	url    string
	client *http.Client
}

func NewBackend(url string) (*Backend, error) {
	if url == "" {
		return nil, fmt.Errorf("env STAMPS_BACKEND_URL is not set")
	}
	return &Backend{
		url: strings.TrimRight(url, "/"),
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (b *Backend) Validate(ctx context.Context, purchase model.PurchaseConfirmation) (productID string, err error) {
	data, err := json.Marshal(purchase)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+"/api/validate-subscription", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	res := &validateResponse{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, res); err != nil && resp.StatusCode == http.StatusOK {
			return "", err
		}
	}

	if resp.StatusCode != http.StatusOK {
		if res.Message != "" {
			return "", fmt.Errorf("Backend HTTP error: %s: %s", resp.Status, res.Message)
		}
		return "", fmt.Errorf("Backend HTTP error: %s", resp.Status)
	}
	return res.ProductID, nil
}
