package notifyrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"textbookindent/util/httpx"
)

type httpRepo struct {
	url    string
	client *http.Client
}

// NewHTTP posts messages to the campus notification gateway. An empty URL
// yields a no-op sender, so local setups run without a gateway.
func NewHTTP(url string) Repo { return &httpRepo{url: url, client: httpx.Client()} }

func (r *httpRepo) Send(ctx context.Context, m Message) error {
	if r.url == "" {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify gateway: %s", resp.Status)
	}
	return nil
}
