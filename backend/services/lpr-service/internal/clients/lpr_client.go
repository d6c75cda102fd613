package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// LPRClient calls lpr-service endpoints.
type LPRClient struct {
	base *BaseClient
}

// NewLPRClient returns client.
func NewLPRClient(baseURL string, httpClient HTTPDoer) *LPRClient {
	return &LPRClient{base: NewBaseClient(baseURL, httpClient)}
}

// SubmitEvent posts a plate sighting.
func (c *LPRClient) SubmitEvent(ctx context.Context, plate, eventType string, metadata map[string]any) (int, []byte, error) {
	payload := map[string]any{
		"plate_number": plate,
		"event_type":   eventType,
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	return c.base.Do(ctx, http.MethodPost, "/lpr", body)
}

// History fetches every recorded event.
func (c *LPRClient) History(ctx context.Context) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/lpr/history", nil)
}

// ActiveSessions fetches open sessions; limit <= 0 uses the server default.
func (c *LPRClient) ActiveSessions(ctx context.Context, limit int) (int, []byte, error) {
	path := "/lpr/sessions/active"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.base.Do(ctx, http.MethodGet, path, nil)
}

// SimilarPlates asks the service for plates resembling plate.
func (c *LPRClient) SimilarPlates(ctx context.Context, plate string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/lpr/similar?plate="+url.QueryEscape(plate), nil)
}
