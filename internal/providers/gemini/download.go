package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studio/internal/apierr"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// download fetches a generated media file. The service only serves it when the
// credential travels as the key query parameter.
func download(ctx context.Context, client *http.Client, baseURL, key, uri string) ([]byte, string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, "", &apierr.Raw{Status: http.StatusBadGateway, Message: "no download uri"}
	}
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		base := baseURL
		if base == "" {
			base = defaultBaseURL
		}
		target = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if key != "" {
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		raw := &apierr.Raw{Status: resp.StatusCode}
		var body struct {
			Error apierr.Envelope `json:"error"`
		}
		if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
			raw.Envelope = body.Error
		} else {
			raw.Message = strings.TrimSpace(string(data))
		}
		return nil, "", raw
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}
