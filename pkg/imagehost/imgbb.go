// Package imagehost proxies image bytes to the ImgBB hosting service. The
// service only ever persists the hosted URL, never the bytes themselves.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dhobighat/api/pkg/config"
)

// Client uploads images to ImgBB and returns the hosted URL.
type Client struct {
	apiKey    string
	uploadURL string
	http      *http.Client
}

// NewClient constructs an ImgBB client from configuration.
func NewClient(cfg config.ImageHostConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:    cfg.APIKey,
		uploadURL: cfg.UploadURL,
		http:      &http.Client{Timeout: timeout},
	}
}

type uploadResult struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the image bytes to ImgBB and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("imgbb api key not configured")
	}
	if filename == "" {
		filename = uuid.NewString()
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("key", c.apiKey); err != nil {
		return "", fmt.Errorf("write key field: %w", err)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalise multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imgbb returned status %d", resp.StatusCode)
	}

	var result uploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !result.Success {
		msg := result.Error.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("imgbb rejected upload: %s", msg)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("imgbb response missing image url")
	}

	return result.Data.URL, nil
}
