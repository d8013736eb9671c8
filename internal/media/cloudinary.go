package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.cloudinary.com"

// Cloudinary is a minimal Cloudinary upload API client. Audio clips are
// uploaded under the video resource type, which is how Cloudinary files
// audio-only media.
type Cloudinary struct {
	apiBase    string
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	now func() time.Time
}

// NewCloudinary creates a client for the given cloud. Empty credentials are
// allowed; Configured reports false and uploads are rejected upstream before
// any network call. If apiBase is empty, the public Cloudinary API is used.
func NewCloudinary(apiBase, cloudName, apiKey, apiSecret string) *Cloudinary {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Cloudinary{
		apiBase:   apiBase,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// Configured reports whether upload credentials are present.
func (c *Cloudinary) Configured() bool {
	return c.cloudName != "" && c.apiKey != "" && c.apiSecret != ""
}

// Upload sends the payload as a signed upload and returns the secure URL of
// the stored object.
func (c *Cloudinary) Upload(ctx context.Context, mimeType string, data []byte) (string, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "audio")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}

	fields := map[string]string{
		"api_key":   c.apiKey,
		"timestamp": timestamp,
		"signature": c.sign(timestamp),
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/video/upload", c.apiBase, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload response missing secure_url")
	}

	return result.SecureURL, nil
}

// sign produces the Cloudinary request signature: the SHA-1 hex digest of the
// sorted parameter string with the API secret appended.
func (c *Cloudinary) sign(timestamp string) string {
	sum := sha1.Sum([]byte("timestamp=" + timestamp + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}
