// Package media implements the MediaUploader port against an
// ImageKit-compatible upload API.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

type ImageKitUploader struct {
	httpClient  *http.Client
	privateKey  string
	urlEndpoint string
	uploadURL   string
}

func NewImageKitUploader(privateKey, urlEndpoint, uploadURL string) *ImageKitUploader {
	return &ImageKitUploader{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		privateKey:  privateKey,
		urlEndpoint: urlEndpoint,
		uploadURL:   uploadURL,
	}
}

type uploadResponse struct {
	URL      string `json:"url"`
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
}

// Upload posts the file and returns its public URL. Some API versions
// answer with a direct url, others only with a filePath relative to the
// account's URL endpoint; both are resolved here so callers always get a
// usable URL or an error, never an empty string.
func (u *ImageKitUploader) Upload(ctx context.Context, file domain.MediaFile) (string, error) {
	if len(file.Content) == 0 {
		return "", errors.InvalidArg("media file is empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.WriteField("fileName", file.Name); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(u.privateKey, "")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.CodeUpstream, "media upload failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(errors.CodeUpstream, "reading upload response", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", errors.Wrap(errors.CodeUpstream, "decoding upload response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", errors.Upstream("media upload failed: " + msg)
	}

	switch {
	case out.URL != "":
		return out.URL, nil
	case out.FilePath != "" && u.urlEndpoint != "":
		return strings.TrimSuffix(u.urlEndpoint, "/") + "/" + strings.TrimPrefix(out.FilePath, "/"), nil
	default:
		return "", errors.Upstream("media upload returned no resolvable URL")
	}
}
