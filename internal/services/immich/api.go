package immich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"photoimport/internal/logging"
	"photoimport/internal/media"
	"photoimport/internal/upload"
)

// DeviceID identifies this importer to the photo server.
const DeviceID = "photoimport"

// HTTPDoer describes the HTTP client used by the API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient uploads each media file under a folder through POST /api/assets.
type APIClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
	logger  *slog.Logger
}

// NewAPIClient constructs an APIClient. A nil doer gets an http.Client with
// the per-request timeout.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration, doer HTTPDoer, logger *slog.Logger) *APIClient {
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  doer,
		logger:  logging.NewComponentLogger(logger, "immich"),
	}
}

type assetResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Upload sends every media file below folder. Any file failing makes the
// result exit code 1; the rest of the folder is still attempted so the
// retry only resubmits what the server has not yet accepted.
func (c *APIClient) Upload(ctx context.Context, folder string) (upload.Result, error) {
	files, err := mediaFiles(folder)
	if err != nil {
		return upload.Result{ExitCode: -1}, fmt.Errorf("list media in %s: %w", folder, err)
	}

	var out strings.Builder
	result := upload.Result{CountsKnown: true}
	failed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			failed++
			fmt.Fprintf(&out, "interrupted before %s\n", filepath.Base(path))
			break
		}
		duplicate, err := c.uploadFile(ctx, path)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(&out, "failed %s: %v\n", filepath.Base(path), err)
			logging.WithContext(ctx, c.logger).Debug("asset upload failed", logging.String("file", path), logging.Error(err))
		case duplicate:
			result.Skipped++
			fmt.Fprintf(&out, "duplicate %s\n", filepath.Base(path))
		default:
			result.Uploaded++
			fmt.Fprintf(&out, "uploaded %s\n", filepath.Base(path))
		}
	}
	fmt.Fprintf(&out, "%d uploaded\n%d skipped\n", result.Uploaded, result.Skipped)
	if failed > 0 {
		fmt.Fprintf(&out, "%d failed\n", failed)
		result.ExitCode = 1
	}
	result.RawOutput = out.String()
	return result, nil
}

func (c *APIClient) uploadFile(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	modified := info.ModTime().UTC().Format(time.RFC3339)
	fields := [][2]string{
		{"deviceAssetId", info.Name() + "-" + strconv.FormatInt(info.ModTime().Unix(), 10)},
		{"deviceId", DeviceID},
		{"fileCreatedAt", modified},
		{"fileModifiedAt", modified},
		{"isFavorite", "false"},
	}

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeForm(form, path, fields))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/assets", body)
	if err != nil {
		body.Close()
		return false, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		body.Close()
		return false, err
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded assetResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return false, nil
	}
	return decoded.Duplicate || strings.EqualFold(decoded.Status, "duplicate"), nil
}

func writeForm(form *multipart.Writer, path string, fields [][2]string) error {
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("assetData", filepath.Base(path))
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	return form.Close()
}

func mediaFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && media.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && media.IsMedia(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
