package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"canvasd/internal/domain"
	"canvasd/internal/infra/config"
)

// Default relay timeouts.
const (
	defaultConnTimeout = 10 * time.Second
	defaultRespTimeout = 60 * time.Second
)

// Client talks to the workspace relay over HTTP. Every method is one
// request/response; retries are left to the caller's policy (none, by
// default — the breaker wrapper fails fast instead).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a relay client from configuration.
func NewClient(cfg config.RelayConfig, logger *slog.Logger) *Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http: &http.Client{
			Transport: transport,
			Timeout:   connTimeout + respTimeout,
		},
		logger: logger,
	}
}

type relayEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// post sends a JSON body and decodes the relay envelope, returning the
// data payload.
func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRelayUnreachable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("relay call failed", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: relay %s returned %d: %s",
			domain.ErrProviderError, path, resp.StatusCode, truncate(payload, 200))
	}

	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode relay response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderError, env.Error)
	}
	return env.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// CreateDocument creates a document holding the given markdown.
func (c *Client) CreateDocument(ctx context.Context, title, markdown string) (domain.WorkspaceRef, error) {
	data, err := c.post(ctx, "/docs/create", map[string]string{
		"title":    title,
		"markdown": markdown,
	})
	if err != nil {
		return domain.WorkspaceRef{}, err
	}
	return decodeRef(data)
}

// CreateSpreadsheet creates an empty spreadsheet.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string) (domain.WorkspaceRef, error) {
	data, err := c.post(ctx, "/sheets/create", map[string]string{"title": title})
	if err != nil {
		return domain.WorkspaceRef{}, err
	}
	return decodeRef(data)
}

func decodeRef(data json.RawMessage) (domain.WorkspaceRef, error) {
	var ref domain.WorkspaceRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return domain.WorkspaceRef{}, fmt.Errorf("decode workspace ref: %w", err)
	}
	return ref, nil
}

// FetchDocument retrieves a structured document. Full document URLs are
// reduced to their bare id first.
func (c *Client) FetchDocument(ctx context.Context, docRef string) (domain.DocPayload, error) {
	data, err := c.post(ctx, "/docs/fetch", map[string]string{"doc_id": ExtractDocRef(docRef)})
	if err != nil {
		return domain.DocPayload{}, err
	}
	var doc domain.DocPayload
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.DocPayload{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// FetchSheet retrieves the cell rows of one spreadsheet tab.
func (c *Client) FetchSheet(ctx context.Context, sheetRef, sheetName string) ([][]string, error) {
	data, err := c.post(ctx, "/sheets/fetch", map[string]string{
		"sheet_id":   ExtractSheetRef(sheetRef),
		"sheet_name": sheetName,
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Rows [][]string `json:"rows"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode sheet rows: %w", err)
	}
	return out.Rows, nil
}

// FetchDriveFile retrieves one stored file's metadata and text content.
func (c *Client) FetchDriveFile(ctx context.Context, fileRef string) (domain.DriveFile, error) {
	data, err := c.post(ctx, "/drive/fetch", map[string]string{"file_id": fileRef})
	if err != nil {
		return domain.DriveFile{}, err
	}
	var file domain.DriveFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.DriveFile{}, fmt.Errorf("decode drive file: %w", err)
	}
	return file, nil
}

// WriteDocument replaces a document's content with the given markdown.
func (c *Client) WriteDocument(ctx context.Context, docRef, markdown string) error {
	_, err := c.post(ctx, "/docs/write", map[string]string{
		"doc_id":   ExtractDocRef(docRef),
		"markdown": markdown,
	})
	return err
}

// WriteSheet replaces the cell rows of one spreadsheet tab.
func (c *Client) WriteSheet(ctx context.Context, sheetRef, sheetName string, rows [][]string) error {
	_, err := c.post(ctx, "/sheets/write", map[string]any{
		"sheet_id":   ExtractSheetRef(sheetRef),
		"sheet_name": sheetName,
		"rows":       rows,
	})
	return err
}

// ListSheetNames returns the tab names of a spreadsheet.
func (c *Client) ListSheetNames(ctx context.Context, sheetRef string) ([]string, error) {
	data, err := c.post(ctx, "/sheets/list", map[string]string{"sheet_id": ExtractSheetRef(sheetRef)})
	if err != nil {
		return nil, err
	}
	var out struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode sheet names: %w", err)
	}
	return out.Names, nil
}

var _ domain.WorkspaceRelay = (*Client)(nil)
