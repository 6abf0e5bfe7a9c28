package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sonnes/cmsync/apierr"
	"github.com/sonnes/cmsync/core"
)

const (
	prodBaseURL = "https://api.hubapi.com"
	qaBaseURL   = "https://api.hubapiqa.com"

	defaultTimeout = 60 * time.Second
)

// BaseURL returns the API root for env.
func BaseURL(env core.Env) string {
	if env == core.EnvQA {
		return qaBaseURL
	}
	return prodBaseURL
}

// HTTPClient talks to the content API.
type HTTPClient struct {
	BaseURL   string
	AccessKey string
	Env       core.Env

	// FS reads the local files being uploaded.
	FS   billy.Filesystem
	HTTP *http.Client

	Concurrency int
	Logger      *log.Logger
}

// NewHTTPClient creates a client for env authenticated with accessKey.
func NewHTTPClient(fs billy.Filesystem, env core.Env, accessKey string, logger *log.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL:   BaseURL(env),
		AccessKey: accessKey,
		Env:       env,
		FS:        fs,
		HTTP:      &http.Client{Timeout: defaultTimeout},
		Logger:    logger,
	}
}

func (c *HTTPClient) Upload(ctx context.Context, accountID int, localPath, remotePath string, q core.QueryParams) error {
	data, err := util.ReadFile(c.FS, localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(localPath)))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("buffer", strconv.FormatBool(q.Buffer))
	query.Set("environmentId", strconv.Itoa(q.EnvironmentID))

	req, err := c.newRequest(ctx, http.MethodPost, accountID, "content/filemapper/v1/upload/"+url.PathEscape(remotePath), query, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) UploadFolder(ctx context.Context, accountID int, localPath, remoteDir string, opts core.FolderOptions) error {
	u := folderUploader{fs: c.FS, concurrency: c.Concurrency, logger: c.Logger}
	q := core.QueryFromMode(opts.Mode, c.Env)
	return u.upload(ctx, localPath, remoteDir, opts, func(ctx context.Context, f FileUpload) error {
		return c.Upload(ctx, accountID, f.LocalPath, f.RemotePath, q)
	})
}

// Logs fetches the execution results for route. When latest is set only the
// most recent result is returned; a 404 for it means there are none.
func (c *HTTPClient) Logs(ctx context.Context, accountID int, route string, latest bool) (*core.LogResponse, error) {
	p := "cms/v3/functions/results/by-route/" + url.PathEscape(strings.TrimPrefix(route, "/"))
	if latest {
		p += "/latest"
	}
	req, err := c.newRequest(ctx, http.MethodGet, accountID, p, nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		var apiErr *apierr.Error
		if latest && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return &core.LogResponse{}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read logs response: %w", err)
	}
	return core.DecodeLogResponse(data)
}

func (c *HTTPClient) newRequest(ctx context.Context, method string, accountID int, p string, query url.Values, body io.Reader) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("portalId", strconv.Itoa(accountID))

	u := strings.TrimSuffix(c.BaseURL, "/") + "/" + p + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.AccessKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and converts non-2xx responses into *apierr.Error.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &apierr.Error{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		URL:        req.URL.Path,
	}
	var payload struct {
		Message       string `json:"message"`
		Category      string `json:"category"`
		CorrelationID string `json:"correlationId"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
		apiErr.Category = payload.Category
		apiErr.CorrelationID = payload.CorrelationID
	}
	return nil, apiErr
}
