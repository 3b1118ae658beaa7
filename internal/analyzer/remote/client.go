// Package remote implements the analysis backend talking to the CV
// screening HTTP endpoint.
package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	logutil "github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	// AnalyzePath is the fixed endpoint path for batch analysis.
	AnalyzePath = "/analyzeManyCvs"

	contentEncoding = "gzip, deflate, br"
	userAgent       = "spigell/cv-screener (spigelly@gmail.com)"

	jobDescriptionField = "job_description"
	selectionField      = "selectedOptions"
	documentsField      = "cvs"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client for the given endpoint base URL. An empty token
// disables the Authorization header.
func New(apiURL, token string, logger *zap.Logger) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			// A full chunk of CVs can take a while to analyze.
			Timeout: 5 * time.Minute,
		},
		logger:    logutil.WithBackendFields(logger, "remote", ""),
		UserAgent: userAgent,
	}
}

func (c *Client) Name() string { return "remote" }

type analyzeResponse struct {
	Results []map[string]any `json:"results"`
}

// AnalyzeBatch posts one multipart request carrying the job description,
// the serialized selection and the chunk's documents, and returns the
// decoded outcomes in response order. Any non-200 status fails the batch.
func (c *Client) AnalyzeBatch(ctx context.Context, job *screening.JobDescription, docs []*screening.Document, selected []string) ([]*screening.Outcome, error) {
	body, contentType, err := buildAnalyzeForm(job, docs, selected)
	if err != nil {
		return nil, fmt.Errorf("building request form: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.APIURL, AnalyzePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("url", url), zap.Int("documents", len(docs)))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	response, err := c.parseAnalyzeResponse(resp)
	if err != nil {
		return nil, err
	}

	var outcomes []*screening.Outcome
	cfg := &mapstructure.DecoderConfig{
		Result:  &outcomes,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(response.Results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}

	c.logger.Debug("got response from the endpoint", zap.Int("results", len(outcomes)))

	return outcomes, nil
}

func buildAnalyzeForm(job *screening.JobDescription, docs []*screening.Document, selected []string) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	jd, err := w.CreateFormFile(jobDescriptionField, job.DisplayName)
	if err != nil {
		return nil, "", err
	}
	if _, err := jd.Write(job.Content); err != nil {
		return nil, "", err
	}

	options, err := json.Marshal(selected)
	if err != nil {
		return nil, "", err
	}
	field, err := w.CreateFormField(selectionField)
	if err != nil {
		return nil, "", err
	}
	if _, err := field.Write(options); err != nil {
		return nil, "", err
	}

	// One repeated part per document of the chunk.
	for _, doc := range docs {
		part, err := w.CreateFormFile(documentsField, doc.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(doc.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &b, w.FormDataContentType(), nil
}

func (c *Client) parseAnalyzeResponse(resp *http.Response) (*analyzeResponse, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.ReadCloser
	var err error
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		body, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer body.Close()
	default:
		body = resp.Body
	}

	var response *analyzeResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	return response, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
