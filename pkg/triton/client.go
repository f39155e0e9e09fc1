// Package triton is an inference gateway for models served over the KServe v2
// HTTP/REST protocol, as implemented by NVIDIA Triton Inference Server.
//
// The client reads the model metadata once when created and uses it to name
// the input, cast data to the declared input type and request every declared
// output:
//
//	client, err := triton.NewClient(ctx,
//	    triton.WithBaseURL("http://localhost:8000"),
//	    triton.WithModel("yolo"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	outputs, err := client.Infer(ctx, input)
package triton

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-yoloface/internal/httpc"
	"github.com/teslashibe/go-yoloface/pkg/tensor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TensorMetadata describes one model input or output.
type TensorMetadata struct {
	Name     string  `json:"name"`
	Datatype string  `json:"datatype"`
	Shape    []int64 `json:"shape"`
}

// ModelMetadata is the server's description of a model.
type ModelMetadata struct {
	Name     string           `json:"name"`
	Versions []string         `json:"versions,omitempty"`
	Platform string           `json:"platform"`
	Inputs   []TensorMetadata `json:"inputs"`
	Outputs  []TensorMetadata `json:"outputs"`
}

// Client talks to one model on a KServe v2 server.
// It is safe for concurrent use.
type Client struct {
	baseURL   string
	modelPath string
	config    *Config
	http      *http.Client
	logger    *slog.Logger

	meta      ModelMetadata
	inputType tensor.DataType
}

// NewClient creates a client and loads the model metadata. It fails if the
// server is unreachable or the model's first input has a type we can't
// produce.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.NewClient(cfg.Timeout)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := "/v2/models/" + url.PathEscape(cfg.Model)
	if cfg.Version != "" {
		path += "/versions/" + url.PathEscape(cfg.Version)
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		modelPath: path,
		config:    cfg,
		http:      hc,
		logger:    logger.With("component", "triton.client", "model", cfg.Model),
	}

	if err := c.loadMetadata(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) loadMetadata(ctx context.Context) error {
	resp, err := c.get(ctx, c.modelPath)
	if err != nil {
		return wrapOp("metadata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	var meta ModelMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return wrapOp("metadata", fmt.Errorf("decode response: %w", err))
	}
	if len(meta.Inputs) == 0 {
		return ErrNoInputs
	}

	dt, err := tensor.ParseDataType(meta.Inputs[0].Datatype)
	if err != nil {
		return wrapOp("metadata", err)
	}

	c.meta = meta
	c.inputType = dt

	c.logger.Debug("model metadata loaded",
		"platform", meta.Platform,
		"input", meta.Inputs[0].Name,
		"datatype", dt,
		"shape", meta.Inputs[0].Shape,
		"outputs", len(meta.Outputs),
	)
	return nil
}

// Metadata returns the model metadata loaded at construction.
func (c *Client) Metadata() ModelMetadata {
	return c.meta
}

// Infer runs the model on a single input tensor and returns every declared
// output keyed by name, with values converted to float32.
//
// The tensor shape must match the declared input shape, where -1 matches
// any size. Data is cast to the declared input type before sending. Failed
// requests are not retried.
func (c *Client) Infer(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error) {
	start := time.Now()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	input := c.meta.Inputs[0]
	if !shapeMatches(input.Shape, in.Shape) {
		return nil, fmt.Errorf("%w: model %q input %q wants %v, got %v",
			ErrShapeMismatch, c.config.Model, input.Name, input.Shape, in.Shape)
	}

	data, err := tensor.Cast(in.Data, c.inputType)
	if err != nil {
		return nil, wrapOp("infer", err)
	}

	req := inferRequest{
		ID: uuid.NewString(),
		Inputs: []inferInput{{
			Name:     input.Name,
			Shape:    in.Shape,
			Datatype: string(c.inputType),
			Data:     data,
		}},
	}
	for _, o := range c.meta.Outputs {
		req.Outputs = append(req.Outputs, requestedOutput{
			Name:       o.Name,
			Parameters: map[string]any{"binary_data": false},
		})
	}

	resp, err := c.post(ctx, c.modelPath+"/infer", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, wrapOp("infer", fmt.Errorf("decode response: %w", err))
	}

	outputs, err := c.collectOutputs(result)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("inference complete",
		"request_id", req.ID,
		"outputs", len(outputs),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return outputs, nil
}

func (c *Client) collectOutputs(result inferResponse) (map[string]*tensor.Tensor, error) {
	byName := make(map[string]inferOutput, len(result.Outputs))
	for _, o := range result.Outputs {
		byName[o.Name] = o
	}

	outputs := make(map[string]*tensor.Tensor, len(c.meta.Outputs))
	for _, declared := range c.meta.Outputs {
		o, ok := byName[declared.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrOutputMissing, declared.Name)
		}

		dt, err := tensor.ParseDataType(o.Datatype)
		if err != nil {
			return nil, wrapOp("infer", fmt.Errorf("output %s: %w", o.Name, err))
		}
		values, err := tensor.FromFloat64(o.Data, dt)
		if err != nil {
			return nil, wrapOp("infer", fmt.Errorf("output %s: %w", o.Name, err))
		}
		t, err := tensor.New(o.Shape, values)
		if err != nil {
			return nil, wrapOp("infer", fmt.Errorf("output %s: %w", o.Name, err))
		}
		outputs[o.Name] = t
	}
	return outputs, nil
}

// Health checks that the server is ready to accept requests.
func (c *Client) Health(ctx context.Context) error {
	return c.ready(ctx, "/v2/health/ready")
}

// ModelReady checks that the model is loaded and ready.
func (c *Client) ModelReady(ctx context.Context) error {
	return c.ready(ctx, c.modelPath+"/ready")
}

func (c *Client) ready(ctx context.Context, path string) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return wrapOp("health", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrNotReady, path, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// post makes a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapOp("infer", fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, wrapOp("infer", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapOp("infer", err)
	}
	return resp, nil
}

// get makes a GET request.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.http.Do(req)
}

// parseError reads and parses an error response.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(body))
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Model:      c.config.Model,
	}
}

func shapeMatches(declared, got []int64) bool {
	if len(declared) != len(got) {
		return false
	}
	for i, d := range declared {
		if d != -1 && d != got[i] {
			return false
		}
	}
	return true
}

// Protocol types
type inferRequest struct {
	ID      string            `json:"id,omitempty"`
	Inputs  []inferInput      `json:"inputs"`
	Outputs []requestedOutput `json:"outputs,omitempty"`
}

type inferInput struct {
	Name     string  `json:"name"`
	Shape    []int64 `json:"shape"`
	Datatype string  `json:"datatype"`
	Data     any     `json:"data"`
}

type requestedOutput struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type inferResponse struct {
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	ID           string        `json:"id"`
	Outputs      []inferOutput `json:"outputs"`
}

type inferOutput struct {
	Name     string    `json:"name"`
	Datatype string    `json:"datatype"`
	Shape    []int64   `json:"shape"`
	Data     []float64 `json:"data"`
}
