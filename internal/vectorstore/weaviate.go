package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// WeaviateClient talks to a single Weaviate class over the REST and GraphQL
// APIs. Objects carry externally computed vectors; Weaviate does no
// vectorization of its own here.
type WeaviateClient struct {
	baseURL    string
	class      string
	properties []string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWeaviateClient constructs a class-scoped client. properties lists the
// payload fields returned by Query.
func NewWeaviateClient(cfg config.VectorStoreConfig, class string, properties []string, logger *zap.Logger) *WeaviateClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeaviateClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		class:      class,
		properties: properties,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data   map[string]map[string][]map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a nearVector search and returns up to limit hits with the
// store's native cosine distance.
func (c *WeaviateClient) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 3
	}
	gql := fmt.Sprintf(
		`{ Get { %s(nearVector: {vector: %s} limit: %d) { %s _additional { id distance } } } }`,
		c.class, renderVector(vector), limit, strings.Join(c.properties, " "),
	)

	body, err := json.Marshal(graphqlRequest{Query: gql})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weaviate graphql status %d", resp.StatusCode)
	}

	var parsed graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", parsed.Errors[0].Message)
	}

	objects := parsed.Data["Get"][c.class]
	hits := make([]Hit, 0, len(objects))
	for _, obj := range objects {
		hit := Hit{Payload: map[string]any{}}
		for key, value := range obj {
			if key == "_additional" {
				if add, ok := value.(map[string]any); ok {
					if id, ok := add["id"].(string); ok {
						hit.ID = id
					}
					if dist, ok := add["distance"].(float64); ok {
						hit.Distance = dist
					}
				}
				continue
			}
			hit.Payload[key] = value
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Get fetches a single object's payload by id.
func (c *WeaviateClient) Get(ctx context.Context, id string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFound("object", map[string]any{"id": id})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weaviate get status %d", resp.StatusCode)
	}

	var object struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&object); err != nil {
		return nil, err
	}
	return object.Properties, nil
}

// Upsert creates or replaces an object with the given vector and payload.
func (c *WeaviateClient) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"class":      c.class,
		"id":         id,
		"properties": payload,
		"vector":     vector,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// PUT replaces an existing object; a brand new id needs POST /v1/objects.
	if resp.StatusCode == http.StatusNotFound {
		return c.create(ctx, id, vector, payload)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("weaviate upsert status %d", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

func (c *WeaviateClient) create(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"class":      c.class,
		"id":         id,
		"properties": payload,
		"vector":     vector,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/objects", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("weaviate create status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes an object. Missing objects are not an error.
func (c *WeaviateClient) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("weaviate delete status %d", resp.StatusCode)
	}
	return nil
}

// Ping checks the readiness endpoint.
func (c *WeaviateClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/.well-known/ready", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate not ready: status %d", resp.StatusCode)
	}
	return nil
}

// EnsureSchema creates the class when it does not exist yet. All properties
// are stored as text; vectorizer stays off since embeddings come from us.
func (c *WeaviateClient) EnsureSchema(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/schema/"+c.class, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("weaviate schema check status %d", resp.StatusCode)
	}

	props := make([]map[string]any, 0, len(c.properties))
	for _, name := range c.properties {
		props = append(props, map[string]any{
			"name":     name,
			"dataType": []string{"text"},
		})
	}
	body, err := json.Marshal(map[string]any{
		"class":      c.class,
		"vectorizer": "none",
		"properties": props,
	})
	if err != nil {
		return err
	}

	createReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/schema", bytes.NewReader(body))
	if err != nil {
		return err
	}
	createReq.Header.Set("Content-Type", "application/json")

	createResp, err := c.httpClient.Do(createReq)
	if err != nil {
		return err
	}
	defer createResp.Body.Close()

	if createResp.StatusCode < 200 || createResp.StatusCode >= 300 {
		return fmt.Errorf("weaviate schema create status %d", createResp.StatusCode)
	}
	c.logger.Info("created vector store class", zap.String("class", c.class))
	return nil
}

func (c *WeaviateClient) objectURL(id string) string {
	return fmt.Sprintf("%s/v1/objects/%s/%s", c.baseURL, c.class, id)
}

func renderVector(vector []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
