package embed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelTextEmbedding3Large = "text-embedding-3-large"
	ModelAda002              = "text-embedding-ada-002"

	// openAIMaxBatch is the maximum number of inputs per request.
	openAIMaxBatch = 2048
)

// OpenAIOptions configures the OpenAI embedder.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	Dimension  int
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

// DefaultOpenAIOptions contains the default options for the OpenAI embedder.
var DefaultOpenAIOptions = OpenAIOptions{
	Model:      ModelTextEmbedding3Small,
	Dimension:  1536,
	MaxRetries: 2,
}

// OpenAI implements Embedder with the OpenAI embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
	dim    int
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI embedder. An empty APIKey falls back to the
// OPENAI_API_KEY environment variable read by the client.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := DefaultOpenAIOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	reqOpts := []option.RequestOption{
		option.WithMaxRetries(opts.MaxRetries),
	}

	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(reqOpts...)

	return &OpenAI{
		client: &client,
		model:  opts.Model,
		dim:    opts.Dimension,
	}
}

// Dimension implements Embedder.
func (o *OpenAI) Dimension() int { return o.dim }

// Model returns the model identifier.
func (o *OpenAI) Model() string { return o.model }

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}

// EmbedBatch implements Embedder. Batches above the API limit are split.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, len(texts))

	for i := 0; i < len(texts); i += openAIMaxBatch {
		end := min(i+openAIMaxBatch, len(texts))

		vecs, err := o.request(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", i, end, err)
		}

		copy(out[i:], vecs)
	}

	return out, nil
}

func (o *OpenAI) request(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          o.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	if o.model != ModelAda002 {
		params.Dimensions = openai.Int(int64(o.dim))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))

	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= int64(len(texts)) {
			return nil, fmt.Errorf("unexpected embedding index %d for batch of %d", item.Index, len(texts))
		}

		if len(item.Embedding) != o.dim {
			return nil, &ErrUnexpectedDimension{Expected: o.dim, Actual: len(item.Embedding)}
		}

		vec := make([]float32, len(item.Embedding))
		for j, f := range item.Embedding {
			vec[j] = float32(f)
		}

		vecs[item.Index] = vec
	}

	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}

	return vecs, nil
}
