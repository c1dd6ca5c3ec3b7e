package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	lkerrors "lorekeeper/internal/errors"
)

// OpenAI calls the Responses API. One instance is safe for concurrent use.
type OpenAI struct {
	client *openai.Client
	model  string
	maxOut int64
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(apiKey, model string, maxOutputTokens int64) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if maxOutputTokens <= 0 {
		maxOutputTokens = 4096
	}
	return &OpenAI{client: &client, model: model, maxOut: maxOutputTokens}
}

func (p *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	maxOut := req.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = p.maxOut
	}
	params := responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(maxOut),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", lkerrors.NewProviderError("openai", 502, "model returned no text", lkerrors.ErrGeneration)
	}
	return text, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return lkerrors.NewProviderError("openai", 504, err.Error(), lkerrors.ErrTimeout)
	case isRateLimitError(err):
		return lkerrors.NewProviderError("openai", 429, err.Error(), lkerrors.ErrRateLimit)
	case isAuthError(err):
		return lkerrors.NewProviderError("openai", 401, err.Error(), lkerrors.ErrUnavailable)
	case isServerError(err):
		return lkerrors.NewProviderError("openai", 500, err.Error(), lkerrors.ErrGeneration)
	default:
		return lkerrors.NewProviderError("openai", 502, err.Error(), lkerrors.ErrGeneration)
	}
}

func isRateLimitError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isAuthError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "401") ||
		strings.Contains(s, "invalid api key") ||
		strings.Contains(s, "incorrect api key")
}

func isServerError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error")
}
