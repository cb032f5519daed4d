package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// OpenAIProvider serves the agent from any endpoint speaking the OpenAI
// Responses API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, modelName string, extra ...option.RequestOption) *OpenAIProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithHTTPClient(tracedHTTPClient()))
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: modelName}
}

func (o *OpenAIProvider) Name() string { return o.model }

func (o *OpenAIProvider) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params, err := o.params(req)
		if err != nil {
			yield(nil, err)
			return
		}

		if !stream {
			resp, err := o.client.Responses.New(ctx, params)
			if err != nil {
				yield(nil, fmt.Errorf("openai generate: %w", err))
				return
			}
			yield(fromResponse(resp), nil)
			return
		}

		s := o.client.Responses.NewStreaming(ctx, params)
		var completed *responses.Response
		for s.Next() {
			event := s.Current()

			switch event.Type {
			case "response.output_text.delta":
				if event.Delta == "" {
					continue
				}
				partial := &model.LLMResponse{
					Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: event.Delta}}},
					Partial: true,
				}
				if !yield(partial, nil) {
					return
				}
			case "response.completed":
				completed = &event.Response
			case "response.failed":
				yield(nil, fmt.Errorf("response failed: %s", event.Response.Error.Message))
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, fmt.Errorf("openai stream: %w", err))
			return
		}
		if completed == nil {
			yield(nil, fmt.Errorf("openai stream ended without a completed response"))
			return
		}
		yield(fromResponse(completed), nil)
	}
}

func (o *OpenAIProvider) params(req *model.LLMRequest) (responses.ResponseNewParams, error) {
	modelName := o.model
	if req.Model != "" {
		modelName = req.Model
	}

	input, err := toInput(req.Contents)
	if err != nil {
		return responses.ResponseNewParams{}, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(modelName),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}

	if req.Config == nil {
		return params, nil
	}
	if sys := contentText(req.Config.SystemInstruction); sys != "" {
		params.Instructions = openai.String(sys)
	}
	for _, t := range req.Config.Tools {
		if t == nil {
			continue
		}
		for _, fd := range t.FunctionDeclarations {
			schema, err := declarationSchema(fd)
			if err != nil {
				return responses.ResponseNewParams{}, fmt.Errorf("tool %s schema: %w", fd.Name, err)
			}
			params.Tools = append(params.Tools, responses.ToolUnionParam{
				OfFunction: &responses.FunctionToolParam{
					Name:        fd.Name,
					Description: openai.String(fd.Description),
					Parameters:  schema,
					Strict:      openai.Bool(false),
				},
			})
		}
	}
	return params, nil
}

// toInput flattens runtime contents into Responses API input items. Model
// turns become assistant messages, function calls and their outputs are
// linked by call ID.
func toInput(contents []*genai.Content) ([]responses.ResponseInputItemUnionParam, error) {
	var items []responses.ResponseInputItemUnionParam
	for _, c := range contents {
		if c == nil {
			continue
		}
		for _, p := range c.Parts {
			switch {
			case p == nil || p.Thought:
			case p.FunctionCall != nil:
				args := []byte("{}")
				if len(p.FunctionCall.Args) > 0 {
					var err error
					if args, err = json.Marshal(p.FunctionCall.Args); err != nil {
						return nil, fmt.Errorf("encoding %s args: %w", p.FunctionCall.Name, err)
					}
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(string(args), callID(p.FunctionCall.ID, p.FunctionCall.Name), p.FunctionCall.Name))
			case p.FunctionResponse != nil:
				out, err := json.Marshal(p.FunctionResponse.Response)
				if err != nil {
					return nil, fmt.Errorf("encoding %s response: %w", p.FunctionResponse.Name, err)
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(callID(p.FunctionResponse.ID, p.FunctionResponse.Name), string(out)))
			case p.Text != "":
				if c.Role == "model" {
					items = append(items, responses.ResponseInputItemParamOfMessage(p.Text, "assistant"))
				} else {
					items = append(items, responses.ResponseInputItemParamOfMessage(p.Text, "user"))
				}
			}
		}
	}
	return items, nil
}

func callID(id, name string) string {
	if id != "" {
		return id
	}
	return name
}

func fromResponse(resp *responses.Response) *model.LLMResponse {
	content := &genai.Content{Role: "model"}
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, c := range item.AsMessage().Content {
				if c.Type == "output_text" && c.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: c.Text})
				}
			}
		case "function_call":
			fc := item.AsFunctionCall()
			args := map[string]any{}
			if fc.Arguments != "" {
				if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
					args = map[string]any{"raw": fc.Arguments}
				}
			}
			content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   fc.CallID,
				Name: fc.Name,
				Args: args,
			}})
		}
	}

	return &model.LLMResponse{
		Content: content,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.InputTokens),
			CandidatesTokenCount: int32(resp.Usage.OutputTokens),
			TotalTokenCount:      int32(resp.Usage.TotalTokens),
		},
		TurnComplete: true,
	}
}

func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var parts []string
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func declarationSchema(fd *genai.FunctionDeclaration) (map[string]any, error) {
	switch {
	case fd.ParametersJsonSchema != nil:
		raw, err := json.Marshal(fd.ParametersJsonSchema)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	case fd.Parameters != nil:
		return schemaMap(fd.Parameters), nil
	default:
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
}

// schemaMap converts a genai schema into JSON Schema. genai spells types in
// upper case ("OBJECT"); JSON Schema wants them lower case.
func schemaMap(s *genai.Schema) map[string]any {
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = schemaMap(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = schemaMap(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
