package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/focusflow/internal/types"
)

// Compile-time interface check
var _ Advisor = (*OpenAIAdvisor)(nil)

// ChatService defines the chat completion call used by the advisor.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIAdvisor asks a chat model for coaching insights.
type OpenAIAdvisor struct {
	chat  ChatService
	model openai.ChatModel
}

// NewOpenAIAdvisor creates an advisor using the OpenAI API.
func NewOpenAIAdvisor(apiKey, model string) *OpenAIAdvisor {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdvisor{chat: client.Chat.Completions, model: openai.ChatModel(model)}
}

const systemPrompt = `You are a productivity coach. Reply with JSON only, shaped as
{"insights":[{"type":"tip|warning|suggestion|praise","message":"...","priority":"low|medium|high"}],"recommendations":["..."]}.
Be specific, positive and action oriented. At most 5 insights.`

type taskSummary struct {
	Title            string `json:"title"`
	Priority         string `json:"priority"`
	Status           string `json:"status"`
	CompletedAt      string `json:"completed_at,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	ActualMinutes    int    `json:"actual_minutes,omitempty"`
}

type chatReply struct {
	Insights []struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Priority string `json:"priority"`
	} `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

func (o *OpenAIAdvisor) Advise(ctx context.Context, tasks []types.Task, stats Stats) (Result, error) {
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		s := taskSummary{
			Title:            t.Title,
			Priority:         string(t.Priority),
			Status:           string(t.Status),
			EstimatedMinutes: t.EstimatedMinutes,
			ActualMinutes:    t.ActualMinutes,
		}
		if t.CompletedAt != nil {
			s.CompletedAt = t.CompletedAt.Format(time.RFC3339)
		}
		summaries = append(summaries, s)
	}
	payload, err := json.Marshal(map[string]any{"tasks": summaries, "stats": stats})
	if err != nil {
		return Result{}, fmt.Errorf("encode insight request: %w", err)
	}

	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		}),
		Model: openai.F(o.model),
	})
	if err != nil {
		return Result{}, fmt.Errorf("insight generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("insight generation failed: no choices returned")
	}
	return parseReply(resp.Choices[0].Message.Content)
}

// parseReply decodes the model's JSON, tolerating surrounding prose or
// code fences, and normalizes unknown enum values.
func parseReply(content string) (Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("insight generation failed: no JSON object in reply")
	}
	var reply chatReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return Result{}, fmt.Errorf("insight generation failed: %w", err)
	}

	var r Result
	for _, in := range reply.Insights {
		if strings.TrimSpace(in.Message) == "" {
			continue
		}
		typ := types.InsightType(in.Type)
		switch typ {
		case types.InsightTip, types.InsightWarning, types.InsightSuggestion, types.InsightPraise:
		default:
			typ = types.InsightTip
		}
		prio := types.InsightPriority(in.Priority)
		switch prio {
		case types.InsightPriorityLow, types.InsightPriorityMedium, types.InsightPriorityHigh:
		default:
			prio = types.InsightPriorityMedium
		}
		r.Insights = append(r.Insights, types.Insight{Type: typ, Priority: prio, Message: in.Message})
		if len(r.Insights) == MaxInsights {
			break
		}
	}
	r.Recommendations = reply.Recommendations
	return r, nil
}
