// Package simplifier rewrites clinician text into plain-language patient
// guidance using an OpenAI-compatible chat-completions endpoint.
package simplifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Fallback is returned whenever no model output is available.
const Fallback = "## 핵심 요약\n- 약과 검사 일정을 지켜 주세요.\n### 꼭 해야 할 일\n- 증상이 심해지면 바로 병원이나 119에 연락하세요."

// MaxInputRunes caps how much clinician text is sent upstream.
const MaxInputRunes = 8000

// Simplifier turns raw clinician text into patient guidance. Implementations
// never fail; they fall back to fixed guidance instead.
type Simplifier interface {
	Simplify(ctx context.Context, raw string) string
}

// Func adapts a plain function to Simplifier.
type Func func(ctx context.Context, raw string) string

func (f Func) Simplify(ctx context.Context, raw string) string { return f(ctx, raw) }

// Static always returns Fallback. It is used when no API key is configured.
var Static = Func(func(context.Context, string) string { return Fallback })

const systemPrompt = `너는 한국 병원 환자의 이해를 돕는 의료 안내 전문가다.
대상 독자는 나이가 많거나 의료 지식이 전혀 없는 환자이며, 글을 읽자마자 바로 이해하고 실천할 수 있도록 안내하는 것이 최우선 목표다.

[작성 원칙]
- 반드시 존댓말을 사용한다.
- 초등학교 3학년도 이해할 수 있는 짧은 단어와 짧은 문장을 쓴다. 한 문장에는 하나의 지시만 담는다.
- 전문용어는 괄호 안에 쉬운 말을 함께 쓴다. (예: 폐렴(폐에 염증))
- 설명보다 행동 지침을 중심으로 쓴다.
- 위급 상황과 필수 행동을 맨 위에 둔다.
- 불릿(-)으로 구분한다.

[섹션 구조]
다음 여섯 제목을 반드시 포함하고, 해당 사항이 없으면 "해당 없음"으로 쓴다.
1. 진단
2. 증상 요약
3. 약 복용
4. 검사 / 모니터링
5. 생활수칙
6. 꼭 해야 할 일 (맨 앞에 위급 상황 대처법)

답변은 반드시 JSON {"simplified":"..."} 형태만 반환한다.`

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls the chat-completions API.
type Client struct {
	http    *resty.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:    rc,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "simplifier").Logger(),
	}
}

// New returns a Client when an API key is configured and Static otherwise.
func New(cfg Config, logger zerolog.Logger) Simplifier {
	if cfg.APIKey == "" {
		return Static
	}
	return NewClient(cfg, logger)
}

func (c *Client) Simplify(ctx context.Context, raw string) string {
	content, err := c.complete(ctx, raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("simplification failed, using fallback")
		return Fallback
	}
	return Extract(content)
}

func (c *Client) complete(ctx context.Context, raw string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "원문 (의사용):\n" + Truncate(raw, MaxInputRunes) + "\n\n위 형식에 맞춰 아주 쉽게 풀어써 주세요."},
		},
		Temperature: 0.2,
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("call chat completions: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completions returned empty content")
	}
	return content, nil
}

// Extract returns the "simplified" field when content is a JSON object with
// a non-blank value, and content verbatim otherwise. Empty content yields
// Fallback.
func Extract(content string) string {
	if strings.TrimSpace(content) == "" {
		return Fallback
	}
	var obj struct {
		Simplified *string `json:"simplified"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj.Simplified != nil {
		if strings.TrimSpace(*obj.Simplified) != "" {
			return *obj.Simplified
		}
	}
	return content
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
