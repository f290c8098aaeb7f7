package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/raziahmad854/ai-escrow-backend/internal/config"
)

// MilestonePlan is one planned milestone: a weighted, verifiable slice of a goal.
type MilestonePlan struct {
	Description          string  `json:"description"`
	VerificationCriteria string  `json:"verificationCriteria"`
	RequiredProofType    string  `json:"requiredProofType"`
	Percentage           float64 `json:"percentage"`
}

// Assessment is the external verdict on a submitted proof.
type Assessment struct {
	Verified    bool    `json:"verified"`
	Confidence  float64 `json:"confidence"`
	Analysis    string  `json:"analysis"`
	Suggestions string  `json:"suggestions"`
}

// MilestoneProposer proposes candidate milestone plans for a goal title.
// Implementations are unreliable by contract: callers must survive any error.
type MilestoneProposer interface {
	ProposeMilestones(ctx context.Context, goalTitle string) ([]MilestonePlan, error)
}

// ProofAssessor judges a completion proof against a milestone's criteria.
type ProofAssessor interface {
	AssessProof(ctx context.Context, milestone, criteria, proofURL, proofDescription string) (*Assessment, error)
}

// AIClient talks to an OpenAI-compatible chat completions API in JSON mode.
// With no API key configured every call reports ErrServiceUnavailable, which
// the planner and verification policy absorb into their fallback paths.
type AIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	enabled bool
}

func NewAIClient(cfg *config.Config) *AIClient {
	if cfg.AIAPIKey == "" {
		log.Println("AI: no API key configured, milestone proposals and proof assessment disabled")
		return &AIClient{}
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.AIAPIKey)}
	if cfg.AIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AIBaseURL))
	}

	return &AIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		enabled: true,
	}
}

const proposeSystemPrompt = `You are a goal-planning assistant for an escrow app.
Break the user's goal into 3 to 8 concrete, independently verifiable milestones.
Respond with JSON only, in exactly this shape:
{"milestones":[{"description":"...","verificationCriteria":"...","requiredProofType":"photo|document|link|text","percentage":25}]}
Each description must be specific to the goal and at least 20 characters.
Each percentage must be between 5 and 50 and all percentages must sum to 100.`

func (a *AIClient) ProposeMilestones(ctx context.Context, goalTitle string) ([]MilestonePlan, error) {
	content, err := a.complete(ctx, proposeSystemPrompt, fmt.Sprintf("Goal: %s", goalTitle))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Milestones []MilestonePlan `json:"milestones"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed proposal payload: %v", ErrServiceUnavailable, err)
	}
	if len(payload.Milestones) == 0 {
		return nil, fmt.Errorf("%w: proposal payload has no milestones", ErrServiceUnavailable)
	}

	return payload.Milestones, nil
}

const assessSystemPrompt = `You are verifying whether a submitted proof shows a milestone was completed.
Respond with JSON only, in exactly this shape:
{"verified":true,"confidence":85,"analysis":"...","suggestions":"..."}
confidence is 0-100. Be skeptical of vague or unrelated proofs.`

func (a *AIClient) AssessProof(ctx context.Context, milestone, criteria, proofURL, proofDescription string) (*Assessment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Milestone: %s\nVerification criteria: %s\n", milestone, criteria)
	if proofURL != "" {
		fmt.Fprintf(&b, "Proof URL: %s\n", proofURL)
	}
	if proofDescription != "" {
		fmt.Fprintf(&b, "Proof description: %s\n", proofDescription)
	}

	content, err := a.complete(ctx, assessSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &assessment); err != nil {
		return nil, fmt.Errorf("%w: malformed assessment payload: %v", ErrServiceUnavailable, err)
	}
	if assessment.Confidence < 0 || assessment.Confidence > 100 {
		return nil, fmt.Errorf("%w: assessment confidence %v out of range", ErrServiceUnavailable, assessment.Confidence)
	}
	if assessment.Analysis == "" {
		return nil, fmt.Errorf("%w: assessment has no analysis", ErrServiceUnavailable)
	}

	return &assessment, nil
}

func (a *AIClient) complete(ctx context.Context, system, user string) (string, error) {
	if !a.enabled {
		return "", ErrServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrServiceUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}

// stripCodeFences tolerates models that wrap JSON in a markdown fence despite
// JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
