package moviequiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const checkerTool = "evaluate_question"

// QuestionChecker reviews generated questions with a chat completion model.
// It only accepts or rejects; question text is never rewritten.
type QuestionChecker struct {
	client *openai.Client
	model  string
}

// NewQuestionChecker creates a new question checker with an OpenAI client.
// baseURL and model may be empty to use the defaults.
func NewQuestionChecker(apiKey, baseURL, model string) *QuestionChecker {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &QuestionChecker{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// CheckQuestion reviews a single question and returns the verdict
func (qc *QuestionChecker) CheckQuestion(ctx context.Context, question *QuestionItem, logger *RunLogger) (*ValidationResult, error) {
	VerboseLog("Checking question: %s", question.ID)

	prompt := qc.buildPrompt(question)

	if logger != nil {
		logger.LogLLMRequest("QuestionChecker", prompt)
	}

	resp, err := qc.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: qc.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are a film trivia editor. Check generated multiple choice questions for factual accuracy and ambiguity.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        checkerTool,
						Description: "Accept or reject a movie quiz question",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"reason": map[string]interface{}{
									"type":        "string",
									"description": "Explanation for the decision",
								},
								"action": map[string]interface{}{
									"type":        "string",
									"enum":        []string{string(ActionAccept), string(ActionReject)},
									"description": "What to do with this question",
								},
							},
							"required": []string{"reason", "action"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: checkerTool,
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to check question: %w", err)
	}

	if logger != nil {
		responseText := ""
		if len(resp.Choices) > 0 && len(resp.Choices[0].Message.ToolCalls) > 0 {
			responseText = resp.Choices[0].Message.ToolCalls[0].Function.Arguments
		}
		logger.LogLLMResponse("QuestionChecker", responseText)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", qc.model)
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}

	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != checkerTool {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var toolArgs struct {
		Reason string `json:"reason"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	action := ValidationAction(strings.ToLower(strings.TrimSpace(toolArgs.Action)))
	if action != ActionAccept && action != ActionReject {
		return nil, fmt.Errorf("unexpected action %q", toolArgs.Action)
	}

	result := &ValidationResult{
		QuestionID: question.ID,
		Action:     action,
		Reason:     toolArgs.Reason,
	}

	if logger != nil {
		logger.LogQuestionResult(question.ID, string(result.Action), result.Reason)
	}

	VerboseLog("Question %s: %s - %s", question.ID, result.Action, result.Reason)
	return result, nil
}

func (qc *QuestionChecker) buildPrompt(question *QuestionItem) string {
	var sb strings.Builder

	sb.WriteString("Evaluate the following movie quiz question:\n\n")
	sb.WriteString(fmt.Sprintf("Movie: %s\n", question.SourceTitle))
	sb.WriteString(fmt.Sprintf("Asks about: %s\n\n", question.Kind))
	sb.WriteString(fmt.Sprintf("Question: %s\n\n", question.Prompt))

	sb.WriteString("Options:\n")
	for i, option := range question.Options {
		marker := " "
		if i == question.CorrectIndex {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, option))
	}
	sb.WriteString(fmt.Sprintf("\nCorrect Answer: %d\n\n", question.CorrectIndex+1))

	sb.WriteString("Evaluation criteria:\n")
	sb.WriteString("1. Is the marked answer actually correct for this movie?\n")
	sb.WriteString("2. Is any other option also a correct answer (for example a second genre of the same movie)?\n")
	sb.WriteString("3. Could the title refer to more than one well known movie, making the question ambiguous?\n\n")

	sb.WriteString("Decision guidelines:\n")
	sb.WriteString("- REJECT: the marked answer is wrong, or another option is also right, or the question is ambiguous\n")
	sb.WriteString("- ACCEPT: otherwise. Do not reject a question only because it is easy or has fewer than four options.\n")
	sb.WriteString("Use the evaluate_question tool to return your decision.")

	return sb.String()
}
