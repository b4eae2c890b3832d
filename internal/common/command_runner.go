package common

import (
	"context"
	"fmt"
	"os"

	"careercoach/internal/ai"
	"careercoach/internal/errors"
)

// CreateInputFunc builds the AI input from the command arguments
type CreateInputFunc[Input any] func(args []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is a generic function signature for any AI operation with context and token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunAICommand builds the input, runs one AI operation, reports token usage
// and writes the formatted result.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(logger)

	input, err := createInput(args)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		if logger != nil {
			logger.Info("AI token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
