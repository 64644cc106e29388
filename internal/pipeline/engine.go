package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type LLMClient interface {
	Chat(ctx context.Context, request LLMRequest) (LLMResponse, error)
}

type RunOptions struct {
	MaxAttempts int
	// Timeout bounds a single model call; zero means no limit.
	Timeout time.Duration
}

type Runner struct {
	Client  LLMClient
	Options RunOptions
	Logger  *zap.Logger
}

var errRejectedWithoutRefine = errors.New("verify rejected result and no refine request provided")

// Run gathers the items and processes them sequentially. Only a gather
// failure or context cancellation ends the batch early.
func (r Runner) Run(ctx context.Context, p Pipeline) (Report, error) {
	logger := r.logger()
	report := Report{Name: p.Name()}

	items, gatherErr := p.Gather(ctx)
	if gatherErr != nil {
		return report, fmt.Errorf("gather: %w", gatherErr)
	}
	if len(items) == 0 {
		logger.Warn("no items to process", zap.String("pipeline", p.Name()))
		return report, nil
	}

	for index, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Canceled = true
			logger.Warn("batch canceled", zap.Int("remaining", len(items)-index), zap.Error(ctxErr))
			return report, ctxErr
		}
		logger.Info("processing item", zap.Int("index", index+1), zap.Int("total", len(items)), zap.Stringer("item", describe{item}))

		result := r.ProcessOne(ctx, p, item)
		report.add(result)
		if result.Err != nil {
			logger.Error("item failed", zap.Stringer("item", describe{item}), zap.Error(result.Err))
			continue
		}
		logger.Info("item done",
			zap.String("from", result.Action.From),
			zap.String("to", result.Action.To),
			zap.Bool("applied", result.Action.Applied),
			zap.Bool("dry_run", result.Action.DryRun),
			zap.Bool("skipped", result.Action.Skipped),
		)
	}
	return report, nil
}

// ProcessOne runs prompt, chat, verify and apply for a single item.
func (r Runner) ProcessOne(ctx context.Context, p Pipeline, item Item) ItemResult {
	var (
		attemptLogs   []attemptRecord
		pendingRefine string
		lastRefine    *RefineRequest
	)
	for attempt := 1; attempt <= max(1, r.Options.MaxAttempts); attempt++ {
		req, reqErr := p.Prompt(ctx, item)
		if reqErr != nil {
			return ItemResult{Item: item, Err: fmt.Errorf("prompt: %w", reqErr)}
		}
		if strings.TrimSpace(pendingRefine) != "" {
			req.Prompt = appendRefine(req.Prompt, pendingRefine)
		}

		resp, chatErr := r.chat(ctx, req)
		if chatErr != nil {
			return ItemResult{Item: item, Err: fmt.Errorf("llm chat: %w", chatErr)}
		}
		record := attemptRecord{Request: req, Response: resp}

		ok, out, refine, verErr := p.Verify(ctx, item, resp)
		if verErr != nil {
			attemptLogs = append(attemptLogs, record)
			r.logAttempts(attemptLogs)
			return ItemResult{Item: item, Err: fmt.Errorf("verify: %w", verErr)}
		}
		if ok {
			action, applyErr := p.Apply(ctx, item, out)
			if applyErr != nil {
				return ItemResult{Item: item, Action: action, Err: fmt.Errorf("apply: %w", applyErr)}
			}
			return ItemResult{Item: item, Action: action}
		}
		if refine == nil {
			attemptLogs = append(attemptLogs, record)
			r.logAttempts(attemptLogs)
			return ItemResult{Item: item, Err: errRejectedWithoutRefine}
		}
		record.Refine = refine
		attemptLogs = append(attemptLogs, record)
		lastRefine = refine
		pendingRefine = formatRefine(refine.UserPromptDelta)
	}

	r.logAttempts(attemptLogs)
	exhaustedErr := fmt.Errorf("exhausted %d attempts without acceptance", max(1, r.Options.MaxAttempts))
	if lastRefine != nil && lastRefine.Err != nil {
		exhaustedErr = fmt.Errorf("%w (after %d attempts)", lastRefine.Err, len(attemptLogs))
	}
	return ItemResult{Item: item, Err: exhaustedErr}
}

func (r Runner) chat(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if r.Options.Timeout <= 0 {
		return r.Client.Chat(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	defer cancel()
	return r.Client.Chat(attemptCtx, req)
}

func (r Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r Runner) logAttempts(attempts []attemptRecord) {
	logger := r.logger()
	if !logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	logger.Debug("attempt history", zap.String("attempts", renderAttemptDebug(attempts)))
}

func (report *Report) add(result ItemResult) {
	report.Results = append(report.Results, result)
	switch {
	case result.Err != nil:
		report.Failed++
	case result.Action.Skipped:
		report.Skipped++
	case result.Action.DryRun:
		report.Planned++
		report.DryRun = true
	case result.Action.Applied:
		report.Renamed++
	}
}

// Summary renders the one-line batch outcome.
func (report Report) Summary() string {
	summary := fmt.Sprintf("%s: renamed=%d planned=%d skipped=%d failed=%d", report.Name, report.Renamed, report.Planned, report.Skipped, report.Failed)
	if report.DryRun {
		summary += " (dry-run)"
	}
	if report.Canceled {
		summary += " (canceled)"
	}
	return summary
}

type describe struct{ item Item }

func (d describe) String() string {
	if stringer, ok := d.item.(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprintf("%v", d.item)
}

type attemptRecord struct {
	Request  LLMRequest
	Response LLMResponse
	Refine   *RefineRequest
}

func renderAttemptDebug(attempts []attemptRecord) string {
	var sb strings.Builder
	for idx, attempt := range attempts {
		sb.WriteString(fmt.Sprintf("Attempt %d:\n", idx+1))
		sb.WriteString(fmt.Sprintf("  Model: %s\n", attempt.Request.Model))
		sb.WriteString(fmt.Sprintf("  Images: %d\n", len(attempt.Request.Images)))
		sb.WriteString("  Prompt:\n")
		sb.WriteString(indentBlock(truncate(attempt.Request.Prompt, 1200)))
		sb.WriteString("\n  Response:\n")
		sb.WriteString(indentBlock(truncate(attempt.Response.RawText, 1200)))
		sb.WriteString("\n")
		if attempt.Refine != nil {
			sb.WriteString("  Refine Reason: ")
			sb.WriteString(attempt.Refine.Reason)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func indentBlock(block string) string {
	if block == "" {
		return "    <empty>"
	}
	lines := strings.Split(block, "\n")
	for idx, line := range lines {
		lines[idx] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func appendRefine(original, refine string) string {
	trimmedOriginal := strings.TrimRight(original, "\n")
	if trimmedOriginal == "" {
		return refine
	}
	return trimmedOriginal + "\n\n" + refine
}

func formatRefine(delta string) string {
	trimmed := strings.TrimSpace(delta)
	if trimmed == "" {
		return "REFINE:\n<empty>"
	}
	return "REFINE:\n" + trimmed
}
