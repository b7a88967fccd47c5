// Package llm wires an OpenRouter chat model into the field-extraction
// contract. The structured extractor asks the model for a strict JSON patch
// and degrades to the deterministic rule extractor whenever the model call or
// parse fails, so a model outage never fails a turn.
package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	extractx "github.com/lucy-fin/lucy-agent/agent/extract"
	openrouterx "github.com/lucy-fin/lucy-agent/pkg/openrouter"
)

// llmFieldPatch mirrors the JSON schema the extractor prompt describes.
// Pointer fields distinguish "absent" from zero values.
type llmFieldPatch struct {
	Location         *string  `json:"location,omitempty"`
	BusinessType     *string  `json:"business_type,omitempty"`
	WhatTheyLove     *string  `json:"what_they_love,omitempty"`
	MonthlySales     *int64   `json:"monthly_sales,omitempty"`
	DailySales       *int64   `json:"daily_sales,omitempty"`
	DailyCustomers   *int64   `json:"daily_customers,omitempty"`
	SalesConsistency *string  `json:"sales_consistency,omitempty"`
	Challenge        *string  `json:"challenge,omitempty"`
	LoanUses         []string `json:"loan_uses,omitempty"`
	Readiness        *string  `json:"readiness,omitempty"`
	Decision         *string  `json:"decision,omitempty"`
}

// StructuredExtractor runs the model graph and overlays the rule extractor's
// patch on top, so deterministic parses always win over model output.
type StructuredExtractor struct {
	runner compose.Runnable[map[string]any, llmFieldPatch]
	rules  contractx.Extractor
}

var _ contractx.Extractor = (*StructuredExtractor)(nil)

func NewStructuredExtractor(
	ctx context.Context,
	builder openrouterx.LLMBuilder,
	systemPrompt string,
	rules contractx.Extractor,
) (*StructuredExtractor, error) {
	if builder == nil {
		return nil, fmt.Errorf("%w: llm builder is required", contractx.ErrValidation)
	}
	if rules == nil {
		return nil, fmt.Errorf("%w: rule extractor is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: extractor system prompt is required", contractx.ErrValidation)
	}

	chatModel, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create extractor chat model: %w", err)
	}

	runner, err := compileExtractorGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, err
	}

	return &StructuredExtractor{runner: runner, rules: rules}, nil
}

func (e *StructuredExtractor) Extract(
	ctx context.Context,
	stage contractx.Stage,
	message string,
	attachments []contractx.Attachment,
) (contractx.FieldPatch, error) {
	rulePatch, err := e.rules.Extract(ctx, stage, message, attachments)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return rulePatch, nil
	}

	out, err := e.runner.Invoke(ctx, map[string]any{
		"stage": string(stage),
		"input": message,
	})
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)).
			Str("stage", string(stage)).
			Msg("structured extraction failed, using rule patch only")
		return rulePatch, nil
	}

	patch, dropped := sanitize(out, stage)
	if len(dropped) > 0 {
		log.Warn().
			Err(contractx.ErrSchemaViolation).
			Str("stage", string(stage)).
			Strs("fields", dropped).
			Msg("model patch fields dropped")
	}
	for name, value := range rulePatch {
		patch[name] = value
	}
	return patch, nil
}

// sanitize clamps model output to the known field vocabulary. Malformed
// values are dropped and reported, never errored: extraction is best-effort.
func sanitize(out llmFieldPatch, stage contractx.Stage) (contractx.FieldPatch, []string) {
	patch := contractx.FieldPatch{}
	var dropped []string

	putString := func(name string, v *string) {
		if v == nil {
			return
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			dropped = append(dropped, name)
			return
		}
		patch[name] = trimmed
	}
	putInt := func(name string, v *int64) {
		if v == nil {
			return
		}
		if *v <= 0 {
			dropped = append(dropped, name)
			return
		}
		patch[name] = *v
	}
	putEnum := func(name string, v *string, allowed ...string) {
		if v == nil {
			return
		}
		value := strings.ToLower(strings.TrimSpace(*v))
		for _, a := range allowed {
			if value == a {
				patch[name] = value
				return
			}
		}
		dropped = append(dropped, name)
	}

	putString(contractx.FieldLocation, out.Location)
	putString(contractx.FieldBusinessType, out.BusinessType)
	putInt(contractx.FieldMonthlySales, out.MonthlySales)
	putInt(contractx.FieldDailySales, out.DailySales)
	putInt(contractx.FieldDailyCustomers, out.DailyCustomers)
	putEnum(contractx.FieldSalesConsistency, out.SalesConsistency,
		contractx.ConsistencyConsistent, contractx.ConsistencyIrregular)

	var uses []string
	for _, use := range out.LoanUses {
		use = strings.ToLower(strings.TrimSpace(use))
		if extractx.KnownLoanUse(use) {
			uses = append(uses, use)
		} else {
			dropped = append(dropped, contractx.FieldLoanUses)
		}
	}
	if len(uses) > 0 {
		patch[contractx.FieldLoanUses] = uses
	}

	// Context-dependent fields keep the same stage scoping as the rules.
	switch stage {
	case contractx.StageE4B:
		putString(contractx.FieldWhatTheyLove, out.WhatTheyLove)
	case contractx.StageE6:
		putString(contractx.FieldChallenge, out.Challenge)
	case contractx.StageL5:
		putEnum(contractx.FieldReadiness, out.Readiness,
			contractx.ReadinessConfirmed, contractx.ReadinessMarginal)
	case contractx.StageOffer:
		putEnum(contractx.FieldDecision, out.Decision,
			contractx.DecisionAccept, contractx.DecisionReject)
	}

	return patch, dropped
}

func compileExtractorGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, llmFieldPatch], error) {
	// GoTemplate keeps the JSON schema braces in the prompt literal.
	template := einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{{.input}}"),
	)

	parser := schema.NewMessageJSONParser[llmFieldPatch](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, llmFieldPatch]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add extractor prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add extractor model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add extractor parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add extractor edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add extractor edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add extractor edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add extractor edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("extractor.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile extractor graph: %w", err)
	}
	return runner, nil
}
