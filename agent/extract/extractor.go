// Package extract implements stage-scoped, best-effort field extraction from
// raw customer messages. Extraction is deterministic: the same stage, message
// and attachments always yield the same patch, and a failed parse simply
// omits the field rather than failing the turn.
package extract

import (
	"context"
	"strings"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// RuleExtractor is the default deterministic extractor. Global parsers run at
// every stage so that, say, a sales figure volunteered during B1 is captured
// and B4 never has to re-ask. Context-dependent fields (what they love, the
// challenge, readiness, the offer decision) only parse at their own stage,
// since the same words mean different things elsewhere in the conversation.
type RuleExtractor struct{}

var _ contractx.Extractor = RuleExtractor{}

func NewRuleExtractor() RuleExtractor {
	return RuleExtractor{}
}

func (RuleExtractor) Extract(
	ctx context.Context,
	stage contractx.Stage,
	message string,
	attachments []contractx.Attachment,
) (contractx.FieldPatch, error) {
	patch := contractx.FieldPatch{}
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	// Global parsers.
	if refs := photoRefs(attachments); len(refs) > 0 {
		patch[contractx.FieldPhotoRef] = refs
	}
	if loc := parseLocation(message); loc != "" {
		patch[contractx.FieldLocation] = loc
	}
	if bt := parseBusinessType(lower); bt != "" {
		patch[contractx.FieldBusinessType] = bt
	}
	mergeSales(patch, lower)
	if uses := parseLoanUses(lower, stage); len(uses) > 0 {
		patch[contractx.FieldLoanUses] = uses
	}

	// Stage-scoped parsers.
	switch stage {
	case contractx.StageE4B:
		if love := parseWhatTheyLove(message, lower); love != "" {
			patch[contractx.FieldWhatTheyLove] = love
		}
	case contractx.StageE6:
		if challenge := parseChallenge(message, lower); challenge != "" {
			patch[contractx.FieldChallenge] = challenge
		}
	case contractx.StageL5:
		if readiness := parseReadiness(lower); readiness != "" {
			patch[contractx.FieldReadiness] = readiness
		}
	case contractx.StageOffer:
		if decision := parseDecision(lower); decision != "" {
			patch[contractx.FieldDecision] = decision
		}
	}

	return patch, nil
}

func photoRefs(attachments []contractx.Attachment) []string {
	if len(attachments) == 0 {
		return nil
	}
	refs := make([]string, 0, len(attachments))
	for _, a := range attachments {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			continue
		}
		refs = append(refs, id)
	}
	return refs
}
