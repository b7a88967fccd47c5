package llm

import (
	"testing"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

func strptr(s string) *string { return &s }
func intptr(n int64) *int64   { return &n }

func TestSanitizeKeepsWellFormedFields(t *testing.T) {
	t.Parallel()

	patch, dropped := sanitize(llmFieldPatch{
		Location:         strptr("  Nairobi "),
		BusinessType:     strptr("shop"),
		MonthlySales:     intptr(130_000),
		SalesConsistency: strptr("Consistent"),
		LoanUses:         []string{"stock", "holiday", " EQUIPMENT "},
	}, contractx.StageB4)

	if patch[contractx.FieldLocation] != "Nairobi" {
		t.Fatalf("location = %v", patch[contractx.FieldLocation])
	}
	if patch[contractx.FieldMonthlySales] != int64(130_000) {
		t.Fatalf("monthly_sales = %v", patch[contractx.FieldMonthlySales])
	}
	if patch[contractx.FieldSalesConsistency] != contractx.ConsistencyConsistent {
		t.Fatalf("sales_consistency = %v", patch[contractx.FieldSalesConsistency])
	}

	uses, _ := patch[contractx.FieldLoanUses].([]string)
	if len(uses) != 2 || uses[0] != "stock" || uses[1] != "equipment" {
		t.Fatalf("loan_uses = %v, want unrecognized uses dropped", uses)
	}
	if len(dropped) != 1 || dropped[0] != contractx.FieldLoanUses {
		t.Fatalf("dropped = %v, want the rejected loan use reported", dropped)
	}
}

func TestSanitizeDropsMalformedValues(t *testing.T) {
	t.Parallel()

	patch, dropped := sanitize(llmFieldPatch{
		Location:         strptr("   "),
		MonthlySales:     intptr(-5),
		SalesConsistency: strptr("sometimes"),
		LoanUses:         []string{"holiday"},
	}, contractx.StageB4)

	if len(patch) != 0 {
		t.Fatalf("patch = %v, want everything dropped", patch)
	}
	if len(dropped) != 4 {
		t.Fatalf("dropped = %v, want all four rejects reported", dropped)
	}
}

func TestSanitizeScopesContextFieldsToTheirStage(t *testing.T) {
	t.Parallel()

	out := llmFieldPatch{
		WhatTheyLove: strptr("talking to customers"),
		Challenge:    strptr("slow days"),
		Readiness:    strptr("confirmed"),
		Decision:     strptr("accept"),
	}

	if patch, _ := sanitize(out, contractx.StageB1); len(patch) != 0 {
		t.Fatalf("patch at B1 = %v, want context fields suppressed", patch)
	}

	patch, _ := sanitize(out, contractx.StageL5)
	if patch[contractx.FieldReadiness] != contractx.ReadinessConfirmed {
		t.Fatalf("readiness = %v", patch[contractx.FieldReadiness])
	}
	if _, ok := patch[contractx.FieldDecision]; ok {
		t.Fatalf("decision must not survive outside OFFER")
	}

	patch, _ = sanitize(out, contractx.StageOffer)
	if patch[contractx.FieldDecision] != contractx.DecisionAccept {
		t.Fatalf("decision = %v", patch[contractx.FieldDecision])
	}
}
