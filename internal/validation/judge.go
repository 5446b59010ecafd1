package validation

import (
	"context"
	"fmt"
	"strings"

	"shipdoc/internal"
	"shipdoc/internal/llm"
)

const judgePrompt = `You check shipping paperwork for a B2B distributor.
An email names the company a shipment is for. A sales order names the billing (sold to) and delivery (ship to) parties.
Decide whether the email company plausibly refers to the same order. A delivery site, warehouse, contact person or
subsidiary that differs from the billing company is valid. A different, unrelated customer is not.
Return only a JSON object: {"valid": true|false, "confidence": "high"|"medium"|"low", "reason": "one sentence"}.`

type CompanyQuery struct {
	EmailCompany string
	CustomerName string
	SoldTo       internal.Address
	ShipTo       internal.Address
}

type CompanyJudgement struct {
	Valid      bool   `json:"valid"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// Accepted reports a valid judgement with high or medium confidence.
func (j CompanyJudgement) Accepted() bool {
	c := strings.ToLower(strings.TrimSpace(j.Confidence))
	return j.Valid && (c == "high" || c == "medium")
}

// CompanyJudge decides company matches the word heuristics reject.
type CompanyJudge interface {
	JudgeCompany(ctx context.Context, q CompanyQuery) (CompanyJudgement, error)
}

type LLMJudge struct {
	llm llm.Completer
}

func NewLLMJudge(c llm.Completer) *LLMJudge {
	return &LLMJudge{llm: c}
}

func (j *LLMJudge) JudgeCompany(ctx context.Context, q CompanyQuery) (CompanyJudgement, error) {
	var out CompanyJudgement
	user := fmt.Sprintf("Email company: %s\nSales order customer: %s\nSold to: %s (contact %s)\nShip to: %s (contact %s), %s",
		q.EmailCompany, q.CustomerName,
		q.SoldTo.CompanyName, q.SoldTo.ContactPerson,
		q.ShipTo.CompanyName, q.ShipTo.ContactPerson, q.ShipTo.City)
	if err := llm.Ask(ctx, j.llm, judgePrompt, user, &out); err != nil {
		return CompanyJudgement{}, err
	}
	return out, nil
}
