// Package classify decides whether a candidate message plausibly contains a
// receipt. The heuristics are transparent scoring rules, not a trained model,
// so every decision is auditable and testable rule-by-rule.
package classify

import (
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Result is the classifier's verdict on one message.
type Result struct {
	Reason     string
	Confidence float64
	IsReceipt  bool
}

// maxBodyConfidence caps the body-keyword score so corroborating terms can
// never push a guess to certainty.
const maxBodyConfidence = 0.95

// subjectKeywords mark a subject line as receipt-like.
var subjectKeywords = []string{
	"receipt",
	"purchase",
	"order",
	"confirmation",
	"invoice",
	"payment",
	"transaction",
}

// senderTerms are commerce-related substrings checked against the sender
// address and domain.
var senderTerms = []string{
	"amazon",
	"ebay",
	"etsy",
	"walmart",
	"paypal",
	"stripe",
	"square",
	"shopify",
	"billing",
	"payments",
	"orders",
	"store",
	"shop",
	"checkout",
}

// bodyKeywords are receipt-content terms; three or more in the body push the
// message over the line.
var bodyKeywords = []string{
	"total",
	"subtotal",
	"tax",
	"item",
	"quantity",
	"price",
	"amount",
	"paid",
	"transaction",
	"thank you for your purchase",
}

// rule is one ordered heuristic. More specific and reliable signals run
// first; the first rule that fires decides the result.
type rule struct {
	name string
	eval func(msg *model.CandidateMessage) (Result, bool)
}

// Classifier applies the ordered rule chain to candidate messages.
type Classifier struct {
	rules []rule
}

// New creates a classifier with the default rule chain.
func New() *Classifier {
	return &Classifier{
		rules: []rule{
			{name: "subject keyword", eval: subjectRule},
			{name: "commerce sender", eval: senderRule},
			{name: "body keywords", eval: bodyRule},
		},
	}
}

// Classify runs the rule chain over one message. First match wins; a message
// that trips no rule is rejected at low confidence.
func (c *Classifier) Classify(msg *model.CandidateMessage) Result {
	for _, r := range c.rules {
		if result, ok := r.eval(msg); ok {
			return result
		}
	}
	return Result{
		IsReceipt:  false,
		Confidence: 0.2,
		Reason:     "no receipt signals in subject, sender, or body",
	}
}

func subjectRule(msg *model.CandidateMessage) (Result, bool) {
	subject := strings.ToLower(msg.Subject)
	for _, kw := range subjectKeywords {
		if strings.Contains(subject, kw) {
			return Result{
				IsReceipt:  true,
				Confidence: 0.8,
				Reason:     fmt.Sprintf("subject contains %q", kw),
			}, true
		}
	}
	return Result{}, false
}

func senderRule(msg *model.CandidateMessage) (Result, bool) {
	sender := strings.ToLower(msg.From)
	for _, term := range senderTerms {
		if strings.Contains(sender, term) {
			return Result{
				IsReceipt:  true,
				Confidence: 0.7,
				Reason:     fmt.Sprintf("sender matches commerce term %q", term),
			}, true
		}
	}
	return Result{}, false
}

func bodyRule(msg *model.CandidateMessage) (Result, bool) {
	body := strings.ToLower(msg.BodyText)
	if body == "" {
		body = strings.ToLower(msg.Snippet)
	}
	if body == "" {
		return Result{}, false
	}

	matches := 0
	for _, kw := range bodyKeywords {
		if strings.Contains(body, kw) {
			matches++
		}
	}
	if matches < 3 {
		return Result{}, false
	}

	confidence := 0.6 + 0.05*float64(matches)
	if confidence > maxBodyConfidence {
		confidence = maxBodyConfidence
	}
	return Result{
		IsReceipt:  true,
		Confidence: confidence,
		Reason:     fmt.Sprintf("body contains %d receipt terms", matches),
	}, true
}
