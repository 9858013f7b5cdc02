package usecase

import (
	"fmt"
	"strings"

	"github.com/omics-os/leadengine/internal/entity"
)

// ApprovalPolicy decides whether an attempt needs a human gate before it may
// be queued. Pure predicate over attempt content, testable on its own.
type ApprovalPolicy func(attempt *entity.OutreachAttempt, contactName string) (bool, string)

var sensitiveKeywords = []string{"phi", "clinical", "patient", "identifiable"}

var seniorTitles = []string{"ceo", "cto", "director", "vp", "head of", "chief", "president"}

// DefaultApprovalPolicy flags sensitive content in subject/body and senior
// recipients. Known to both over- and under-trigger; swap the policy rather
// than editing call sites.
func DefaultApprovalPolicy(attempt *entity.OutreachAttempt, contactName string) (bool, string) {
	content := strings.ToLower(attempt.Subject + " " + attempt.Body)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(content, kw) {
			return true, fmt.Sprintf("sensitive keyword %q in content", kw)
		}
	}

	name := strings.ToLower(contactName)
	for _, title := range seniorTitles {
		if title != "" && strings.Contains(name, title) {
			return true, fmt.Sprintf("recipient appears senior (%q)", title)
		}
	}

	return false, ""
}
