package detection

import (
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// BECRoleStrategy detects Business Email Compromise attempts targeting
// high-value roles. Supports both English and French (France-compliant)
// detection patterns.
//
// There is no per-user directory in this archive the way the teacher's
// provider APIs supplied a User.Role field — role targeting is instead
// inferred from the recipient addr-spec local-parts captured at ingest
// (e.g. "cfo@acme.com", "payroll@acme.com").
type BECRoleStrategy struct{}

func NewBECRoleStrategy() *BECRoleStrategy {
	return &BECRoleStrategy{}
}

func (s *BECRoleStrategy) Name() string {
	return "BEC Role Targeting"
}

func (s *BECRoleStrategy) Detect(in Input, context *Context) *domain.Detection {
	hints := recipientRoleHints(in.RecipientEmails)
	if len(hints) == 0 {
		return nil
	}

	senderDomain := in.SenderDomain
	isExternal := !isInternalDomain(senderDomain, context.InternalDomains)

	// Internal emails to executives are normal business communication.
	if !isExternal {
		return nil
	}

	cSuiteRoles := []string{
		"ceo", "cfo", "cto", "coo", "president", "chief", "vp",
		"pdg", "dg", "daf", "dsi", "directeur", "direction",
	}
	financeRoles := []string{
		"finance", "accounting", "treasurer", "controller", "payroll",
		"comptabilite", "comptable", "tresorier", "tresorerie", "paie",
	}
	hrRoles := []string{
		"hr", "humanresources", "recruiting", "talent",
		"drh", "rh", "recrutement",
	}

	var role string
	isCsuite, isFinance, isHR := false, false, false
	for _, hint := range hints {
		if containsAny(hint, cSuiteRoles) {
			isCsuite, role = true, hint
		}
		if containsAny(hint, financeRoles) {
			isFinance, role = true, hint
		}
		if containsAny(hint, hrRoles) {
			isHR, role = true, hint
		}
	}

	if !isCsuite && !isFinance && !isHR {
		return nil
	}

	text := strings.ToLower(in.Subject + " " + in.OCRText)

	urgencyKeywords := []string{
		"urgent", "immediately", "asap", "today", "right away", "now",
		"immediatement", "rapidement", "aujourd'hui", "sans delai", "en urgence",
	}
	wireTransferKeywords := []string{
		"wire transfer", "payment", "invoice", "bank account", "routing", "iban", "swift",
		"virement", "paiement", "facture", "compte bancaire", "rib", "coordonnees bancaires",
	}
	payrollDocKeywords := []string{
		"tax form", "payroll",
		"bulletin de paie", "bulletin de salaire", "fiche de paie",
		"declaration sociale nominative", "dsn", "attestation fiscale",
	}

	hasUrgency := containsAny(text, urgencyKeywords)
	hasWireTransfer := containsAny(text, wireTransferKeywords)
	hasPayrollDoc := containsAny(text, payrollDocKeywords)

	// CRITICAL: C-suite + urgent wire transfer = classic CEO fraud.
	if isCsuite && hasUrgency && hasWireTransfer {
		return &domain.Detection{
			Type:       "BEC_CSUITE_TARGETING",
			Confidence: 0.90,
			Evidence: fmt.Sprintf(
				"Executive-role recipient (%s@) + external sender + urgent wire transfer request (potential CEO fraud)",
				role,
			),
		}
	}

	// HIGH: finance + wire transfer = invoice fraud attempt.
	if isFinance && hasWireTransfer {
		return &domain.Detection{
			Type:       "BEC_FINANCE_TARGETING",
			Confidence: 0.85,
			Evidence: fmt.Sprintf(
				"Finance-role recipient (%s@) + external sender + payment/wire transfer language (potential invoice fraud)",
				role,
			),
		}
	}

	// HIGH: HR + payroll document request = payroll/tax document
	// phishing.
	if isHR && hasPayrollDoc {
		return &domain.Detection{
			Type:       "BEC_HR_PAYROLL_SCAM",
			Confidence: 0.80,
			Evidence: fmt.Sprintf(
				"HR-role recipient (%s@) + external sender + payroll/tax document request",
				role,
			),
		}
	}

	// MEDIUM: generic high-value target with urgency.
	if (isCsuite || isFinance || isHR) && hasUrgency {
		return &domain.Detection{
			Type:       "BEC_HIGH_VALUE_TARGET",
			Confidence: 0.70,
			Evidence: fmt.Sprintf(
				"High-value-role recipient (%s@) + external sender + urgent language",
				role,
			),
		}
	}

	return nil
}
