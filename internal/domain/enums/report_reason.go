package enums

import "strings"

// ReportReason categorizes an optional abuse report attached to a block.
type ReportReason string

const (
	ReportReasonSpam    ReportReason = "spam"
	ReportReasonFake    ReportReason = "fake"
	ReportReasonAbusive ReportReason = "abusive"
	ReportReasonOther   ReportReason = "other"
)

func ParseReportReason(value string) (ReportReason, bool) {
	reason := ReportReason(strings.ToLower(strings.TrimSpace(value)))
	switch reason {
	case ReportReasonSpam, ReportReasonFake, ReportReasonAbusive, ReportReasonOther:
		return reason, true
	default:
		return "", false
	}
}
