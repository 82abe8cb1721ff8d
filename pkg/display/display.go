// Package display holds the enum to display-string dictionaries for UI
// consumers and outbound events. Nothing in the scoring or scheduling
// engines reads these.
package display

import "github.com/PresidentAnderson/locate-connect-sub007/pkg/models"

var ClassificationStates = map[models.ClassificationState]string{
	models.ClassificationActive: "Active Investigation",
	models.ClassificationCold:   "Cold Case",
}

var ClassificationReasons = map[models.ClassificationReason]string{
	models.ReasonAutoClassified:     "Automatically Classified",
	models.ReasonManual:             "Manually Marked Cold",
	models.ReasonResourceConstraint: "Resource Constraints",
}

var ReviewFrequencies = map[models.ReviewFrequency]string{
	models.FrequencyQuarterly:  "Quarterly",
	models.FrequencySemiAnnual: "Semi-Annual",
	models.FrequencyAnnual:     "Annual",
}

var ReviewTypes = map[models.ReviewType]string{
	models.ReviewTypePeriodic:     "Periodic Review",
	models.ReviewTypeAnniversary:  "Anniversary Review",
	models.ReviewTypeTipTriggered: "Tip-Triggered Review",
	models.ReviewTypeSpecial:      "Special Review",
}

var ReviewStatuses = map[models.ReviewStatus]string{
	models.ReviewPending:    "Pending",
	models.ReviewInProgress: "In Progress",
	models.ReviewCompleted:  "Completed",
	models.ReviewDeferred:   "Deferred",
}

var ChecklistItemStatuses = map[models.ChecklistItemStatus]string{
	models.ChecklistPending:       "Pending",
	models.ChecklistInProgress:    "In Progress",
	models.ChecklistCompleted:     "Completed",
	models.ChecklistSkipped:       "Skipped",
	models.ChecklistNotApplicable: "Not Applicable",
}

var DNAStatuses = map[models.DNAStatus]string{
	models.DNANotSubmitted:        "Not Submitted",
	models.DNAPendingSubmission:   "Pending Submission",
	models.DNASubmitted:           "Submitted to Lab",
	models.DNAMatchFound:          "Match Found",
	models.DNANoMatch:             "No Match",
	models.DNAResubmissionPending: "Resubmission Pending",
	models.DNAResubmitted:         "Resubmitted",
}

var EvidenceSignificances = map[models.EvidenceSignificance]string{
	models.SignificanceCritical: "Critical",
	models.SignificanceHigh:     "High",
	models.SignificanceMedium:   "Medium",
	models.SignificanceLow:      "Low",
}

var ConfidenceBuckets = map[models.ConfidenceBucket]string{
	models.ConfidenceLow:      "Low Confidence",
	models.ConfidenceMedium:   "Medium Confidence",
	models.ConfidenceHigh:     "High Confidence",
	models.ConfidenceVeryHigh: "Very High Confidence",
}

var MatchReviewStatuses = map[models.MatchReviewStatus]string{
	models.MatchUnreviewed: "Awaiting Review",
	models.MatchConfirmed:  "Confirmed",
	models.MatchPossible:   "Possible",
	models.MatchRejected:   "Rejected",
}

var CampaignTypes = map[models.CampaignType]string{
	models.CampaignAnniversary:   "Anniversary Campaign",
	models.CampaignRenewedAppeal: "Renewed Appeal",
	models.CampaignTargeted:      "Targeted Outreach",
}

var CampaignStatuses = map[models.CampaignStatus]string{
	models.CampaignDraft:     "Draft",
	models.CampaignScheduled: "Scheduled",
	models.CampaignActive:    "Active",
	models.CampaignCompleted: "Completed",
	models.CampaignCancelled: "Cancelled",
}

var TriggerTypes = map[models.TriggerType]string{
	models.TriggerNewEvidence:  "New Evidence",
	models.TriggerDNAMatch:     "DNA Match",
	models.TriggerPatternMatch: "Pattern Match",
	models.TriggerAnniversary:  "Anniversary",
	models.TriggerTip:          "Tip Received",
	models.TriggerCampaign:     "Campaign Result",
	models.TriggerManual:       "Manual",
}

var FamilyContactStates = map[models.FamilyContactState]string{
	models.FamilyContactCurrent: "Contact Current",
	models.FamilyContactStale:   "Contact Stale",
	models.FamilyContactLost:    "Contact Lost",
}

// Label returns the display string for a value, falling back to the raw value
func Label[K ~string](dict map[K]string, v K) string {
	if label, ok := dict[v]; ok {
		return label
	}
	return string(v)
}
