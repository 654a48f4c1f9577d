package classify

import (
	"github.com/talentwire/mailscope/internal/enrich"
)

// Flags are the independent classification dimensions derived for a thread.
// JSON names follow the reporting wire contract.
type Flags struct {
	// HasSubmissionDoc is set when any message in the thread carries an
	// attachment whose filename looks like a candidate submission.
	HasSubmissionDoc bool `json:"hasAttachmentOfInterest"`

	// RightToRepresent marks the domain-specific special category.
	RightToRepresent bool `json:"isSpecialCategory"`

	Sent    bool `json:"isSent"`
	Inbox   bool `json:"isInbox"`
	Replied bool `json:"isReplied"`
}

// Thread is the classified record emitted for one conversation thread.
type Thread struct {
	ID string `json:"id"`

	// SortEpoch is the provider's internal timestamp (epoch milliseconds)
	// of the thread's latest message. It is the only value trusted for
	// ordering; Date headers are advisory and may be absent or spoofed.
	SortEpoch int64 `json:"sortEpoch"`

	DisplayTimestamp string `json:"displayTimestamp"`

	CounterpartyName    string `json:"counterpartyName"`
	CounterpartyAddress string `json:"counterpartyAddress"`

	SubjectDisplay  string `json:"subjectDisplay"`
	SubjectOriginal string `json:"subjectOriginal"`

	// Summary is the provider snippet of the latest message.
	Summary string `json:"summary"`

	Flags Flags `json:"flags"`

	// AttachmentFilenames is the deduplicated, sorted set of submission
	// attachment filenames found anywhere in the thread.
	AttachmentFilenames []string `json:"attachmentFilenames"`

	// Enriched holds structured fields extracted for right-to-represent
	// threads. Absent when extraction was not attempted or failed.
	Enriched *enrich.Fields `json:"enrichedFields,omitempty"`
}
