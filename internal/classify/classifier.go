package classify

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/logging"
)

// ReplyPolicy selects how the Replied flag is derived.
type ReplyPolicy int

const (
	// PolicyLastReply marks a thread replied when the latest message is an
	// outbound reply to an inbound opener. This is the default.
	PolicyLastReply ReplyPolicy = iota

	// PolicyConversation marks any multi-message thread with at least one
	// outbound message as replied, regardless of ordering.
	PolicyConversation
)

// submissionKeywords flag attachment filenames that look like candidate
// submission documents. Matching is on whole filename tokens, so
// "John_Resume.pdf" matches but "NonResume.docx" does not.
var submissionKeywords = []string{"resume", "cv", "profile", "candidate", "submission"}

// rtrSubjectPhrases mark a thread as right-to-represent by subject alone.
var rtrSubjectPhrases = []string{"right to represent", "right-to-represent"}

// RTRLabelNames are the user label names that mark right-to-represent
// threads, compared case-insensitively.
var RTRLabelNames = []string{"right to represent", "rtr"}

// MetadataFetcher recovers headers for messages the provider returned
// without a populated payload.
type MetadataFetcher interface {
	GetMessageMetadata(ctx context.Context, messageID string) (*gmailapi.Message, error)
}

// Classifier derives a classified Thread from a raw provider thread.
// The zero value is usable; all fields are optional tuning.
type Classifier struct {
	// Policy selects the reply-detection rule.
	Policy ReplyPolicy

	// RTRLabelIDs is the set of label IDs that mark the right-to-represent
	// category, typically built with RTRLabelSet.
	RTRLabelIDs map[string]bool

	// Metadata, when set, is used to re-fetch headers for a primary message
	// that arrived without them.
	Metadata MetadataFetcher

	Log *slog.Logger
}

func (c *Classifier) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// RTRLabelSet resolves the mailbox's label list to the set of label IDs
// whose names mark the right-to-represent category.
func RTRLabelSet(labels []*gmailapi.Label) map[string]bool {
	set := make(map[string]bool)
	for _, l := range labels {
		name := strings.ToLower(strings.TrimSpace(l.Name))
		for _, want := range RTRLabelNames {
			if name == want {
				set[l.Id] = true
			}
		}
	}
	return set
}

// Classify derives the classified record for one thread. Messages are
// ordered by the provider's internal timestamp; the primary message is the
// earliest inbound one (falling back to the thread opener when every
// message is outbound). Returns nil for threads with no messages.
func (c *Classifier) Classify(ctx context.Context, t *gmailapi.Thread) *Thread {
	if t == nil {
		return nil
	}

	msgs := make([]*gmailapi.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].InternalDate < msgs[j].InternalDate
	})

	latest := msgs[len(msgs)-1]
	primary := c.primaryMessage(ctx, t.Id, msgs)

	rtr := c.isRightToRepresent(msgs)
	hasDoc, filenames := submissionAttachments(msgs)

	counterpartyHeader := "From"
	if gmail.HasLabel(primary, gmail.LabelSent) {
		counterpartyHeader = "To"
	}
	name, address := ParseCounterparty(gmail.HeaderValue(primary, counterpartyHeader))

	subject := gmail.HeaderValue(primary, "Subject")

	return &Thread{
		ID:                  t.Id,
		SortEpoch:           latest.InternalDate,
		DisplayTimestamp:    time.UnixMilli(latest.InternalDate).Local().Format(time.RFC3339),
		CounterpartyName:    name,
		CounterpartyAddress: address,
		SubjectDisplay:      DisplaySubject(subject, rtr),
		SubjectOriginal:     subject,
		Summary:             latest.Snippet,
		Flags: Flags{
			HasSubmissionDoc: hasDoc,
			RightToRepresent: rtr,
			Sent:             anyWithLabel(msgs, gmail.LabelSent),
			Inbox:            anyWithLabel(msgs, gmail.LabelInbox),
			Replied:          c.isReplied(msgs),
		},
		AttachmentFilenames: filenames,
	}
}

// primaryMessage picks the earliest non-outbound message, falling back to
// the opener. When the pick has no headers and a metadata fetcher is
// configured, headers are recovered with a targeted re-fetch.
func (c *Classifier) primaryMessage(ctx context.Context, threadID string, msgs []*gmailapi.Message) *gmailapi.Message {
	primary := msgs[0]
	for _, m := range msgs {
		if !gmail.HasLabel(m, gmail.LabelSent) {
			primary = m
			break
		}
	}

	if gmail.HasHeaders(primary) || c.Metadata == nil {
		return primary
	}

	log := c.logger().With(logging.Thread(threadID), logging.Message(primary.Id))
	log.Debug("recovering missing message headers")

	m, err := c.Metadata.GetMessageMetadata(ctx, primary.Id)
	if err != nil || !gmail.HasHeaders(m) {
		log.Warn("header recovery failed, classifying without headers", logging.Err(err))
		return primary
	}

	if m.InternalDate == 0 {
		m.InternalDate = primary.InternalDate
	}
	if len(m.LabelIds) == 0 {
		m.LabelIds = primary.LabelIds
	}
	log.Debug("recovered message headers")
	return m
}

func (c *Classifier) isRightToRepresent(msgs []*gmailapi.Message) bool {
	for _, m := range msgs {
		subject := strings.ToLower(gmail.HeaderValue(m, "Subject"))
		for _, phrase := range rtrSubjectPhrases {
			if strings.Contains(subject, phrase) {
				return true
			}
		}
		for _, id := range m.LabelIds {
			if c.RTRLabelIDs[id] {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) isReplied(msgs []*gmailapi.Message) bool {
	switch c.Policy {
	case PolicyConversation:
		return len(msgs) > 1 && anyWithLabel(msgs, gmail.LabelSent)
	default:
		return len(msgs) > 1 &&
			!gmail.HasLabel(msgs[0], gmail.LabelSent) &&
			gmail.HasLabel(msgs[len(msgs)-1], gmail.LabelSent)
	}
}

func anyWithLabel(msgs []*gmailapi.Message, label string) bool {
	for _, m := range msgs {
		if gmail.HasLabel(m, label) {
			return true
		}
	}
	return false
}

// submissionAttachments scans every attachment filename in the thread and
// returns whether any looks like a submission document, plus the sorted,
// deduplicated set of matching filenames.
func submissionAttachments(msgs []*gmailapi.Message) (bool, []string) {
	set := make(map[string]struct{})
	for _, m := range msgs {
		for _, filename := range gmail.AttachmentFilenames(m) {
			if filenameOfInterest(filename) {
				set[filename] = struct{}{}
			}
		}
	}

	filenames := make([]string, 0, len(set))
	for f := range set {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)
	return len(filenames) > 0, filenames
}

// filenameOfInterest matches submission keywords against whole tokens of
// the filename, split on non-alphanumeric runes.
func filenameOfInterest(filename string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(filename), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		for _, keyword := range submissionKeywords {
			if token == keyword {
				return true
			}
		}
	}
	return false
}
