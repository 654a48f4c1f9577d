package classify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/talentwire/mailscope/internal/gmail"
)

func msg(id string, internalDate int64, labels []string, headers map[string]string) *gmailapi.Message {
	m := &gmailapi.Message{
		Id:           id,
		InternalDate: internalDate,
		LabelIds:     labels,
		Payload:      &gmailapi.MessagePart{},
	}
	for k, v := range headers {
		m.Payload.Headers = append(m.Payload.Headers, &gmailapi.MessagePartHeader{Name: k, Value: v})
	}
	return m
}

func withAttachment(m *gmailapi.Message, filenames ...string) *gmailapi.Message {
	for _, f := range filenames {
		m.Payload.Parts = append(m.Payload.Parts, &gmailapi.MessagePart{
			Filename: f,
			MimeType: "application/octet-stream",
		})
	}
	return m
}

func TestClassifyBasicInboundThread(t *testing.T) {
	c := &Classifier{}
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			msg("m1", 1000, []string{gmail.LabelInbox}, map[string]string{
				"From":    `"Jane Recruiter" <jane@agency.example>`,
				"Subject": "Senior Engineer | Remote",
			}),
		},
	}

	got := c.Classify(context.Background(), thread)
	require.NotNil(t, got)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, int64(1000), got.SortEpoch)
	assert.Equal(t, "Jane Recruiter", got.CounterpartyName)
	assert.Equal(t, "jane@agency.example", got.CounterpartyAddress)
	assert.Equal(t, "Senior Engineer", got.SubjectDisplay)
	assert.Equal(t, "Senior Engineer | Remote", got.SubjectOriginal)
	assert.True(t, got.Flags.Inbox)
	assert.False(t, got.Flags.Sent)
	assert.False(t, got.Flags.Replied)
	assert.False(t, got.Flags.RightToRepresent)
}

func TestClassifyEmptyThread(t *testing.T) {
	c := &Classifier{}
	assert.Nil(t, c.Classify(context.Background(), nil))
	assert.Nil(t, c.Classify(context.Background(), &gmailapi.Thread{Id: "t1"}))
}

func TestClassifyPrimaryMessageSelection(t *testing.T) {
	c := &Classifier{}

	// Outbound opener followed by an inbound reply: the inbound message is
	// primary, so the counterparty comes from its From header.
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			msg("m2", 2000, []string{gmail.LabelInbox}, map[string]string{
				"From":    "candidate@mail.example",
				"Subject": "Re: Intro",
			}),
			msg("m1", 1000, []string{gmail.LabelSent}, map[string]string{
				"From":    "me@agency.example",
				"To":      "candidate@mail.example",
				"Subject": "Intro",
			}),
		},
	}

	got := c.Classify(context.Background(), thread)
	require.NotNil(t, got)
	assert.Equal(t, "candidate@mail.example", got.CounterpartyAddress)
	// Subject comes from the primary message, reply prefix stripped.
	assert.Equal(t, "Intro", got.SubjectDisplay)
}

func TestClassifyAllOutboundThread(t *testing.T) {
	c := &Classifier{}
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			msg("m1", 1000, []string{gmail.LabelSent}, map[string]string{
				"From":    "me@agency.example",
				"To":      `"John Candidate" <john@mail.example>`,
				"Subject": "Checking in",
			}),
		},
	}

	got := c.Classify(context.Background(), thread)
	require.NotNil(t, got)
	// With no inbound message the opener is primary and the counterparty
	// is read from To instead of From.
	assert.Equal(t, "John Candidate", got.CounterpartyName)
	assert.Equal(t, "john@mail.example", got.CounterpartyAddress)
	assert.True(t, got.Flags.Sent)
	assert.False(t, got.Flags.Inbox)
}

func TestClassifyReplied(t *testing.T) {
	inbound := func(id string, ts int64) *gmailapi.Message {
		return msg(id, ts, []string{gmail.LabelInbox}, map[string]string{"From": "a@b.example"})
	}
	outbound := func(id string, ts int64) *gmailapi.Message {
		return msg(id, ts, []string{gmail.LabelSent}, map[string]string{"From": "me@agency.example"})
	}

	tests := []struct {
		name   string
		policy ReplyPolicy
		msgs   []*gmailapi.Message
		want   bool
	}{
		{
			name:   "inbound then outbound reply",
			policy: PolicyLastReply,
			msgs:   []*gmailapi.Message{inbound("m1", 1000), outbound("m2", 2000)},
			want:   true,
		},
		{
			name:   "single inbound message",
			policy: PolicyLastReply,
			msgs:   []*gmailapi.Message{inbound("m1", 1000)},
			want:   false,
		},
		{
			name:   "outbound opener with inbound reply",
			policy: PolicyLastReply,
			msgs:   []*gmailapi.Message{outbound("m1", 1000), inbound("m2", 2000)},
			want:   false,
		},
		{
			name:   "inbound reply after outbound keeps flag off",
			policy: PolicyLastReply,
			msgs:   []*gmailapi.Message{inbound("m1", 1000), outbound("m2", 2000), inbound("m3", 3000)},
			want:   false,
		},
		{
			name:   "conversation policy counts any outbound",
			policy: PolicyConversation,
			msgs:   []*gmailapi.Message{outbound("m1", 1000), inbound("m2", 2000)},
			want:   true,
		},
		{
			name:   "conversation policy needs more than one message",
			policy: PolicyConversation,
			msgs:   []*gmailapi.Message{outbound("m1", 1000)},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{Policy: tt.policy}
			got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: tt.msgs})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Flags.Replied)
		})
	}
}

func TestClassifySortsMessagesByInternalDate(t *testing.T) {
	c := &Classifier{}
	// Provider returns messages out of order; the latest by internal
	// timestamp still drives sortEpoch and summary.
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			func() *gmailapi.Message {
				m := msg("m2", 3000, []string{gmail.LabelSent}, nil)
				m.Snippet = "latest snippet"
				return m
			}(),
			msg("m1", 1000, []string{gmail.LabelInbox}, map[string]string{"From": "a@b.example"}),
		},
	}

	got := c.Classify(context.Background(), thread)
	require.NotNil(t, got)
	assert.Equal(t, int64(3000), got.SortEpoch)
	assert.Equal(t, "latest snippet", got.Summary)
	assert.True(t, got.Flags.Replied)
}

func TestClassifySubmissionAttachments(t *testing.T) {
	tests := []struct {
		name      string
		filenames []string
		wantFlag  bool
		wantFiles []string
	}{
		{
			name:      "resume token matches",
			filenames: []string{"John_Resume.pdf"},
			wantFlag:  true,
			wantFiles: []string{"John_Resume.pdf"},
		},
		{
			name:      "keyword inside a larger word does not match",
			filenames: []string{"NonResume.docx"},
			wantFlag:  false,
			wantFiles: []string{},
		},
		{
			name:      "cv and candidate tokens match",
			filenames: []string{"jane-cv.pdf", "candidate.profile.docx", "rates.xlsx"},
			wantFlag:  true,
			wantFiles: []string{"candidate.profile.docx", "jane-cv.pdf"},
		},
		{
			name:      "case insensitive",
			filenames: []string{"SUBMISSION_FORM.PDF"},
			wantFlag:  true,
			wantFiles: []string{"SUBMISSION_FORM.PDF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{}
			m := withAttachment(msg("m1", 1000, []string{gmail.LabelInbox}, nil), tt.filenames...)
			got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{m}})
			require.NotNil(t, got)
			assert.Equal(t, tt.wantFlag, got.Flags.HasSubmissionDoc)
			assert.Equal(t, tt.wantFiles, got.AttachmentFilenames)
		})
	}
}

func TestClassifyAttachmentDeduplication(t *testing.T) {
	c := &Classifier{}
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			withAttachment(msg("m1", 1000, []string{gmail.LabelInbox}, nil), "John_Resume.pdf"),
			withAttachment(msg("m2", 2000, []string{gmail.LabelSent}, nil), "John_Resume.pdf"),
		},
	}

	got := c.Classify(context.Background(), thread)
	require.NotNil(t, got)
	assert.Equal(t, []string{"John_Resume.pdf"}, got.AttachmentFilenames)
}

func TestClassifyRightToRepresent(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		labels   []string
		labelIDs map[string]bool
		want     bool
	}{
		{
			name:    "subject phrase",
			subject: "Right to Represent - John Doe",
			want:    true,
		},
		{
			name:    "hyphenated subject phrase",
			subject: "Your right-to-represent agreement",
			want:    true,
		},
		{
			name:     "matching label id",
			subject:  "Agreement attached",
			labels:   []string{gmail.LabelInbox, "Label_42"},
			labelIDs: map[string]bool{"Label_42": true},
			want:     true,
		},
		{
			name:    "neither subject nor label",
			subject: "Interview availability",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{RTRLabelIDs: tt.labelIDs}
			labels := tt.labels
			if labels == nil {
				labels = []string{gmail.LabelInbox}
			}
			m := msg("m1", 1000, labels, map[string]string{"Subject": tt.subject, "From": "a@b.example"})
			got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{m}})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Flags.RightToRepresent)
			if tt.want {
				assert.Equal(t, SubjectRightToRepresent, got.SubjectDisplay)
			}
		})
	}
}

func TestRTRLabelSet(t *testing.T) {
	labels := []*gmailapi.Label{
		{Id: "Label_1", Name: "Right To Represent"},
		{Id: "Label_2", Name: "RTR"},
		{Id: "Label_3", Name: "Recruiting"},
		{Id: "INBOX", Name: "INBOX"},
	}

	set := RTRLabelSet(labels)
	assert.Equal(t, map[string]bool{"Label_1": true, "Label_2": true}, set)
}

type fakeMetadataFetcher struct {
	msg *gmailapi.Message
	err error

	calls int
}

func (f *fakeMetadataFetcher) GetMessageMetadata(_ context.Context, _ string) (*gmailapi.Message, error) {
	f.calls++
	return f.msg, f.err
}

func TestClassifyHeaderRecovery(t *testing.T) {
	bare := &gmailapi.Message{Id: "m1", InternalDate: 1000, LabelIds: []string{gmail.LabelInbox}}

	t.Run("recovers headers from metadata fetch", func(t *testing.T) {
		fetcher := &fakeMetadataFetcher{
			msg: msg("m1", 0, nil, map[string]string{
				"From":    `"Jane Recruiter" <jane@agency.example>`,
				"Subject": "Senior Engineer",
			}),
		}
		var logBuf bytes.Buffer
		c := &Classifier{
			Metadata: fetcher,
			Log:      slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		}

		got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{bare}})
		require.NotNil(t, got)
		assert.Equal(t, 1, fetcher.calls)
		assert.Equal(t, "jane@agency.example", got.CounterpartyAddress)
		assert.Equal(t, "Senior Engineer", got.SubjectDisplay)
		// Labels carry over from the original stub.
		assert.True(t, got.Flags.Inbox)
		// Both the attempt and the outcome are logged.
		assert.Contains(t, logBuf.String(), "recovering missing message headers")
		assert.Contains(t, logBuf.String(), "recovered message headers")
	})

	t.Run("fetch failure degrades to empty fields", func(t *testing.T) {
		fetcher := &fakeMetadataFetcher{err: errors.New("boom")}
		c := &Classifier{Metadata: fetcher}

		got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{bare}})
		require.NotNil(t, got)
		assert.Empty(t, got.CounterpartyAddress)
		assert.Empty(t, got.SubjectOriginal)
	})

	t.Run("no fetch when headers present", func(t *testing.T) {
		fetcher := &fakeMetadataFetcher{}
		c := &Classifier{Metadata: fetcher}
		m := msg("m1", 1000, []string{gmail.LabelInbox}, map[string]string{"From": "a@b.example"})

		got := c.Classify(context.Background(), &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{m}})
		require.NotNil(t, got)
		assert.Zero(t, fetcher.calls)
	})
}

func TestClassifyDeterministic(t *testing.T) {
	c := &Classifier{}
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			withAttachment(msg("m1", 1000, []string{gmail.LabelInbox}, map[string]string{
				"From":    `"Jane" <jane@agency.example>`,
				"Subject": "Fwd: Staff Engineer | NYC",
			}), "resume.pdf", "cv.docx"),
			msg("m2", 2000, []string{gmail.LabelSent}, map[string]string{"From": "me@agency.example"}),
		},
	}

	first := c.Classify(context.Background(), thread)
	second := c.Classify(context.Background(), thread)
	assert.Equal(t, fmt.Sprintf("%+v", first), fmt.Sprintf("%+v", second))
}

func TestDisplaySubject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		rtr  bool
		want string
	}{
		{name: "pipe separator", raw: "Senior Engineer | Remote", want: "Senior Engineer"},
		{name: "forward prefix stripped", raw: "Fwd: Senior Engineer | Remote", want: "Senior Engineer"},
		{name: "stacked prefixes", raw: "Re: Fwd: Staff Engineer - NYC", want: "Staff Engineer"},
		{name: "german reply prefix", raw: "Aw: Position besetzt", want: "Position besetzt"},
		{name: "colon separator", raw: "Urgent: Backend Role", want: "Urgent"},
		{name: "no separator", raw: "Interview availability", want: "Interview availability"},
		{name: "empty prefix segment falls through", raw: "| Remote only", want: "| Remote only"},
		{
			name: "overlong prefix segment falls through",
			raw:  "This is a very long description of a position that keeps going on | Remote",
			want: "This is a very long description of a position that keeps going on | Remote",
		},
		{name: "rtr overrides everything", raw: "Re: something else", rtr: true, want: "Right to Represent"},
		{name: "empty subject", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplaySubject(tt.raw, tt.rtr))
		})
	}
}

func TestParseCounterparty(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantAddr string
	}{
		{
			name:     "name and address",
			raw:      `"Jane Recruiter" <jane@agency.example>`,
			wantName: "Jane Recruiter",
			wantAddr: "jane@agency.example",
		},
		{
			name:     "unquoted name",
			raw:      "Jane Recruiter <jane@agency.example>",
			wantName: "Jane Recruiter",
			wantAddr: "jane@agency.example",
		},
		{
			name:     "bare address",
			raw:      "jane@agency.example",
			wantName: "jane@agency.example",
			wantAddr: "jane@agency.example",
		},
		{
			name:     "bracket only",
			raw:      "<jane@agency.example>",
			wantName: "jane@agency.example",
			wantAddr: "jane@agency.example",
		},
		{
			name:     "malformed with bracket",
			raw:      `Jane @ Agency <jane@agency.example>`,
			wantName: "Jane @ Agency",
			wantAddr: "jane@agency.example",
		},
		{name: "empty", raw: "", wantName: "", wantAddr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, addr := ParseCounterparty(tt.raw)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantAddr, addr)
		})
	}
}
