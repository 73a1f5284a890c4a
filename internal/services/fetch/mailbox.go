package fetch

import (
	"context"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// resultMarkers flag announcement mails carrying quarterly numbers.
var resultMarkers = []string{
	"results",
	"financial results",
	"quarterly results",
	"earnings release",
	"press release",
}

// MailboxFetcher reads company announcements from an IMAP mailbox.
// Investor-relations distribution lists mail out result PDFs and call
// transcripts; subscribing the pipeline's mailbox to them gives a
// source that works when scraping does not.
type MailboxFetcher struct {
	config common.IMAPConfig
	logger arbor.ILogger
}

// NewMailboxFetcher wires the mailbox source.
func NewMailboxFetcher(config common.IMAPConfig, logger arbor.ILogger) *MailboxFetcher {
	return &MailboxFetcher{config: config, logger: logger}
}

// Fetch scans the configured folder for messages about the ticker and
// extracts documents of the requested kind: PDF attachments become
// reports, transcript-looking bodies and attachments become
// transcripts.
func (f *MailboxFetcher) Fetch(ctx context.Context, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	if f.config.Server == "" || f.config.Username == "" {
		return nil, fmt.Errorf("mailbox source is not configured")
	}

	c, err := client.DialTLS(f.config.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mailbox %s: %w", f.config.Server, err)
	}
	defer c.Logout()

	if err := c.Login(f.config.Username, f.config.Password); err != nil {
		return nil, fmt.Errorf("mailbox login failed: %w", err)
	}

	folder := f.config.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := c.Select(folder, true); err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{"Subject": {req.Ticker}}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("mailbox search failed: %w", err)
	}
	if len(seqNums) == 0 {
		f.logger.Debug().Str("ticker", req.Ticker).Msg("No announcement mail for ticker")
		return nil, nil
	}

	// Newest messages first, bounded by the configured scan limit.
	limit := f.config.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(seqNums) > limit {
		seqNums = seqNums[len(seqNums)-limit:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	var docs []*models.SourceDocument
	for msg := range messages {
		if msg == nil {
			continue
		}
		extracted, err := f.extractDocuments(msg, section, req)
		if err != nil {
			f.logger.Warn().Err(err).Int64("seq", int64(msg.SeqNum)).Msg("Failed to parse announcement mail")
			continue
		}
		docs = append(docs, extracted...)
	}
	if err := <-done; err != nil {
		return docs, fmt.Errorf("mailbox fetch failed: %w", err)
	}

	// Newest arrived last; cap to the run's depth with the freshest
	// messages winning.
	if len(docs) > req.Quarters {
		docs = docs[len(docs)-req.Quarters:]
	}

	f.logger.Info().
		Str("ticker", req.Ticker).
		Str("kind", req.Kind).
		Int("messages", len(seqNums)).
		Int("documents", len(docs)).
		Msg("Gathered documents from announcement mailbox")
	return docs, nil
}

// extractDocuments pulls documents of the requested kind out of one
// message.
func (f *MailboxFetcher) extractDocuments(msg *imap.Message, section *imap.BodySectionName, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	subject := ""
	if msg.Envelope != nil {
		subject = msg.Envelope.Subject
	}
	if !strings.Contains(strings.ToUpper(subject), strings.ToUpper(req.Ticker)) {
		return nil, nil
	}

	subjectKind := classifySubject(subject)

	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("message %d has no body section", msg.SeqNum)
	}
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	var docs []*models.SourceDocument
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return docs, fmt.Errorf("failed to read message part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
				continue
			}
			kind := subjectKind
			if looksLikeTranscript(filename) {
				kind = models.DocumentKindTranscript
			}
			if kind != req.Kind {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			pseudoURL := fmt.Sprintf("imap://%s/%d/%s", f.config.Server, msg.SeqNum, filename)
			doc := buildDocument(kind, SourceMailbox, pseudoURL, body, "application/pdf", subject+" "+filename)
			docs = append(docs, doc)

		case *mail.InlineHeader:
			if req.Kind != models.DocumentKindTranscript {
				continue
			}
			if subjectKind != models.DocumentKindTranscript && !looksLikeTranscript(subject) {
				continue
			}
			contentType, _, _ := h.ContentType()
			if !strings.HasPrefix(contentType, "text/") {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			text := string(body)
			if strings.HasPrefix(contentType, "text/html") {
				text = htmlToText(text)
			} else if strings.Contains(contentType, "markdown") {
				text = markdownToText(body)
			} else {
				text = cleanWhitespace(text)
			}
			if len(text) < minTranscriptChars {
				continue
			}
			pseudoURL := fmt.Sprintf("imap://%s/%d/body", f.config.Server, msg.SeqNum)
			docs = append(docs, &models.SourceDocument{
				ID:         CacheKey(pseudoURL),
				Kind:       models.DocumentKindTranscript,
				Source:     SourceMailbox,
				SourceURL:  pseudoURL,
				Text:       text,
				Content:    body,
				FormatHint: models.FormatText,
				Period:     detectPeriod(subject, firstChars(text, 2000)),
			})
		}
	}

	return docs, nil
}

// classifySubject decides what kind of material a subject line
// announces. Transcript markers win over result markers: "Q3 results
// call transcript" is a transcript.
func classifySubject(subject string) string {
	if looksLikeTranscript(subject) {
		return models.DocumentKindTranscript
	}
	lower := strings.ToLower(subject)
	for _, marker := range resultMarkers {
		if strings.Contains(lower, marker) {
			return models.DocumentKindReport
		}
	}
	return models.DocumentKindReport
}

var _ interfaces.DocumentFetcher = (*MailboxFetcher)(nil)
