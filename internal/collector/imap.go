package collector

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"ZakatSentinel/internal/mask"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog/log"
)

// Statement emails come from the bank's statement sender with "izvod"
// (statement) in the subject.
const (
	statementSender  = "izvodi@procreditbank.ba"
	statementSubject = "izvod"

	// How many of the newest candidate messages to try per account
	// before giving up on it.
	maxMessagesPerAccount = 3
)

// IMAPSource reads ProCredit statement PDFs from one mailbox.
type IMAPSource struct {
	cfg SourceConfig
}

// NewIMAPSource creates a source over the given mailbox credentials.
func NewIMAPSource(cfg SourceConfig) *IMAPSource {
	return &IMAPSource{cfg: cfg}
}

func (s *IMAPSource) Name() string {
	if s.cfg.Label != "" {
		return s.cfg.Label
	}
	return mask.Email(s.cfg.Email)
}

// Fetch connects to the mailbox, finds the newest statement emails,
// and extracts one reading per configured account. Accounts with no
// usable statement are reported with Found=false rather than failing
// the source.
func (s *IMAPSource) Fetch(ctx context.Context) ([]RawReading, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.IMAPServer, s.cfg.IMAPPort)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Logout()

	if err := c.Login(s.cfg.Email, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("login %s: %w", mask.Email(s.cfg.Email), err)
	}
	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("select inbox: %w", err)
	}

	attachments, err := s.fetchStatementAttachments(ctx, c)
	if err != nil {
		return nil, err
	}

	var readings []RawReading
	for _, pair := range s.cfg.AccountPairs {
		for _, account := range []struct{ currency, number string }{
			{"BAM", pair.BAMAccount},
			{"EUR", pair.EURAccount},
		} {
			if account.number == "" {
				continue
			}
			readings = append(readings, s.readAccount(account.currency, account.number, attachments))
		}
	}
	return readings, nil
}

type attachment struct {
	filename string
	data     []byte
}

// fetchStatementAttachments downloads PDF attachments from the newest
// statement emails, newest first.
func (s *IMAPSource) fetchStatementAttachments(ctx context.Context, c *client.Client) ([]attachment, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("From", statementSender)
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search statements: %w", err)
	}
	if len(ids) == 0 {
		// Some deployments see the statements forwarded; fall back to a
		// subject search.
		criteria = imap.NewSearchCriteria()
		criteria.Header.Set("Subject", statementSubject)
		if ids, err = c.Search(criteria); err != nil {
			return nil, fmt.Errorf("search statements by subject: %w", err)
		}
	}
	if len(ids) == 0 {
		log.Warn().Str("source", s.Name()).Msg("no statement emails found")
		return nil, nil
	}

	// Newest sequence numbers last; walk from the end.
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	limit := maxMessagesPerAccount * (1 + len(s.cfg.AccountPairs))
	if len(ids) > limit {
		ids = ids[:limit]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() { done <- c.Fetch(seqset, items, messages) }()

	var attachments []attachment
	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		attachments = append(attachments, extractPDFAttachments(body)...)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch statement emails: %w", err)
	}
	return attachments, nil
}

func extractPDFAttachments(body io.Reader) []attachment {
	mr, err := mail.CreateReader(body)
	if err != nil {
		log.Debug().Err(err).Msg("unparsable statement email, skipping")
		return nil
	}

	var out []attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Debug().Err(err).Msg("broken mime part, skipping rest of message")
			break
		}
		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part.Body, MaxPDFSize+1))
		if err != nil {
			log.Debug().Str("file", filename).Err(err).Msg("attachment read failed")
			continue
		}
		if len(data) < MinPDFSize || len(data) > MaxPDFSize {
			log.Debug().Str("file", filename).Int("size", len(data)).Msg("attachment size out of bounds, skipping")
			continue
		}
		out = append(out, attachment{filename: filename, data: data})
	}
	return out
}

// readAccount finds the newest attachment belonging to the account and
// extracts its statement.
func (s *IMAPSource) readAccount(currency, number string, attachments []attachment) RawReading {
	reading := RawReading{
		Source:   s.Name(),
		Account:  number,
		Currency: currency,
	}
	for _, att := range attachments {
		gotCurrency, _, ok := IdentifyAccount(att.filename, number, "")
		if currency == "EUR" {
			gotCurrency, _, ok = IdentifyAccount(att.filename, "", number)
		}
		if !ok || gotCurrency != currency {
			continue
		}
		st, err := ExtractStatement(att.data)
		if err != nil {
			log.Warn().
				Str("source", s.Name()).
				Str("account", mask.Account(number)).
				Err(err).
				Msg("statement extraction failed, trying older statement")
			continue
		}
		reading.Balance = st.EndingBalance
		reading.PeriodStart = st.PeriodStart
		reading.PeriodEnd = st.PeriodEnd
		reading.Found = true
		log.Info().
			Str("source", s.Name()).
			Str("account", mask.Account(number)).
			Str("currency", currency).
			Str("period_end", st.PeriodEnd).
			Msg("statement extracted")
		return reading
	}
	log.Warn().
		Str("source", s.Name()).
		Str("account", mask.Account(number)).
		Str("currency", currency).
		Msg("no usable statement for account")
	return reading
}
