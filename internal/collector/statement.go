package collector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"ZakatSentinel/internal/calendar"
	"ZakatSentinel/internal/numfmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PDF attachment sanity limits. Statements are small; anything outside
// these bounds is a newsletter, a scan, or garbage.
const (
	MinPDFSize  = 1000
	MaxPDFSize  = 5 << 20
	MaxPDFPages = 20
)

// MaxReasonableBalance rejects obviously misparsed balances.
var MaxReasonableBalance = decimal.RequireFromString("100000000")

// ErrNoBalance means no ending balance could be extracted from the
// statement text.
var ErrNoBalance = errors.New("collector: no ending balance found in statement")

// Statement is the extracted content of one ProCredit statement PDF.
type Statement struct {
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	PeriodStart     string
	PeriodEnd       string
}

// ProCredit statement layouts, tried in order. The summary table has
// six columns: starting balance, withdrawals, deposits, ending balance,
// withdrawal count, deposit count. The ending balance is column 4.
var (
	bosnianNum = `(\d{1,3}(?:\.\d{3})*,\d{2})`

	sixColumnRe = regexp.MustCompile(
		bosnianNum + `\s+` + bosnianNum + `\s+` + bosnianNum + `\s+` + bosnianNum + `\s+(\d+)\s+(\d+)`)
	headerRe = regexp.MustCompile(
		`(?is)Početno stanje.*?Krajnje stanje.*?` + bosnianNum + `\s+` + bosnianNum + `\s+` + bosnianNum + `\s+` + bosnianNum)
	fallbackRe = regexp.MustCompile(`(?i)krajnje stanje[^\d]*` + bosnianNum)
	startingRe = regexp.MustCompile(`(?i)Početno stanje[^\d]*` + bosnianNum)

	periodStartRe = regexp.MustCompile(`(?i)Datum od[:\s]*(\d{2}\.\d{2}\.\d{4})`)
	periodEndRes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{2}\.\d{2}\.\d{4})\s*Datum do`),
		regexp.MustCompile(`(?i)(\d{2}\.\d{2}\.\d{4})\s*\n?\s*Datum do`),
		regexp.MustCompile(`(?i)Datum do[:\s]*(\d{2}\.\d{2}\.\d{4})`),
	}
	anyDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
)

// ExtractStatement pulls the ending balance and statement period out of
// a ProCredit Bank PDF.
func ExtractStatement(pdfData []byte) (*Statement, error) {
	if len(pdfData) < MinPDFSize || len(pdfData) > MaxPDFSize {
		return nil, fmt.Errorf("collector: pdf size %d outside %d..%d", len(pdfData), MinPDFSize, MaxPDFSize)
	}
	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if reader.NumPage() > MaxPDFPages {
		return nil, fmt.Errorf("collector: pdf has %d pages, statements have at most %d", reader.NumPage(), MaxPDFPages)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return extractFromText(string(text))
}

// extractFromText applies the statement patterns to raw text. Split out
// of ExtractStatement so the layouts are testable without PDF fixtures.
func extractFromText(text string) (*Statement, error) {
	st := &Statement{}
	found := false

	if m := sixColumnRe.FindStringSubmatch(text); m != nil {
		start, errS := numfmt.ParseBosnian(m[1])
		end, errE := numfmt.ParseBosnian(m[4])
		if errS == nil && errE == nil {
			st.StartingBalance, st.EndingBalance = start, end
			found = true
			log.Debug().Msg("statement matched 6-column summary table")
		}
	}
	if !found {
		if m := headerRe.FindStringSubmatch(text); m != nil {
			start, errS := numfmt.ParseBosnian(m[1])
			end, errE := numfmt.ParseBosnian(m[4])
			if errS == nil && errE == nil {
				st.StartingBalance, st.EndingBalance = start, end
				found = true
				log.Debug().Msg("statement matched header-based layout")
			}
		}
	}
	if !found {
		if m := fallbackRe.FindStringSubmatch(text); m != nil {
			if end, err := numfmt.ParseBosnian(m[1]); err == nil {
				st.EndingBalance = end
				found = true
				log.Debug().Msg("statement matched fallback ending-balance pattern")
			}
		}
		if m := startingRe.FindStringSubmatch(text); found && m != nil {
			if start, err := numfmt.ParseBosnian(m[1]); err == nil {
				st.StartingBalance = start
			}
		}
	}
	if !found {
		return nil, ErrNoBalance
	}
	if st.EndingBalance.IsNegative() || st.EndingBalance.Cmp(MaxReasonableBalance) > 0 {
		return nil, fmt.Errorf("collector: extracted balance %s is implausible", st.EndingBalance)
	}

	st.PeriodStart, st.PeriodEnd = extractPeriod(text)
	return st, nil
}

// extractPeriod finds the statement period. ProCredit sometimes prints
// the date before the "Datum do:" label, sometimes after; when neither
// form is present the first/last dates anywhere in the text are used,
// and today when the text has no dates at all.
func extractPeriod(text string) (start, end string) {
	if m := periodStartRe.FindStringSubmatch(text); m != nil {
		start = m[1]
	}
	for _, re := range periodEndRes {
		if m := re.FindStringSubmatch(text); m != nil {
			end = m[1]
			break
		}
	}
	if start != "" && end != "" {
		return start, end
	}

	all := anyDateRe.FindAllString(text, -1)
	switch {
	case len(all) >= 2:
		if start == "" {
			start = all[0]
		}
		if end == "" {
			end = all[len(all)-1]
		}
	case len(all) == 1:
		if start == "" {
			start = all[0]
		}
		if end == "" {
			end = all[0]
		}
	default:
		today := calendar.FormatGregorian(time.Now())
		if start == "" {
			start = today
		}
		if end == "" {
			end = today
		}
	}
	return start, end
}

// IdentifyAccount matches a statement filename like
// "1234567890_2025-01-31.pdf" against the configured account numbers.
// Returns the matched currency ("BAM"/"EUR") and account, or ok=false.
func IdentifyAccount(filename, bamAccount, eurAccount string) (currency, account string, ok bool) {
	name := strings.ToLower(filename)
	if !strings.HasSuffix(name, ".pdf") {
		return "", "", false
	}
	// Skip marketing and newsletter attachments.
	base := strings.TrimSuffix(name, ".pdf")
	if strings.HasPrefix(base, "pcb") || strings.Contains(base, "newsletter") {
		return "", "", false
	}
	if bamAccount != "" && strings.Contains(name, strings.ToLower(bamAccount)) {
		return "BAM", bamAccount, true
	}
	if eurAccount != "" && strings.Contains(name, strings.ToLower(eurAccount)) {
		return "EUR", eurAccount, true
	}
	return "", "", false
}
