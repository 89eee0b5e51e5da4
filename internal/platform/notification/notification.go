// Package notification mails operational alerts from the importer. Its one
// consumer today is the unknown-classification-code report sent after an
// import run.
package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender delivers one email message.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	Host string
	Port int
	From string
	Auth smtp.Auth // nil for an open relay
}

func (s *SMTPSender) SendEmail(_ context.Context, to []string, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, strings.Join(to, ", "), subject, body))
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	if err := smtp.SendMail(addr, s.Auth, s.From, to, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", s.Host, err)
	}
	return nil
}

// CodeCollector accumulates classification codes the importer did not
// recognize. It is shared by all pipeline workers, so it locks.
type CodeCollector struct {
	mu    sync.Mutex
	codes map[string]map[string]int // kind -> code -> occurrences
}

func NewCodeCollector() *CodeCollector {
	return &CodeCollector{codes: make(map[string]map[string]int)}
}

// RecordUnknownCode notes one occurrence of an unrecognized code.
func (c *CodeCollector) RecordUnknownCode(kind, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes[kind] == nil {
		c.codes[kind] = make(map[string]int)
	}
	c.codes[kind][code]++
}

// Empty reports whether nothing has been collected.
func (c *CodeCollector) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.codes) == 0
}

// Summary renders the collected codes as a plain-text report and resets the
// collector for the next run.
func (c *CodeCollector) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := make([]string, 0, len(c.codes))
	for kind := range c.codes {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var b strings.Builder
	for _, kind := range kinds {
		codes := make([]string, 0, len(c.codes[kind]))
		for code := range c.codes[kind] {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "%s type %q seen %d time(s)\n", kind, code, c.codes[kind][code])
		}
	}
	c.codes = make(map[string]map[string]int)
	return b.String()
}

// Alerter mails the unknown-code report to the configured recipients.
type Alerter struct {
	sender     EmailSender
	recipients []string
	log        zerolog.Logger
}

func NewAlerter(sender EmailSender, recipients []string, log zerolog.Logger) *Alerter {
	return &Alerter{sender: sender, recipients: recipients, log: log}
}

// SendUnknownCodeReport mails the collector's summary, if any. A delivery
// failure is logged, not propagated: the import result stands regardless.
func (a *Alerter) SendUnknownCodeReport(ctx context.Context, c *CodeCollector) {
	if a.sender == nil || len(a.recipients) == 0 || c.Empty() {
		return
	}
	body := "The admission importer encountered classification codes it does not recognize:\n\n" + c.Summary()
	if err := a.sender.SendEmail(ctx, a.recipients, "Admission importer: unknown classification codes", body); err != nil {
		a.log.Error().Err(err).Msg("unknown-code alert mail failed")
	}
}
