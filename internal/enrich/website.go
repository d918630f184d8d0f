package enrich

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/jina"
)

// maxWebsiteText bounds the page content kept for later steps.
const maxWebsiteText = 12000

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]\d{4}`)
)

// Addresses on these domains or with these suffixes are site furniture,
// not practice contacts.
var (
	ignoredEmailDomains  = []string{"example.com", "sentry.io", "wixpress.com", "sentry-next.wixpress.com", "godaddy.com", "squarespace.com"}
	ignoredEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
)

// Website reads the practice website and extracts a contact email and phone.
type Website struct {
	client jina.Client
	opts   options
}

// NewWebsite creates the Website step.
func NewWebsite(client jina.Client, opts ...Option) *Website {
	return &Website{client: client, opts: newOptions(opts)}
}

// Name implements Step.
func (w *Website) Name() string { return "website" }

// Apply implements Step. The page text is kept on the State for the
// decision-maker step even when both contacts are already known.
func (w *Website) Apply(ctx context.Context, c model.Candidate, st *State) error {
	site := websiteURL(st.Fields.PracticeWebsite)
	if site == "" || (st.Fields.Email != "" && st.Fields.Phone != "" && st.Fields.DecisionMaker != "") {
		return nil
	}

	resp, err := resilience.DoVal(ctx, w.opts.retryFor("jina", "read"), func(ctx context.Context) (*jina.ReadResponse, error) {
		return w.client.Read(ctx, site)
	})
	if err != nil {
		return eris.Wrapf(err, "enrich: read website %s", site)
	}
	if resp == nil {
		return nil
	}

	text := truncateText(resp.Data.Content, maxWebsiteText)
	st.WebsiteText = text
	st.Fields.Merge(model.ResolvedFields{
		Email: extractEmail(resp.Data.Content),
		Phone: extractPhone(resp.Data.Content),
	})
	return nil
}

// truncateText cuts s to at most n bytes without splitting a rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func websiteURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	return s
}

// extractEmail returns the first plausible contact address in text.
func extractEmail(text string) string {
	for _, m := range emailRe.FindAllString(text, -1) {
		e := normalize.Email(strings.TrimRight(m, "."))
		if e == "" || ignoredEmail(e) {
			continue
		}
		return e
	}
	return ""
}

func ignoredEmail(e string) bool {
	for _, s := range ignoredEmailSuffixes {
		if strings.HasSuffix(e, s) {
			return true
		}
	}
	domain := e[strings.LastIndexByte(e, '@')+1:]
	for _, d := range ignoredEmailDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// extractPhone returns the first North American number in text.
func extractPhone(text string) string {
	for _, m := range phoneRe.FindAllString(text, -1) {
		if p := normalize.Phone(m); p != "" {
			return p
		}
	}
	return ""
}
