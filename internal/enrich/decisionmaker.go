package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/anthropic"
	"github.com/sells-group/leadgather/pkg/perplexity"
)

const decisionMakerSystem = `You extract people from dental practice websites.
Answer with a single full name and nothing else. If no owner, dentist-owner or
office manager is named, answer NONE.`

const haikuDecisionMakerPrompt = `Practice: %s (%s)

Who owns this practice or manages its front office? Prefer the office
manager, then the owner dentist.

Website content:
%s`

const perplexityDecisionMakerPrompt = `Who is the owner dentist or office manager of the dental practice "%s" in %s?
Answer with the person's full name only, or NONE if it cannot be determined.`

// maxNameWords bounds how long an extracted name may be.
const maxNameWords = 6

// DecisionMaker names the owner or office manager of the practice. It asks
// Claude about website content when available and Perplexity otherwise.
// Either client may be nil.
type DecisionMaker struct {
	claude     anthropic.Client
	model      string
	perplexity perplexity.Client
	opts       options
}

// NewDecisionMaker creates the decision-maker step.
func NewDecisionMaker(claude anthropic.Client, model string, pplx perplexity.Client, opts ...Option) *DecisionMaker {
	return &DecisionMaker{claude: claude, model: model, perplexity: pplx, opts: newOptions(opts)}
}

// Name implements Step.
func (d *DecisionMaker) Name() string { return "decision_maker" }

// Apply implements Step.
func (d *DecisionMaker) Apply(ctx context.Context, c model.Candidate, st *State) error {
	if st.Fields.DecisionMaker != "" || c.PracticeName == "" {
		return nil
	}

	var (
		answer string
		err    error
	)
	switch {
	case st.WebsiteText != "" && d.claude != nil:
		answer, err = d.askClaude(ctx, c, st.WebsiteText)
	case d.perplexity != nil:
		answer, err = d.askPerplexity(ctx, c)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	st.Fields.Merge(model.ResolvedFields{DecisionMaker: cleanName(answer)})
	return nil
}

func (d *DecisionMaker) askClaude(ctx context.Context, c model.Candidate, text string) (string, error) {
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:     d.model,
		MaxTokens: 64,
		System:    decisionMakerSystem,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(haikuDecisionMakerPrompt, c.PracticeName, place(c), text)},
		},
		Temperature: &temp,
	}
	resp, err := resilience.DoVal(ctx, d.opts.retryFor("anthropic", "decision_maker"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.claude.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: decision maker via claude")
	}
	if resp == nil {
		return "", nil
	}
	resp.Usage.LogCost(d.model, "decision_maker")
	return resp.Text(), nil
}

func (d *DecisionMaker) askPerplexity(ctx context.Context, c model.Candidate) (string, error) {
	temp := 0.1
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(perplexityDecisionMakerPrompt, c.PracticeName, place(c))},
		},
		Temperature: &temp,
	}
	resp, err := resilience.DoVal(ctx, d.opts.retryFor("perplexity", "decision_maker"), func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return d.perplexity.ChatCompletion(ctx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: decision maker via perplexity")
	}
	return resp.Text(), nil
}

func place(c model.Candidate) string {
	return strings.Join(nonEmpty(c.City, c.State), ", ")
}

// cleanName reduces a model answer to a bare person name, or "" when the
// answer is a refusal or does not look like a name.
func cleanName(answer string) string {
	line := strings.TrimSpace(answer)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.Trim(line, "\"'*`. ")
	if line == "" {
		return ""
	}
	switch strings.ToLower(line) {
	case "none", "unknown", "n/a", "not found", "no one":
		return ""
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > maxNameWords {
		return ""
	}
	for _, r := range line {
		if unicode.IsDigit(r) || r == '@' || r == ':' {
			return ""
		}
	}
	return line
}
