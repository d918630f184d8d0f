package enrich

import (
	"context"
	"time"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/jina"
	"github.com/sells-group/leadgather/pkg/npi"
	"github.com/sells-group/leadgather/pkg/perplexity"
)

func fastRetry() Option {
	return WithRetry(resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}

func lakesideCandidate() model.Candidate {
	return model.Candidate{
		RawPosting: model.RawPosting{
			PracticeName: "Lakeside Family Dentistry, PLLC",
			JobTitle:     "Dental Receptionist",
			City:         "Austin",
			State:        "TX",
			Source:       "adzuna",
		},
		Key:     "lakeside family dentistry|austin,TX|dental receptionist",
		Sources: []string{"adzuna"},
	}
}

type stepFunc struct {
	name string
	fn   func(ctx context.Context, c model.Candidate, st *State) error
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Apply(ctx context.Context, c model.Candidate, st *State) error {
	return s.fn(ctx, c, st)
}

type fakeNPI struct {
	resp  *npi.SearchResponse
	errs  []error
	calls int
	last  npi.Query
}

func (f *fakeNPI) Search(_ context.Context, q npi.Query) (*npi.SearchResponse, error) {
	f.calls++
	f.last = q
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.resp, nil
}

type fakeReader struct {
	pages map[string]string
	err   error
	calls int
}

func (f *fakeReader) Read(_ context.Context, targetURL string) (*jina.ReadResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &jina.ReadResponse{Code: 200, Data: jina.ReadData{URL: targetURL, Content: f.pages[targetURL]}}, nil
}

func (f *fakeReader) Search(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
	return &jina.SearchResponse{}, nil
}

type fakePerplexity struct {
	answer string
	err    error
	calls  int
	last   perplexity.ChatCompletionRequest
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: f.answer}}},
	}, nil
}
