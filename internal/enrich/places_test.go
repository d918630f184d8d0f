package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/google"
	"github.com/sells-group/leadgather/pkg/google/mocks"
)

func lakesidePlaces() *google.TextSearchResponse {
	return &google.TextSearchResponse{Places: []google.Place{
		{
			ID:                  "p-2",
			DisplayName:         google.DisplayName{Text: "Downtown Smiles Orthodontics"},
			NationalPhoneNumber: "(512) 555-0999",
		},
		{
			ID:                  "p-1",
			DisplayName:         google.DisplayName{Text: "Lakeside Family Dentistry"},
			NationalPhoneNumber: "(512) 555-0142",
			WebsiteURI:          "https://lakeside.example",
			PostalAddress: &google.PostalAddress{
				PostalCode:   "78701-2201",
				AddressLines: []string{"100 Congress Ave Ste 200"},
			},
		},
	}}
}

func TestPlaces_FillsFromBestMatch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, "Lakeside Family Dentistry, PLLC Austin TX").
		Return(lakesidePlaces(), nil)

	st := &State{}
	err := NewPlaces(client, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Equal(t, "(512) 555-0142", st.Fields.Phone)
	assert.Equal(t, "https://lakeside.example", st.Fields.PracticeWebsite)
	assert.Equal(t, "100 Congress Ave Ste 200", st.Fields.AddressLine1)
	assert.Equal(t, "78701", st.Fields.PostalCode)
}

func TestPlaces_KeepsExistingValues(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).Return(lakesidePlaces(), nil)

	st := &State{}
	st.Fields.Phone = "(512) 555-0001"
	err := NewPlaces(client, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Equal(t, "(512) 555-0001", st.Fields.Phone)
	assert.Equal(t, "https://lakeside.example", st.Fields.PracticeWebsite)
}

func TestPlaces_NoConfidentMatch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).Return(&google.TextSearchResponse{Places: []google.Place{
		{DisplayName: google.DisplayName{Text: "Downtown Smiles Orthodontics"}, NationalPhoneNumber: "(512) 555-0999"},
	}}, nil)

	st := &State{}
	err := NewPlaces(client, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Empty(t, st.Fields.Phone)
}

func TestPlaces_RetriesTransientOnce(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("google: unexpected status 503"), 503)).Once()
	client.On("TextSearch", mock.Anything, mock.Anything).Return(lakesidePlaces(), nil).Once()

	st := &State{}
	err := NewPlaces(client, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Equal(t, "(512) 555-0142", st.Fields.Phone)
	client.AssertNumberOfCalls(t, "TextSearch", 2)
}

func TestPlaces_PermanentErrorNotRetried(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(nil, errors.New("google: unexpected status 403")).Once()

	err := NewPlaces(client, fastRetry()).Apply(context.Background(), lakesideCandidate(), &State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "places search")
	client.AssertNumberOfCalls(t, "TextSearch", 1)
}

func TestPlaces_SkipsWithoutPracticeName(t *testing.T) {
	client := mocks.NewMockClient(t)
	c := lakesideCandidate()
	c.PracticeName = ""

	require.NoError(t, NewPlaces(client).Apply(context.Background(), c, &State{}))
	client.AssertNotCalled(t, "TextSearch", mock.Anything, mock.Anything)
}
