package evidence

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"medwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, esearch, esummary http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", esearch)
	mux.HandleFunc("/esummary.fcgi", esummary)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func esearchJSON(ids ...string) string {
	out := `{"esearchresult":{"idlist":[`
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", id)
	}
	return out + `]}}`
}

func TestRetrieve_EmptyConceptsSkipsNetwork(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) { t.Error("esearch must not be called") },
		func(w http.ResponseWriter, r *http.Request) { t.Error("esummary must not be called") },
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	citations, err := retriever.Retrieve(context.Background(), nil, 3)

	assert.NoError(t, err)
	assert.Nil(t, citations)
}

func TestRetrieve_RanksAndTruncates(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, "vaccine OR cancer", r.URL.Query().Get("term"))
			fmt.Fprint(w, esearchJSON("111", "222", "333"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":{
				"uids":["111","222","333"],
				"111":{"uid":"111","title":"First study","pubdate":"2023 Mar 4","authors":[{"name":"Smith J"}]},
				"222":{"uid":"222","title":"Second study","pubdate":"2021 Jan","authors":[]},
				"333":{"uid":"333","title":"Third study","pubdate":"2019","authors":[{"name":"Doe A"},{"name":"Roe B"}]}
			}}`)
		},
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	citations, err := retriever.Retrieve(context.Background(), []string{"vaccine", "cancer"}, 2)

	require.NoError(t, err)
	require.Len(t, citations, 2)
	assert.Equal(t, "111", citations[0].Identifier, "first-ranked id has the highest relevance")
	assert.Equal(t, "First study", citations[0].Title)
	assert.Equal(t, 2023, citations[0].Year)
	assert.Equal(t, []string{"Smith J"}, []string(citations[0].Authors))
	assert.Equal(t, "222", citations[1].Identifier)
	assert.Greater(t, citations[0].Relevance, citations[1].Relevance)
}

func TestRetrieve_DOIPreferredForURL(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, esearchJSON("111"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":{
				"uids":["111"],
				"111":{"uid":"111","title":"Study","pubdate":"2022","articleids":[{"idtype":"pubmed","value":"111"},{"idtype":"doi","value":"10.1000/xyz"}]}
			}}`)
		},
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	citations, err := retriever.Retrieve(context.Background(), []string{"vaccine"}, 3)

	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, "https://doi.org/10.1000/xyz", citations[0].URL)
}

func TestRetrieve_NoResults(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, esearchJSON())
		},
		func(w http.ResponseWriter, r *http.Request) { t.Error("esummary must not be called") },
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	citations, err := retriever.Retrieve(context.Background(), []string{"zzzz"}, 3)

	assert.NoError(t, err)
	assert.Empty(t, citations)
}

func TestRetrieve_ServerErrorsReportUnavailable(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	_, err := retriever.Retrieve(context.Background(), []string{"vaccine"}, 3)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRetrieve_MalformedJSONReportsUnavailable(t *testing.T) {
	server := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>not json</html>`)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)
	retriever := NewRetriever(&Config{BaseURL: server.URL})

	_, err := retriever.Retrieve(context.Background(), []string{"vaccine"}, 3)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSortCitations_Deterministic(t *testing.T) {
	citations := []models.Citation{
		{Identifier: "b", Relevance: 0.5, Year: 2020},
		{Identifier: "a", Relevance: 0.5, Year: 2020},
		{Identifier: "c", Relevance: 0.5, Year: 2023},
		{Identifier: "d", Relevance: 0.9, Year: 2010},
	}

	SortCitations(citations)

	assert.Equal(t, "d", citations[0].Identifier)
	assert.Equal(t, "c", citations[1].Identifier)
	assert.Equal(t, "a", citations[2].Identifier)
	assert.Equal(t, "b", citations[3].Identifier)
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 2023, parseYear("2023 Mar 4"))
	assert.Equal(t, 2019, parseYear("2019"))
	assert.Equal(t, 0, parseYear(""))
	assert.Equal(t, 0, parseYear("Winter 2020"))
}
