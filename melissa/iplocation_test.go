package melissa

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melissaapi/mocks"
)

const ipLocationBody = `{"TransmissionReference":"","TransmissionResults":"","Version":"4.0","TotalRecords":"1",` +
	`"Records":[{"RecordID":"1","Result":"IS01,IS03","IPAddress":"8.8.8.8","City":"Mountain View",` +
	`"Region":"CA","PostalCode":"94043","CountryName":"United States","CountryAbbreviation":"US",` +
	`"Latitude":"37.4056","Longitude":"-122.0775","ISPName":"Google LLC","DomainName":"google.com"}]}`

func TestIPLocationRequest(t *testing.T) {
	var gotURL string
	var gotMethod string
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.Scheme + "://" + r.URL.Host + r.URL.Path
		gotMethod = r.Method
		q := r.URL.Query()
		assert.Equal(t, "8.8.8.8", q.Get("ip"))
		assert.Equal(t, "L", q.Get("id"))
		_, hasT := q["t"]
		assert.False(t, hasT)
		assert.Len(t, q, 2)
		return mocks.Response(http.StatusOK, ipLocationBody), nil
	})
	c := newTestClient(t, Config{LicenseKey: "L", UserID: "U"}, WithHTTPClient(&http.Client{Transport: transport}))

	raw, err := c.IPLocation(context.Background(), "8.8.8.8", "")

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "https://globalip.melissadata.net/v4/web/iplocation/doiplocation", gotURL)
	assert.Equal(t, ipLocationBody, string(raw))

	reply, err := DecodeIPLocation(raw)
	require.NoError(t, err)
	assert.Equal(t, Value("1"), reply.TotalRecords)
	require.Len(t, reply.Records, 1)
	assert.Equal(t, "Mountain View", reply.Records[0].City.String())
	assert.Equal(t, Value("US"), reply.Records[0].CountryAbbreviation)
	assert.Equal(t, Value("IS01,IS03"), reply.Records[0].Result)
}

func TestIPLocationTransmissionReference(t *testing.T) {
	client := &mocks.MockHTTPClient{Body: `{"TransmissionReference":"abc123","Records":[]}`}
	c := newTestClient(t, Config{UserID: "U"}, WithHTTPClient(client))

	raw, err := c.IPLocation(context.Background(), "8.8.8.8", "abc123")

	require.NoError(t, err)
	reply, err := DecodeIPLocation(raw)
	require.NoError(t, err)
	assert.Equal(t, Value("abc123"), reply.TransmissionReference)
	req := client.LastRequest()
	assert.Equal(t, "abc123", req.URL.Query().Get("t"))
	assert.Equal(t, "U", req.URL.Query().Get("id"))
	assert.Contains(t, req.URL.RawQuery, "t=abc123")
}

func TestIPLocationReturnsPayloadUnchanged(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "documented reply", body: ipLocationBody},
		{name: "numeric total and unknown fields", body: `{"records":[{"foo":"bar"}],"TotalRecords":1}`},
		{name: "lowercase records", body: `{"records":[{"city":"x","score":0.5,"flags":[1,2]}]}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			client := &mocks.MockHTTPClient{Body: tc.body}
			c := newTestClient(t, Config{LicenseKey: "L"}, WithHTTPClient(client))

			raw, err := c.IPLocation(context.Background(), "8.8.8.8", "")

			require.NoError(t, err)
			assert.Equal(t, tc.body, string(raw))
		})
	}
}

func TestDecodeIPLocationToleratesScalars(t *testing.T) {
	raw := []byte(`{"TotalRecords":1,"Version":null,"Records":[{"RecordID":2,"Latitude":37.4056,"City":"Mountain View","Extra":{"a":1}}]}`)

	reply, err := DecodeIPLocation(raw)

	require.NoError(t, err)
	assert.Equal(t, Value("1"), reply.TotalRecords)
	assert.Equal(t, Value(""), reply.Version)
	require.Len(t, reply.Records, 1)
	assert.Equal(t, Value("2"), reply.Records[0].RecordID)
	assert.Equal(t, Value("37.4056"), reply.Records[0].Latitude)
	assert.Equal(t, Value("Mountain View"), reply.Records[0].City)
}

func TestDecodeIPLocationErrors(t *testing.T) {
	_, err := DecodeIPLocation([]byte(`not-json`))
	assert.Error(t, err)

	_, err = DecodeIPLocation([]byte(`{"TotalRecords":{"n":1}}`))
	assert.Error(t, err)

	reply, err := DecodeIPLocation(nil)
	require.NoError(t, err)
	assert.Empty(t, reply.Records)
}

func TestIPLocationAPIErrorPropagates(t *testing.T) {
	client := &mocks.MockHTTPClient{StatusCode: http.StatusForbidden, Body: `{"TransmissionResults":"GE05"}`}
	c := newTestClient(t, Config{}, WithHTTPClient(client))

	raw, err := c.IPLocation(context.Background(), "8.8.8.8", "")

	assert.Nil(t, raw)
	assert.True(t, IsUnauthorized(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, `{"TransmissionResults":"GE05"}`, string(apiErr.Meta))
}

func TestIPLocationRepeatedCallsAreIndependent(t *testing.T) {
	client := &mocks.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return mocks.Response(http.StatusOK, ipLocationBody), nil
	}}
	c := newTestClient(t, Config{LicenseKey: "L"}, WithHTTPClient(client))

	first, err := c.IPLocation(context.Background(), "8.8.8.8", "")
	require.NoError(t, err)
	second, err := c.IPLocation(context.Background(), "8.8.8.8", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	first[0] = 'x'
	assert.Equal(t, byte('{'), second[0], "replies must not share a buffer")
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, client.Requests[0].URL.String(), client.Requests[1].URL.String())
}

func TestIPLocationConcurrent(t *testing.T) {
	client := &mocks.MockHTTPClient{DoFunc: func(r *http.Request) (*http.Response, error) {
		ref := r.URL.Query().Get("t")
		return mocks.Response(http.StatusOK, `{"TransmissionReference":"`+ref+`"}`), nil
	}}
	c := newTestClient(t, Config{LicenseKey: "L"}, WithHTTPClient(client))

	refs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	results := make([]string, len(refs))
	errs := make([]error, len(refs))
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			raw, err := c.IPLocation(context.Background(), "8.8.8.8", ref)
			if err == nil {
				var reply *IPLocationResponse
				reply, err = DecodeIPLocation(raw)
				if err == nil {
					results[i] = reply.TransmissionReference.String()
				}
			}
			errs[i] = err
		}(i, ref)
	}
	wg.Wait()

	for i := range refs {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, refs, results)
	assert.Equal(t, len(refs), client.Calls())
}

func TestIPLocationEscapesQuery(t *testing.T) {
	var raw string
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		raw = r.URL.RawQuery
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`)), Header: make(http.Header)}, nil
	})
	c := newTestClient(t, Config{}, WithHTTPClient(&http.Client{Transport: transport}))

	_, err := c.IPLocation(context.Background(), "1.2.3.4&id=evil", "")
	require.NoError(t, err)
	assert.Contains(t, raw, "ip=1.2.3.4%26id%3Devil")
	assert.Contains(t, raw, "id=&")
}
