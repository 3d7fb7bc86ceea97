package mocks

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockHTTPClient records requests and answers them with DoFunc, or with
// StatusCode/Body when DoFunc is nil.
type MockHTTPClient struct {
	DoFunc     func(req *http.Request) (*http.Response, error)
	StatusCode int
	Body       string

	mu       sync.Mutex
	Requests []*http.Request
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	status := m.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return Response(status, m.Body), nil
}

func (m *MockHTTPClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockHTTPClient) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

func Response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
