package transport

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync"
)

// MockTransport is a configurable Transport for tests. Stubs are matched in
// the order they were added; the first match wins.
type MockTransport struct {
	mu          sync.RWMutex
	stubs       []stub
	fallback    *stub
	requests    []*Descriptor
	requestHook func(*Descriptor)
}

type stub struct {
	matcher    func(*Descriptor) bool
	statusCode int
	body       string
	header     http.Header
	err        error
}

var _ Transport = (*MockTransport)(nil)

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse answers every unmatched request with the given status and body.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{statusCode: statusCode, body: body}
	return m
}

// StubResponseHeader is StubResponse with response headers, such as a
// Content-Type that decides how the body is decoded.
func (m *MockTransport) StubResponseHeader(statusCode int, header http.Header, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{statusCode: statusCode, body: body, header: header.Clone()}
	return m
}

// StubError fails every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{err: err}
	return m
}

// StubPath answers requests whose joined path equals path.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(d *Descriptor) bool {
		return d.Path() == path
	}, statusCode, body)
}

// StubPathRegex answers requests whose joined path matches pattern.
func (m *MockTransport) StubPathRegex(pattern string, statusCode int, body string) *MockTransport {
	re := regexp.MustCompile(pattern)
	return m.StubFunc(func(d *Descriptor) bool {
		return re.MatchString(d.Path())
	}, statusCode, body)
}

// StubMethod answers requests with the given method.
func (m *MockTransport) StubMethod(method Method, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(d *Descriptor) bool {
		return d.Method == method
	}, statusCode, body)
}

// StubFunc answers requests matching the predicate.
func (m *MockTransport) StubFunc(
	matcher func(*Descriptor) bool,
	statusCode int,
	body string,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, statusCode: statusCode, body: body})
	return m
}

// StubFuncHeader answers requests matching the predicate with headers.
func (m *MockTransport) StubFuncHeader(
	matcher func(*Descriptor) bool,
	statusCode int,
	header http.Header,
	body string,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, statusCode: statusCode, body: body, header: header.Clone()})
	return m
}

// StubFuncError fails requests matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*Descriptor) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, err: err})
	return m
}

// OnRequest registers a hook called with every dispatched descriptor.
func (m *MockTransport) OnRequest(fn func(*Descriptor)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// Name returns "mock".
func (m *MockTransport) Name() string {
	return "mock"
}

// Do implements Transport.
func (m *MockTransport) Do(ctx context.Context, d *Descriptor) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Err: err}
	}

	m.mu.Lock()
	m.requests = append(m.requests, d.Clone())
	hook := m.requestHook
	m.mu.Unlock()

	if hook != nil {
		hook(d)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.stubs {
		if m.stubs[i].matcher(d) {
			return m.stubs[i].answer()
		}
	}
	if m.fallback != nil {
		return m.fallback.answer()
	}

	return nil, &Error{Err: errors.New("no stub found for request: " + string(d.Method) + " " + d.Path())}
}

func (s *stub) answer() (*Result, error) {
	if s.err != nil {
		return nil, AsError(s.err)
	}

	header := s.header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	raw := []byte(s.body)
	body := DecodeBody(raw, header.Get("Content-Type"))
	if !IsSuccess(s.statusCode) {
		return nil, StatusError(s.statusCode, header, body)
	}
	return &Result{StatusCode: s.statusCode, Header: header, Body: body, RawBody: raw}, nil
}

// Requests returns copies of every descriptor dispatched so far.
func (m *MockTransport) Requests() []*Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Descriptor{}, m.requests...)
}

// RequestCount returns the number of dispatched requests.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent descriptor, or nil if none.
func (m *MockTransport) LastRequest() *Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.fallback = nil
	m.requestHook = nil
}
