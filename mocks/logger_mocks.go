package mocks

import (
	"fmt"
	"sync"
)

// MockLogger keeps every key/value line it is given.
type MockLogger struct {
	mu    sync.Mutex
	Lines []map[string]string
}

func (m *MockLogger) Log(keyvals ...interface{}) error {
	line := make(map[string]string, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		line[fmt.Sprint(keyvals[i])] = fmt.Sprint(keyvals[i+1])
	}
	m.mu.Lock()
	m.Lines = append(m.Lines, line)
	m.mu.Unlock()
	return nil
}

func (m *MockLogger) Last() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Lines) == 0 {
		return nil
	}
	return m.Lines[len(m.Lines)-1]
}
