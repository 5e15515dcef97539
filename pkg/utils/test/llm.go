package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockCaller fakes the LLM call function. Responses are matched by prompt
// substring; unmatched prompts get Default. Every prompt is recorded.
type MockCaller struct {
	mu sync.Mutex

	// Responses maps a prompt substring to the canned response.
	Responses map[string]string

	// Default is returned when no substring matches.
	Default string

	// Err, when set, makes every call fail.
	Err error

	Prompts []string
}

func NewMockCaller() *MockCaller {
	return &MockCaller{
		Responses: make(map[string]string),
	}
}

// Call is the llm.CallFunc implementation.
func (m *MockCaller) Call(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if m.Err != nil {
		return "", m.Err
	}

	for substr, resp := range m.Responses {
		if substr != "" && strings.Contains(prompt, substr) {
			return resp, nil
		}
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return "", fmt.Errorf("mock caller: no response configured")
}

// CallCount returns how many prompts were issued.
func (m *MockCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
