package netfilter

import (
	"github.com/stretchr/testify/mock"
)

// MockCommandRunner is a mock implementation of CommandRunner for testing.
// It lives outside _test.go so other packages' tests can use it.
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(name string, args ...string) error {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	return result.Error(0)
}

func (m *MockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	if result.Get(0) == nil {
		return nil, result.Error(1)
	}
	return result.Get(0).([]byte), result.Error(1)
}

func (m *MockCommandRunner) RunInput(input string, name string, args ...string) error {
	callArgs := make([]interface{}, 0, len(args)+2)
	callArgs = append(callArgs, input, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	return result.Error(0)
}

// MockRuleTable is a mock implementation of RuleTable for testing.
type MockRuleTable struct {
	mock.Mock
}

func (m *MockRuleTable) Exists(table, chain string, rulespec ...string) (bool, error) {
	callArgs := make([]interface{}, 0, len(rulespec)+2)
	callArgs = append(callArgs, table, chain)
	for _, a := range rulespec {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	return result.Bool(0), result.Error(1)
}

func (m *MockRuleTable) Insert(table, chain string, pos int, rulespec ...string) error {
	callArgs := make([]interface{}, 0, len(rulespec)+3)
	callArgs = append(callArgs, table, chain, pos)
	for _, a := range rulespec {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	return result.Error(0)
}
