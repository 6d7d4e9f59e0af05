package testutil

import (
	"context"

	"github.com/dgellow/finfront/internal/notify"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) {
	m.Called(ctx, n)
}

// Messages returns the message of every recorded notification, in order
func (m *MockNotifier) Messages() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method != "Notify" {
			continue
		}
		out = append(out, call.Arguments.Get(1).(notify.Notification).Message)
	}
	return out
}

type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) CurrentPath() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNavigator) Navigate(path string) {
	m.Called(path)
}
