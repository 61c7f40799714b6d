//go:build !production

package notify

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPublisher 通知发布者 mock
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
