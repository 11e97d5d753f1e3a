// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"unitcov.dev/pkg/unitcov/internal/domain"
)

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*MockWorkflow)(nil)

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted when
// the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// Check provides a mock function.
func (_m *MockWorkflow) Check(ctx context.Context, args domain.CheckArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// List provides a mock function.
func (_m *MockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// Match provides a mock function.
func (_m *MockWorkflow) Match(ctx context.Context, args domain.MatchArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// View provides a mock function.
func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// Merge provides a mock function.
func (_m *MockWorkflow) Merge(ctx context.Context, args domain.MergeArgs) error {
	return _m.Called(ctx, args).Error(0)
}
