package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tale-forge/internal/ai"
)

// MockTextProvider is a mock type for the ai.TextProvider type
type MockTextProvider struct {
	mock.Mock
	name string
}

// Name returns the label given to NewMockTextProvider.
func (_m *MockTextProvider) Name() string {
	return _m.name
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockTextProvider) Generate(ctx context.Context, req ai.GenerationRequest) (ai.GenerationResult, error) {
	ret := _m.Called(ctx, req)

	var r0 ai.GenerationResult
	if rf, ok := ret.Get(0).(func(context.Context, ai.GenerationRequest) ai.GenerationResult); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(ai.GenerationResult)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, ai.GenerationRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTextProvider creates a new instance of MockTextProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTextProvider(t interface {
	mock.TestingT
	Cleanup(func())
}, name string) *MockTextProvider {
	m := &MockTextProvider{name: name}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ai.TextProvider = (*MockTextProvider)(nil)
