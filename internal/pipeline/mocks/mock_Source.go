// Package mocks provides test doubles for the pipeline source.
package mocks

import (
	"context"

	mojo "github.com/sells-group/boxoffice-cli/internal/mojo"
	mock "github.com/stretchr/testify/mock"
)

// MockSource is a mock type for the Source interface.
type MockSource struct {
	mock.Mock
}

// YearURL provides a mock function with given fields: year
func (_m *MockSource) YearURL(year int) string {
	ret := _m.Called(year)

	if len(ret) == 0 {
		panic("no return value specified for YearURL")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func(int) string); ok {
		r0 = rf(year)
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// ReleaseLinks provides a mock function with given fields: ctx, year
func (_m *MockSource) ReleaseLinks(ctx context.Context, year int) ([]string, error) {
	ret := _m.Called(ctx, year)

	if len(ret) == 0 {
		panic("no return value specified for ReleaseLinks")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int) ([]string, error)); ok {
		return rf(ctx, year)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int) []string); ok {
		r0 = rf(ctx, year)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, int) error); ok {
		r1 = rf(ctx, year)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Release provides a mock function with given fields: ctx, url, year
func (_m *MockSource) Release(ctx context.Context, url string, year int) (*mojo.Scraped, error) {
	ret := _m.Called(ctx, url, year)

	if len(ret) == 0 {
		panic("no return value specified for Release")
	}

	var r0 *mojo.Scraped
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*mojo.Scraped, error)); ok {
		return rf(ctx, url, year)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) *mojo.Scraped); ok {
		r0 = rf(ctx, url, year)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*mojo.Scraped)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, url, year)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSource creates a new instance of MockSource.
func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	mock := &MockSource{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
