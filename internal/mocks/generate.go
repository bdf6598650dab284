// Package mocks provides generated mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core interfaces that cross process boundaries. The mocks are generated
// using go:generate directives and provide a fluent API for setting up test
// expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRunner := mocks.NewMockRunnerClient(ctrl)
//	mockRunner.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("rp-1", nil)
package mocks

// Generate mock for the RunnerClient interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=runner_client_mock.go github.com/openvid/openvid/internal/core RunnerClient

// Generate mock for the RateLimiter interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=rate_limiter_mock.go github.com/openvid/openvid/internal/core RateLimiter
