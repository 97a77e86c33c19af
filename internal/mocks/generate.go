// Package mocks provides mock implementations for testing the gate's
// outbound ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the interfaces in internal/core. To regenerate mocks after interface
// changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	executor := mocks.NewMockBackendExecutor(ctrl)
//	executor.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(artifact, nil)
package mocks

// Generate mocks for the gate's outbound interfaces from internal/core:
// BackendExecutor, OutcomeStore, ScorecardArchiver, FailureNotifier.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=core_mocks.go github.com/teei/docgate/internal/core BackendExecutor,OutcomeStore,ScorecardArchiver,FailureNotifier
