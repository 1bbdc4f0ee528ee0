package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap_PreservesCauseChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CategoryFileSystem, SeverityError, "failed to write document")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "filesystem")
	require.Contains(t, err.Error(), "disk full")
}

func TestIsCategory_MatchesWrappedErrors(t *testing.T) {
	inner := New(CategoryConfig, SeverityFatal, "unknown key")
	outer := fmt.Errorf("loading config: %w", inner)

	require.True(t, IsCategory(outer, CategoryConfig))
	require.False(t, IsCategory(outer, CategoryProcess))
	require.Equal(t, CategoryConfig, GetCategory(outer))
}

func TestGetCategory_PlainErrorIsInternal(t *testing.T) {
	require.Equal(t, CategoryInternal, GetCategory(fmt.Errorf("boom")))
}

func TestWithContext_AccumulatesFields(t *testing.T) {
	err := New(CategoryProcess, SeverityWarning, "flagged").
		WithContext("path", "docs/a.md").
		WithContext("line", 12)

	require.Equal(t, "docs/a.md", err.Context["path"])
	require.Equal(t, 12, err.Context["line"])
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 3, ExitCode(New(CategoryConfig, SeverityFatal, "bad config")))
	require.Equal(t, 3, ExitCode(New(CategoryValidation, SeverityFatal, "bad value")))
	require.Equal(t, 2, ExitCode(New(CategoryProcess, SeverityError, "failed")))
	require.Equal(t, 2, ExitCode(fmt.Errorf("plain")))
}

func TestIsRetryable(t *testing.T) {
	require.False(t, IsRetryable(New(CategoryWatch, SeverityError, "publish failed")))
	require.True(t, IsRetryable(WrapRetryable(fmt.Errorf("conn refused"), CategoryWatch, SeverityWarning, "publish failed")))
}
