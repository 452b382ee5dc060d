package nstat

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Output(name string, args ...string) ([]byte, error) {
	called := m.Called(name, args)
	out, _ := called.Get(0).([]byte)
	return out, called.Error(1)
}

func TestOptions_Args(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{"no flags", Options{}, []string{}},
		{"all only", Options{IncludeAll: true}, []string{"-a"}},
		{"json only", Options{JSON: true}, []string{"-j"}},
		{"no update only", Options{NoUpdate: true}, []string{"-s"}},
		{"regular", Regular, []string{"-j", "-s"}},
		{"all flags in fixed order", Options{NoUpdate: true, JSON: true, IncludeAll: true}, []string{"-a", "-j", "-s"}},
		{"all and no update", Options{IncludeAll: true, NoUpdate: true}, []string{"-a", "-s"}},
		{"reset", Reset, []string{"-n"}},
		{"reset eclipses others", Options{IncludeAll: true, JSON: true, NoUpdate: true, ResetHistory: true}, []string{"-n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.opts.Args())
		})
	}
}

func TestOptions_ResetPrecedence(t *testing.T) {
	// every combination of the other three flags
	for mask := 0; mask < 8; mask++ {
		opts := Options{
			IncludeAll:   mask&1 != 0,
			JSON:         mask&2 != 0,
			NoUpdate:     mask&4 != 0,
			ResetHistory: true,
		}
		assert.False(t, opts.Timestamped())
		assert.Equal(t, []string{FlagReset}, opts.Args())
		assert.Equal(t, "reset", opts.Kind())

		opts.ResetHistory = false
		assert.True(t, opts.Timestamped())
		assert.NotContains(t, opts.Args(), FlagReset)
		assert.Equal(t, "regular", opts.Kind())
	}
}

func TestCommand_Execute(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Output", "nstat", []string{"-j", "-s"}).Return([]byte(`{"kernel":{}}`), nil)

	cmd := NewCommand("", runner, nil)
	out, err := cmd.Execute(Regular)

	require.NoError(t, err)
	assert.Equal(t, `{"kernel":{}}`, out)
	runner.AssertExpectations(t)
}

func TestCommand_LaunchError(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Output", "nstat", []string{"-n"}).Return(nil, exec.ErrNotFound)

	cmd := NewCommand("nstat", runner, zap.NewNop())
	out, err := cmd.Execute(Reset)

	assert.Empty(t, out)
	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, "nstat -n", launchErr.Command)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestCommand_DecodeError(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Output", "nstat", []string{"-j", "-s"}).Return([]byte{0xff, 0xfe, 'x'}, nil)

	cmd := NewCommand("nstat", runner, nil)
	_, err := cmd.Execute(Regular)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 3, decodeErr.Size)
}

func TestExecRunner_Output(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := NewExecRunner().Output("sh", "-c", "printf '%s' hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	cmd := NewCommand("nstat-collector-test-missing-binary", NewExecRunner(), nil)
	_, err := cmd.Execute(Regular)

	var launchErr *LaunchError
	assert.True(t, errors.As(err, &launchErr))
}

func TestCommand_NonZeroExitKeepsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	core, logs := observer.New(zapcore.DebugLevel)
	runner := runnerFunc(func(name string, args ...string) ([]byte, error) {
		return NewExecRunner().Output("sh", "-c", "printf partial; exit 3")
	})
	cmd := NewCommand("nstat", runner, zap.New(core))

	out, err := cmd.Execute(Regular)
	require.NoError(t, err)
	assert.Equal(t, "partial", out)

	warnings := logs.FilterMessage("Command exited with non-zero status").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(3), warnings[0].ContextMap()["exit_code"])
}

type runnerFunc func(name string, args ...string) ([]byte, error)

func (f runnerFunc) Output(name string, args ...string) ([]byte, error) {
	return f(name, args...)
}
