package cmds

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/config"
	"github.com/go-delve/hwbreak/pkg/hwbreak"
	"github.com/go-delve/hwbreak/pkg/hwbreak/hwbreaktest"
)

const testTid = 77

func execute(t *testing.T, ts *hwbreaktest.Threads, c *config.Config, wait func(), args ...string) (string, error) {
	t.Helper()
	oldOpen, oldWait := openThreads, waitForInterrupt
	defer func() {
		openThreads, waitForInterrupt = oldOpen, oldWait
	}()
	openThreads = func() hwbreak.Threads { return ts }
	waitForInterrupt = func() {
		if wait != nil {
			wait()
		}
	}

	var buf bytes.Buffer
	cmd := New(c)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireRow(t *testing.T, out, pattern string) {
	t.Helper()
	require.Regexp(t, regexp.MustCompile(`(?m)^`+pattern+`\s*$`), out)
}

func TestDecode(t *testing.T) {
	out, err := execute(t, nil, nil, nil, "decode", "0x80d0401")
	require.NoError(t, err)
	requireRow(t, out, `0\s+1\s+0\s+write\s+4`)
	requireRow(t, out, `1\s+0\s+0\s+execute\s+1`)
	requireRow(t, out, `2\s+0\s+0\s+execute\s+8`)
	requireRow(t, out, `3\s+0\s+0\s+execute\s+1`)
	require.Contains(t, out, "Other bits 0x400")

	_, err = execute(t, nil, nil, nil, "decode", "dr7")
	require.Error(t, err)
}

func TestSet(t *testing.T) {
	ts := hwbreaktest.NewThreads()
	armed := false
	wait := func() {
		addr, rw, sz, ok := ts.Registers(testTid).Breakpoint(0)
		require.True(t, ok)
		require.Equal(t, uint64(0xc000012345), addr)
		require.Equal(t, amd64util.RWWrite, rw)
		require.Equal(t, 4, sz)
		armed = true
	}
	out, err := execute(t, ts, nil, wait, "set", "--tid", "77", "--addr", "0xc000012345")
	require.NoError(t, err)
	require.True(t, armed)
	require.Contains(t, out, "on thread 77, slot 0")
	require.Contains(t, out, "cleared")
	require.Equal(t, amd64util.DebugRegisters{}, *ts.Registers(testTid))
	require.Equal(t, 0, ts.OpenHandles())
	require.Equal(t, 0, ts.SuspendCount(testTid))
}

func TestSetConfigDefaults(t *testing.T) {
	ts := hwbreaktest.NewThreads()
	c := &config.Config{DefaultCondition: "rw", DefaultLength: 8}
	wait := func() {
		_, rw, sz, ok := ts.Registers(testTid).Breakpoint(0)
		require.True(t, ok)
		require.Equal(t, amd64util.RWReadWrite, rw)
		require.Equal(t, 8, sz)
	}
	_, err := execute(t, ts, c, wait, "set", "-t", "77", "-a", "0x1000")
	require.NoError(t, err)

	// flags win over the configuration
	wait = func() {
		_, rw, sz, ok := ts.Registers(testTid).Breakpoint(0)
		require.True(t, ok)
		require.Equal(t, amd64util.RWExecute, rw)
		require.Equal(t, 1, sz)
	}
	_, err = execute(t, ts, c, wait, "set", "-t", "77", "-a", "0x1000", "-c", "x", "-l", "1")
	require.NoError(t, err)
}

func TestSetErrors(t *testing.T) {
	ts := hwbreaktest.NewThreads()
	for _, args := range [][]string{
		{"set", "--tid", "77", "--addr", "nowhere"},
		{"set", "--tid", "77", "--addr", "0x1000", "--cond", "read"},
		{"set", "--tid", "77", "--addr", "0x1000", "--len", "3"},
		{"set", "--addr", "0x1000"},
	} {
		_, err := execute(t, ts, nil, nil, args...)
		require.Error(t, err, strings.Join(args, " "))
	}
	require.Equal(t, 0, ts.Calls(hwbreaktest.Open))

	ts.SetRegisters(testTid, amd64util.DebugRegisters{DR7: 0x55})
	_, err := execute(t, ts, nil, func() { t.Fatal("breakpoint armed with every slot in use") }, "set", "--tid", "77", "--addr", "0x1000")
	require.True(t, errors.Is(err, hwbreak.SlotExhausted), "got %v", err)
	require.Equal(t, uint64(0x55), ts.Registers(testTid).DR7)
}

func TestShow(t *testing.T) {
	ts := hwbreaktest.NewThreads()
	ts.SetRegisters(testTid, amd64util.DebugRegisters{
		Addrs: [4]uint64{0, 0x7ff6a000, 0, 0},
		DR7:   1<<2 | 0x3<<20 | 0x2<<22,
	})
	out, err := execute(t, ts, nil, nil, "show", "--tid", "77")
	require.NoError(t, err)
	require.Contains(t, out, "Thread 77")
	requireRow(t, out, `1\s+1\s+0\s+readwrite\s+8\s+0x7ff6a000`)
	requireRow(t, out, `0\s+0\s+0\s+execute\s+1\s+0x0`)
	require.Equal(t, 0, ts.Calls(hwbreaktest.SetContext))
	require.Equal(t, 0, ts.SuspendCount(testTid))

	ts.FailAt(hwbreaktest.Open, hwbreaktest.ErrInjected)
	_, err = execute(t, ts, nil, nil, "show", "--tid", "77")
	require.True(t, errors.Is(err, hwbreak.HandleAcquisitionFailure), "got %v", err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, nil, nil, "version")
	require.NoError(t, err)
	require.Contains(t, out, "Version: 0.3.0")
}

func TestLogOutputWithoutLog(t *testing.T) {
	_, err := execute(t, nil, nil, nil, "--log-output", "hwbreak", "version")
	require.Error(t, err)
}
