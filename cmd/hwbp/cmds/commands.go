package cmds

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/config"
	"github.com/go-delve/hwbreak/pkg/hwbreak"
	"github.com/go-delve/hwbreak/pkg/logflags"
	"github.com/go-delve/hwbreak/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// threadID is the id of the thread operated on by set and show.
	threadID uint32
	// addr is the watched address.
	addr string
	// condName is the breakpoint condition.
	condName string
	// size is the size of the watched region in bytes.
	size int

	// verbose makes the version command print build information.
	verbose bool

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

// Replaced in tests.
var (
	openThreads      = hwbreak.NativeThreads
	waitForInterrupt = func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		signal.Stop(ch)
	}
)

const (
	defaultCondition = "write"
	defaultSize      = 4
)

const hwbpCommandLongDesc = `hwbp arms x86 hardware breakpoints on operating system threads.

A hardware breakpoint watches an address for instruction execution, data
writes, I/O accesses or data reads and writes without modifying the code of
the target. Each thread has four breakpoint slots.

Breakpoints armed by hwbp only cause a debug exception in the target, the
target process must handle it.`

// New returns an initialized command tree.
func New(c *config.Config) *cobra.Command {
	conf = c
	if conf == nil {
		conf = &config.Config{}
	}

	// Main hwbp root command.
	rootCommand = &cobra.Command{
		Use:           "hwbp",
		Short:         "hwbp manages hardware breakpoints.",
		Long:          hwbpCommandLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logFlag, logstr := log, logOutput
			if !cmd.Flags().Changed("log") {
				logFlag = logFlag || conf.Log
			}
			if !cmd.Flags().Changed("log-output") && logstr == "" {
				logstr = conf.LogOutput
			}
			return logflags.Setup(logFlag, logstr, logDest)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logflags.Close()
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (hwbreak, native).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")

	// 'set' subcommand.
	setCommand := &cobra.Command{
		Use:   "set",
		Short: "Arm a hardware breakpoint on a thread.",
		Long: `Arm a hardware breakpoint on a thread.

The breakpoint is assigned the first free slot of the thread and stays armed
until hwbp receives an interrupt, it is then disarmed.

Conditions: execute (x), write (w), io, readwrite (rw).
Sizes: 1, 2, 4, 8 bytes. Execute breakpoints should use size 1.`,
		Args: cobra.NoArgs,
		RunE: setCmd,
	}
	setCommand.Flags().Uint32VarP(&threadID, "tid", "t", 0, "Id of the thread to watch.")
	setCommand.Flags().StringVarP(&addr, "addr", "a", "", "Address to watch.")
	setCommand.Flags().StringVarP(&condName, "cond", "c", "", "Breakpoint condition (default from config, or write).")
	setCommand.Flags().IntVarP(&size, "len", "l", 0, "Size of the watched region in bytes (default from config, or 4).")
	setCommand.MarkFlagRequired("tid")
	setCommand.MarkFlagRequired("addr")
	rootCommand.AddCommand(setCommand)

	// 'show' subcommand.
	showCommand := &cobra.Command{
		Use:   "show",
		Short: "Print the debug registers of a thread.",
		Args:  cobra.NoArgs,
		RunE:  showCmd,
	}
	showCommand.Flags().Uint32VarP(&threadID, "tid", "t", 0, "Id of the thread.")
	showCommand.MarkFlagRequired("tid")
	rootCommand.AddCommand(showCommand)

	// 'decode' subcommand.
	decodeCommand := &cobra.Command{
		Use:   "decode <dr7>",
		Short: "Decode a debug control register value.",
		Args:  cobra.ExactArgs(1),
		RunE:  decodeCmd,
	}
	rootCommand.AddCommand(decodeCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hwbp\n%s\n", version.HWBPVersion)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&verbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func threads() hwbreak.Threads {
	t := openThreads()
	if conf.SerializeEnabled() {
		t = hwbreak.Serialize(t)
	}
	return t
}

func setCmd(cmd *cobra.Command, args []string) error {
	target, err := strconv.ParseUint(addr, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q: %v", addr, err)
	}

	name := condName
	if name == "" {
		name = conf.DefaultCondition
	}
	if name == "" {
		name = defaultCondition
	}
	cond, err := hwbreak.ParseCondition(name)
	if err != nil {
		return err
	}

	sz := size
	if sz == 0 {
		sz = conf.DefaultLength
	}
	if sz == 0 {
		sz = defaultSize
	}
	length, err := hwbreak.LengthFromSize(sz)
	if err != nil {
		return err
	}

	bp, err := hwbreak.CreateOn(threads(), target, threadID, cond, length)
	if err != nil {
		return err
	}
	if err := bp.Enable(); err != nil {
		return err
	}
	slot, _ := bp.Slot()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Breakpoint %s set at %#x (%s, %s) on thread %d, slot %d\n", bp.ID(), target, cond, length, threadID, slot)
	fmt.Fprintln(out, "Press Ctrl-C to clear it.")

	waitForInterrupt()

	if err := bp.Destroy(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Breakpoint %s cleared\n", bp.ID())
	return nil
}

func showCmd(cmd *cobra.Command, args []string) error {
	drs, err := hwbreak.Inspect(threads(), threadID)
	if err != nil {
		return err
	}
	w, color := output(cmd)
	fmt.Fprintf(w, "Thread %d\nDR6 %#016x\nDR7 %#016x\n", threadID, drs.DR6, drs.DR7)
	printSlots(w, color, drs.ControlRegister(), &drs)
	return nil
}

func decodeCmd(cmd *cobra.Command, args []string) error {
	raw, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid register value %q: %v", args[0], err)
	}
	w, color := output(cmd)
	cr := amd64util.DecodeDR7(raw)
	printSlots(w, color, cr, nil)
	fmt.Fprintf(w, "Other bits %#x\n", cr.Other())
	return nil
}

// output returns the writer for tabular output and whether it accepts
// color escapes.
func output(cmd *cobra.Command) (io.Writer, bool) {
	w := cmd.OutOrStdout()
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		if isatty.IsTerminal(f.Fd()) {
			return colorable.NewColorableStdout(), true
		}
	}
	return w, false
}

// Both color prefixes have the same length so that tabwriter keeps the
// columns aligned.
const (
	colorEnabled  = "\x1b[32m"
	colorDisabled = "\x1b[39m"
	colorReset    = "\x1b[0m"
)

func printSlots(w io.Writer, color bool, cr amd64util.ControlRegister, drs *amd64util.DebugRegisters) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	header := "Slot\tL\tG\tType\tLen"
	if drs != nil {
		header += "\tAddress"
	}
	if color {
		header = colorDisabled + header + colorReset
	}
	fmt.Fprintln(tw, header)
	for i, s := range cr.Slots {
		line := fmt.Sprintf("%d\t%s\t%s\t%s\t%d", i, bit(s.LocalEnable), bit(s.GlobalEnable), hwbreak.Condition(s.RW), amd64util.LenSize(s.Len))
		if drs != nil {
			line += fmt.Sprintf("\t%#x", drs.Addrs[i])
		}
		if color {
			prefix := colorDisabled
			if s.LocalEnable || s.GlobalEnable {
				prefix = colorEnabled
			}
			line = prefix + line + colorReset
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
