package logflags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var hwbreak = false
var native = false

var logOut io.WriteCloser

var textFormatterInstance = &logrus.TextFormatter{FullTimestamp: true}

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if flag {
		return makeLogger(logrus.DebugLevel, fields)
	}
	return makeLogger(logrus.ErrorLevel, fields)
}

// HWBreak returns true if breakpoint transactions should be logged.
func HWBreak() bool {
	return hwbreak
}

// HWBreakLogger returns a logger for the hwbreak package.
func HWBreakLogger() Logger {
	return makeFlaggableLogger(hwbreak, Fields{"layer": "hwbreak"})
}

// Native returns true if calls to operating system primitives should be
// logged.
func Native() bool {
	return native
}

// NativeLogger returns a logger for the native package.
func NativeLogger() Logger {
	return makeFlaggableLogger(native, Fields{"layer": "native"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "hwbp-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	var out io.Writer = os.Stderr
	if logOut != nil {
		out = logOut
	}
	textFormatterInstance.DisableColors = !isTerminal(out)

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	log.SetOutput(out)
	if logstr == "" {
		logstr = "hwbreak"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "hwbreak":
			hwbreak = true
		case "native":
			native = true
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
