package logflags

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var disasm = false
var emu = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Disasm returns true if the instruction resolver should log.
func Disasm() bool {
	return disasm
}

// DisasmLogger returns a logger for the instruction resolver.
func DisasmLogger() *logrus.Entry {
	return makeLogger(disasm, logrus.Fields{"layer": "disasm"})
}

// Emu returns true if emulation-assisted resolution should log.
func Emu() bool {
	return emu
}

// EmuLogger returns a logger for emulation-assisted resolution.
func EmuLogger() *logrus.Entry {
	return makeLogger(emu, logrus.Fields{"layer": "disasm", "kind": "emu"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "disasm"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "disasm":
			disasm = true
		case "emu":
			emu = true
		}
	}
	return nil
}
