package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// OK is printed on stdout and FAILED on stderr, so each is coloured only
// when its own stream is a terminal.
var (
	stdoutColour = terminal.IsTerminal(int(os.Stdout.Fd()))
	stderrColour = terminal.IsTerminal(int(os.Stderr.Fd()))
)

func inRed(str string) string {
	return fmt.Sprintf("\x1b[31;1m%s\x1b[0m", str)
}

func inGreen(str string) string {
	return fmt.Sprintf("\x1b[32;1m%s\x1b[0m", str)
}

func status(ok bool) string {
	switch {
	case ok && stdoutColour:
		return inGreen("OK")
	case ok:
		return "OK"
	case stderrColour:
		return inRed("FAILED")
	default:
		return "FAILED"
	}
}
