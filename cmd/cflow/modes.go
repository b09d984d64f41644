package main

import (
	"os"
	"strings"
)

// switchMode is an auto|on|off setting. Auto follows whether the stream the
// setting applies to is a terminal.
type switchMode uint8

const (
	modeAuto switchMode = iota
	modeOn
	modeOff
)

func parseSwitchMode(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on":
		return modeOn, nil
	case "off":
		return modeOff, nil
	}
	return modeAuto, errInvalidFlag(flag, value, "auto|on|off")
}

func (m switchMode) enabledFor(f *os.File) bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	}
	return isTerminal(f)
}
