package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/zberg/go-omegatx/pkg/omegatx"
)

const (
	bashRed  = "\033[0;31m"
	colorOff = "\033[0m"

	connectErrorMessage = "Could not connect to device."
)

// writeReading prints r as indented JSON with sorted keys.
func writeReading(w io.Writer, r omegatx.Reading) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(r)
}

func writeConnectError(w io.Writer) {
	if isTerminal(w) {
		fmt.Fprintf(w, "%s%s%s\n", bashRed, connectErrorMessage, colorOff)
		return
	}
	fmt.Fprintln(w, connectErrorMessage)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
