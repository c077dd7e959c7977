// Package comm handles all of burrow's console output: leveled log
// messages, progress display, and a machine-readable JSON-lines mode
// for when burrow is driven by another program.
package comm

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var settings = &struct {
	noProgress bool
	quiet      bool
	verbose    bool
	json       bool
}{}

// Configure sets all output options in one go.
func Configure(noProgress, quiet, verbose, jsonMode bool) {
	settings.noProgress = noProgress
	settings.quiet = quiet
	settings.verbose = verbose
	settings.json = jsonMode
}

// JsonEnabled reports whether output is in JSON-lines mode.
func JsonEnabled() bool {
	return settings.json
}

// JsonMessage is one machine-readable output line.
type JsonMessage map[string]interface{}

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// Opf prints a formatted string informing the user on what operation
// we're doing.
func Opf(format string, args ...interface{}) {
	Logf("%s %s", theme.OpSign, fmt.Sprintf(format, args...))
}

// Statf prints a formatted string informing the user how the
// operation went.
func Statf(format string, args ...interface{}) {
	Logf("%s %s", theme.StatSign, fmt.Sprintf(format, args...))
}

// Log sends an informational message to the client.
func Log(msg string) {
	Logl("info", msg)
}

// Logf is a formatted variant of Log.
func Logf(format string, args ...interface{}) {
	Loglf("info", format, args...)
}

// Warn lets the user know about a problem that's non-critical.
func Warn(msg string) {
	Logl("warning", msg)
}

// Warnf is a formatted variant of Warn.
func Warnf(format string, args ...interface{}) {
	Loglf("warning", format, args...)
}

// Debug messages are printed only when verbose.
func Debug(msg string) {
	Logl("debug", msg)
}

// Debugf is a formatted variant of Debug.
func Debugf(format string, args ...interface{}) {
	Loglf("debug", format, args...)
}

// Logl logs a message of a given level.
func Logl(level string, msg string) {
	send("log", JsonMessage{
		"message": msg,
		"level":   level,
	})
}

// Loglf logs a formatted message of a given level.
func Loglf(level string, format string, args ...interface{}) {
	Logl(level, fmt.Sprintf(format, args...))
}

// Die exits with a non-zero exit code after giving a reason to the
// client.
func Die(msg string) {
	send("error", JsonMessage{
		"message": msg,
	})
}

// Dief is a formatted variant of Die.
func Dief(format string, args ...interface{}) {
	Die(fmt.Sprintf(format, args...))
}

// Result sends a result in JSON mode; invisible otherwise.
func Result(value interface{}) {
	send("result", JsonMessage{
		"value": value,
	})
}

// Notice prints a box with important info in it.
func Notice(header string, lines []string) {
	if settings.json {
		Logf("notice: %s", header)
		for _, line := range lines {
			Logf("notice: %s", line)
		}
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetAutoFormatHeaders(false)
		table.SetColWidth(60)
		table.SetHeader([]string{header})
		for _, line := range lines {
			table.Append([]string{line})
		}
		table.Render()
	}
}

// send routes a message either to the console or to stdout as JSON.
func send(msgType string, obj JsonMessage) {
	if settings.json {
		obj["type"] = msgType
		obj["time"] = time.Now().UTC().Unix()
		if msgType == "log" && obj["level"] == "debug" && !settings.verbose {
			return
		}

		sendJSON(obj)
		if msgType == "error" {
			os.Exit(1)
		}
		return
	}

	switch msgType {
	case "log":
		switch obj["level"] {
		case "info":
			if !settings.quiet {
				log.Println(obj["message"])
			}
		case "debug":
			if !settings.quiet && settings.verbose {
				log.Println(obj["message"])
			}
		case "warning":
			warnColor.Fprintf(os.Stderr, "warning: %s\n", obj["message"])
		default:
			errColor.Fprintf(os.Stderr, "%s: %s\n", obj["level"], obj["message"])
		}
	case "error":
		EndProgress()
		errColor.Fprintf(os.Stderr, "%s\n", obj["message"])
		os.Exit(1)
	case "result":
		// don't show outside json mode
	default:
		log.Println(msgType, obj)
	}
}

// sendJSON writes one JSON-encoded line to stdout.
func sendJSON(obj JsonMessage) {
	payload, _ := json.Marshal(obj)
	fmt.Println(string(payload))
}
