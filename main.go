package main

import (
	"log"
	"log/slog"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/modstage/burrow/comm"
)

var (
	version = "head" // set by command-line on CI release builds
	app     = kingpin.New("burrow", "Unpacks downloaded mod archives into staging folders")

	lsCmd      = app.Command("ls", "List the contents of an archive")
	extractCmd = app.Command("extract", "Extract an archive into a directory")
)

var appArgs = struct {
	json       *bool
	quiet      *bool
	verbose    *bool
	noProgress *bool
}{
	app.Flag("json", "Enable machine-readable JSON-lines output").Short('j').Bool(),
	app.Flag("quiet", "Hide progress indicators & other extra info").Short('q').Bool(),
	app.Flag("verbose", "Display as much extra info as possible").Short('v').Bool(),
	app.Flag("no-progress", "Doesn't show progress bars").Bool(),
}

var lsArgs = struct {
	archive  *string
	password *string
}{
	lsCmd.Arg("archive", "Path of the archive to list").Required().String(),
	lsCmd.Flag("password", "Password for encrypted archives").String(),
}

var extractArgs = struct {
	archive  *string
	dir      *string
	password *string
	nested   *bool
}{
	extractCmd.Arg("archive", "Path of the archive to extract").Required().String(),
	extractCmd.Flag("dir", "An optional directory to which to extract files (defaults to CWD)").Default(".").Short('d').String(),
	extractCmd.Flag("password", "Password for encrypted archives").String(),
	extractCmd.Flag("nested", "Open single-entry container archives one level deeper").Bool(),
}

func must(err error) {
	if err != nil {
		comm.Die(err.Error())
	}
}

func main() {
	app.HelpFlag.Short('h')
	app.Version(version)
	app.VersionFlag.Short('V')

	cmd, err := app.Parse(os.Args[1:])
	log.SetFlags(0)

	if *appArgs.quiet {
		*appArgs.noProgress = true
	}

	comm.Configure(*appArgs.noProgress, *appArgs.quiet, *appArgs.verbose, *appArgs.json)

	level := slog.LevelInfo
	if *appArgs.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(comm.NewSlogHandler(level)))

	switch kingpin.MustParse(cmd, err) {
	case lsCmd.FullCommand():
		ls(*lsArgs.archive, *lsArgs.password)

	case extractCmd.FullCommand():
		extract(*extractArgs.archive, *extractArgs.dir, *extractArgs.password, *extractArgs.nested)
	}
}
