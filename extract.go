package main

import (
	"os"
	"os/signal"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/modstage/burrow/archive"
	"github.com/modstage/burrow/comm"
)

func extract(archivePath string, dir string, password string, nested bool) {
	session := newSession(nested)
	defer session.Close()

	if !session.Open(archivePath, passwordFunc(password)) {
		comm.Dief("could not open %s: %s", archivePath, session.LastError())
	}

	// everything extracts to its own archive path
	var totalSize int64
	for _, e := range session.FileList() {
		e.AddOutputPath(e.Path())
		totalSize += e.Size()
	}

	// a second ctrl-c kills us the hard way
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		<-interrupts
		comm.Warn("cancelling extraction...")
		session.Cancel()
	}()
	defer signal.Stop(interrupts)

	comm.Opf("extracting %s to %s", archivePath, dir)
	comm.StartProgress()

	startTime := time.Now()

	ok := session.Extract(dir,
		func(kind archive.ProgressKind, current int64, total int64) {
			if total > 0 {
				comm.Progress(float64(current) / float64(total))
			}
		},
		func(kind archive.FileChangeKind, path string) {
			comm.ProgressLabel(path)
		},
		func(message string) {
			comm.Warn(message)
		},
	)

	comm.EndProgress()

	if !ok {
		comm.Dief("extraction failed: %s", session.LastError())
	}

	duration := time.Since(startTime)
	perSecond := "∞ B"
	if duration.Seconds() > 0 {
		perSecond = humanize.IBytes(uint64(float64(totalSize) / duration.Seconds()))
	}
	comm.Statf("extracted %s in %s (%s/s)", humanize.IBytes(uint64(totalSize)), duration.Round(time.Millisecond), perSecond)
}

func newSession(nested bool) *archive.Session {
	opts := []archive.Option{
		archive.WithLogCallback(func(level archive.LogLevel, message string) {
			comm.Logl(level.String(), message)
		}),
		archive.WithConsumer(comm.NewStateConsumer()),
	}
	if nested {
		opts = append(opts, archive.WithNestedContainers())
	}

	return archive.New(opts...)
}

func passwordFunc(password string) archive.PasswordFunc {
	if password == "" {
		return nil
	}
	return func() string {
		return password
	}
}
