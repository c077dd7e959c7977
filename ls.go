package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/modstage/burrow/comm"
)

func ls(archivePath string, password string) {
	session := newSession(false)
	defer session.Close()

	if !session.Open(archivePath, passwordFunc(password)) {
		comm.Dief("could not open %s: %s", archivePath, session.LastError())
	}

	entries := session.FileList()

	if comm.JsonEnabled() {
		type jsonEntry struct {
			Path string `json:"path"`
			Size int64  `json:"size"`
			CRC  uint32 `json:"crc32"`
			Dir  bool   `json:"dir"`
		}
		listed := make([]jsonEntry, len(entries))
		for i, e := range entries {
			listed[i] = jsonEntry{Path: e.Path(), Size: e.Size(), CRC: e.CRC(), Dir: e.IsDir()}
		}
		comm.Result(listed)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Path", "Size", "CRC32"})

	var totalSize int64
	var numFiles, numDirs int
	for _, e := range entries {
		if e.IsDir() {
			numDirs++
			table.Append([]string{e.Path() + "/", "-", "-"})
			continue
		}

		numFiles++
		totalSize += e.Size()
		crc := "-"
		if e.CRC() != 0 {
			crc = fmt.Sprintf("%08x", e.CRC())
		}
		table.Append([]string{e.Path(), humanize.IBytes(uint64(e.Size())), crc})
	}
	table.Render()

	comm.Statf("%s (in %d files, %d dirs)", humanize.IBytes(uint64(totalSize)), numFiles, numDirs)
}
