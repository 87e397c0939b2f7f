package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/steinarvk/whizdex/lib/flatten"
)

func mainCore(reader io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(reader)

	const (
		maxLineLen = 1024 * 1024
	)

	// Handle longer lines
	buf := make([]byte, maxLineLen)
	scanner.Buffer(buf, maxLineLen)

	flattener := flatten.DefaultFlattener()
	flattener.MaxSerializedLength = maxLineLen
	flattener.MaxCapturedValueLength = 100

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		record, err := flattener.FlattenJSON(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}

		fmt.Fprintf(w, "%s\t%s\n", record.ID, record.Hash)

		for _, k := range record.FieldNames {
			value := record.Fields[k]
			if value == nil {
				fmt.Fprintf(w, "%s\tnull\n", k)
				continue
			}
			fmt.Fprintf(w, "%s\t%T\t%v\n", k, value, value)
		}
		fmt.Fprintln(w)
	}

	return scanner.Err()
}

func main() {
	if err := mainCore(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
