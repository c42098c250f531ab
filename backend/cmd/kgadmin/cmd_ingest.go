package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"brewgraph/backend/internal/normalize"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest canonical product records into the source store and graph",
		Long: `Read product records from a file and ingest each one: validate, upsert
into the source store, derive its graph and sync it.

The file holds either a JSON array of records or one JSON record per line.
Use --file - to read from stdin. A record that fails never stops the batch.

Examples:
  kgadmin ingest --file records.json
  kgadmin ingest --file records.jsonl --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}

			var in io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer f.Close()
				in = f
			}

			records, err := readRecords(in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sm, done, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer done()

			if err := sm.Maintainer.Setup(ctx); err != nil {
				return err
			}
			report, err := sm.Maintainer.IngestBatch(ctx, records)
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
	cmd.Flags().String("file", "", "Path to a JSON array or JSON lines file (- for stdin)")
	return cmd
}

// readRecords decodes a JSON array or a stream of JSON objects
func readRecords(r io.Reader) ([]*normalize.ProductRecord, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []*normalize.ProductRecord
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode record array: %w", err)
		}
		return records, nil
	}

	var records []*normalize.ProductRecord
	for n := 1; ; n++ {
		var rec normalize.ProductRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", n, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
