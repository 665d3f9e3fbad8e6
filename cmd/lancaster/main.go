// Command lancaster reads an Avro object container file and reports its
// schema, codec, and object count.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/atsheehan/lancaster"
)

func main() {
	var countOnly bool

	rootCmd := &cobra.Command{
		Use:   "lancaster <file.avro>",
		Short: "Inspect and decode Avro object container files",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				_ = cmd.Usage()
				return err
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], countOnly, os.Stdout)
		},
	}

	rootCmd.Flags().BoolVar(&countOnly, "count", false, "print only the total object count")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lancaster: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, countOnly bool, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := lancaster.Open(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var count int64
	for {
		_, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		count++
	}

	if countOnly {
		fmt.Fprintln(out, count)
		return nil
	}

	metadata := dec.Metadata()
	for _, key := range dec.MetadataKeys() {
		fmt.Fprintf(out, "%s: %s\n", key, metadata[key])
	}
	fmt.Fprintf(out, "objects: %d\n", count)
	return nil
}
