package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"vimagination.zapto.org/segio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		decompress bool
		keep       bool
		stdout     bool
	)

	flag.BoolVar(&decompress, "d", false, "decompress instead of compress")
	flag.BoolVar(&keep, "k", false, "keep the input files")
	flag.BoolVar(&stdout, "c", false, "write to standard output")
	flag.Parse()

	if flag.NArg() == 0 {
		if decompress {
			return gunzip(os.Stdout, os.Stdin)
		}

		return gzip(os.Stdout, os.Stdin)
	}

	for _, name := range flag.Args() {
		if err := processFile(name, decompress, keep, stdout); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func processFile(name string, decompress, keep, stdout bool) error {
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = os.Stdout

	if !stdout {
		outName := name + ".gz"

		if decompress {
			if !strings.HasSuffix(name, ".gz") {
				return errors.New("unknown suffix")
			}

			outName = strings.TrimSuffix(name, ".gz")
		}

		f, err := os.Create(outName)
		if err != nil {
			return err
		}

		defer f.Close()

		out = f
	}

	if decompress {
		err = gunzip(out, in)
	} else {
		err = gzip(out, in)
	}

	if err != nil {
		return err
	}

	if !keep && !stdout {
		return os.Remove(name)
	}

	return nil
}

func gzip(w io.Writer, r io.Reader) error {
	sink := segio.NewGzipSink(segio.NewSink(w))
	source := segio.NewSource(r)
	buffer := new(segio.Buffer)

	for {
		_, err := source.ReadTo(buffer, segio.SegmentSize)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if err := sink.WriteFrom(buffer, buffer.Size()); err != nil {
			return err
		}
	}

	return sink.Close()
}

func gunzip(w io.Writer, r io.Reader) error {
	source := segio.NewGzipSource(segio.NewSource(r))
	sink := segio.NewSink(w)
	buffer := new(segio.Buffer)

	for {
		_, err := source.ReadTo(buffer, segio.SegmentSize)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if err := sink.WriteFrom(buffer, buffer.Size()); err != nil {
			return err
		}
	}

	if err := source.Close(); err != nil {
		return err
	}

	return sink.Close()
}
