/*
Package gfio provides io functionality, including to/from stdin/stdout,
transparent decompression of gzipped input, and helpful error messages when
used in combination with bad filepaths from commandline options
*/
package gfio

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/pflag"
)

func parseInErr(err error, flagString string) error {
	switch x := err.(type) {
	case *fs.PathError:
		return errors.New(x.Op + " " + flagString + " " + x.Path + ": " + x.Err.Error())
	default:
		return err
	}
}

// OpenIn opens the file named by flag for reading. The magic value "stdin"
// means os.Stdin.
func OpenIn(flag pflag.Flag) (*os.File, error) {
	var err error
	var f *os.File

	inFile := flag.Value.String()
	var flagString string

	switch len(flag.Shorthand) {
	case 0:
		flagString = "--" + flag.Name
	default:
		flagString = "-" + flag.Shorthand + " / --" + flag.Name
	}

	if inFile != "stdin" {
		if f, err = os.Open(inFile); err != nil {
			err = parseInErr(err, flagString)
			return f, err
		}
	} else {
		f = os.Stdin
	}

	return f, nil
}

// OpenOut opens the file named by flag for writing. The magic value "stdout"
// means os.Stdout.
func OpenOut(flag pflag.Flag) (*os.File, error) {
	var err error
	var f *os.File

	outFile := flag.Value.String()

	if outFile != "stdout" {
		f, err = os.Create(outFile)
		if err != nil {
			return f, err
		}
	} else {
		f = os.Stdout
	}

	return f, nil
}

type decompressor struct {
	io.Reader
	gz *gzip.Reader
}

func (d decompressor) Close() error {
	if d.gz != nil {
		return d.gz.Close()
	}
	return nil
}

// Decompress wraps r so that gzipped content is read decompressed. Plain
// content is passed through untouched. The caller is responsible for closing
// the underlying file as well as the returned reader.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	// an input shorter than two bytes cannot be a gzip stream
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return decompressor{Reader: gz, gz: gz}, nil
	}

	return decompressor{Reader: br}, nil
}
