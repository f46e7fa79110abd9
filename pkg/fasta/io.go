package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	errBadlyFormedFasta = errors.New("badly formed fasta file")
)

type Reader struct {
	*bufio.Reader
	idx int
}

func NewReader(f io.Reader) *Reader {
	return &Reader{Reader: bufio.NewReader(f)}
}

// Read reads one fasta record from the underlying reader. The final record is
// returned with error = nil, and the next call to Read() returns an empty
// Record struct and error = io.EOF.
func (r *Reader) Read() (Record, error) {

	var (
		buffer, line, peek []byte
		err                error
		FR                 Record
	)

	first := true

	for {
		if first {
			line, err = r.ReadBytes('\n')

			// the file should never end on a fasta header line
			if err != nil {
				return Record{}, err
			} else if line[0] != '>' {
				return Record{}, errBadlyFormedFasta
			}

			line = dropNewline(line)

			fields := bytes.Fields(line[1:])
			if len(fields) == 0 {
				return Record{}, errBadlyFormedFasta
			}
			FR.ID = string(fields[0])
			FR.Description = string(line[1:])

			first = false

		} else {
			// peek at the next byte of the underlying reader, in order to see
			// if we've reached the end of this record (or the file)
			peek, err = r.Peek(1)

			if err == io.EOF || (err == nil && peek[0] == '>') {
				err = nil
				break
			} else if err != nil {
				return Record{}, err
			}

			// the err from ReadBytes() may be io.EOF if the file ends before a
			// newline character, which will be caught when we peek in the next
			// iteration of the loop
			line, err = r.ReadBytes('\n')
			if err != nil && err != io.EOF {
				return Record{}, err
			}

			buffer = append(buffer, dropNewline(line)...)
		}
	}

	FR.Seq = string(buffer)
	FR.Idx = r.idx
	r.idx++

	return FR, nil
}

// dropNewline strips a unix or dos line ending from the end of line
func dropNewline(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		drop := 1
		if len(line) > 1 && line[len(line)-2] == '\r' {
			drop = 2
		}
		line = line[:len(line)-drop]
	}
	return line
}

type Writer struct {
	*bufio.Writer
}

func NewWriter(f io.Writer) *Writer {
	return &Writer{bufio.NewWriter(f)}
}

// Write writes one fasta record to the underlying writer. The header line is
// the record's description if it has one, else its ID.
func (w *Writer) Write(FR Record) error {
	header := FR.Description
	if header == "" {
		header = FR.ID
	}

	if _, err := w.WriteString(">" + header + "\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(FR.Seq + "\n"); err != nil {
		return err
	}

	return nil
}
