/*
Package fasta provides types and functions for reading and writing fasta
format files
*/
package fasta

// A struct for one Fasta record
type Record struct {
	ID          string
	Description string
	Seq         string
	Idx         int
}
