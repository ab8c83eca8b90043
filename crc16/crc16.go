// Package crc16 implements the CRC-16/XMODEM checksum used to protect ITP frames.
//
// The variant uses polynomial 0x1021 with a zero initial register, processes
// bits MSB-first with no reflection and applies no final XOR. It must match
// bit for bit any legacy peer computing the checksum one byte at a time.
package crc16

import (
	crc "github.com/sigurn/crc16"
)

// Poly is the CCITT generator polynomial, x^16 + x^12 + x^5 + 1.
const Poly = 0x1021

// Size of a checksum in bytes.
const Size = 2

var table = crc.MakeTable(crc.CRC16_XMODEM)

// Update returns the result of adding the bytes in p to crc. XMODEM has no
// final XOR, so a running value is also a finished checksum.
func Update(sum uint16, p []byte) uint16 {
	return crc.Update(sum, p, table)
}

// Checksum returns the CRC-16/XMODEM checksum of data.
func Checksum(data []byte) uint16 {
	return crc.Checksum(data, table)
}
