// Package cip implements the subset of the Common Industrial Protocol used to read and write
// Allen-Bradley Logix tags, plus the EtherNet/IP encapsulation carrying it over TCP.
//
// Read and write requests address tags with ANSI extended symbolic segments (0x91). Dotted
// members produce one symbolic segment each, and "[i]" or "[i,j]" indices produce element
// segments:
//
//	Program:MainProgram.Motor[3].Speed
//
// Messages travel unconnected: the tag service is wrapped in an Unconnected Send (0x52)
// routed to the controller slot, placed in the unconnected data item of a SendRRData
// encapsulation, and sent on a session opened with RegisterSession. All multi-byte integers
// are little-endian.
package cip
