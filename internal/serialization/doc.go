// Package serialization provides the native .tfm container for trained tokenizers.
//
// A .tfm file carries one JSON header describing the tokenizer pipeline and one opaque data
// section holding the model itself, protected by a SHA-256 checksum:
//
//	Format Structure:
//	  [0x00: Magic "TFRG"]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved]
//	  [0x10: Header Size (uint64 LE)]
//	  [0x18: Data Size (uint64 LE)]
//	  [0x20: SHA-256 of the data section (32 bytes)]
//	  [0x40: Header: JSON]
//	  [Data: 64-byte aligned]
//
// Example usage:
//
//	w, err := serialization.NewWriter("tokenizer.tfm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Write(header, data); err != nil {
//	    log.Fatal(err)
//	}
//	w.Close()
//
//	r, err := serialization.NewReader("tokenizer.tfm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	data, err := r.Data()
package serialization
