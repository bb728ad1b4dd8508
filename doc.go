// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package mpq decodes the structure of MPQ (Mo'PaQ) archives: the header, the
optional user data preamble, and the tables that locate the packed files.

MPQ is an archive format created by Blizzard Entertainment, used in games like
Diablo, StarCraft, and World of Warcraft. This package reads all four header
layouts, from the original V1 format up to the V4 format introduced with
Cataclysm.

# Features

  - Pure Go, no CGO
  - Header format V1 through V4; newer versions decode with the V4 layout
  - User data preamble (StarCraft II replays and maps)
  - Hash, block and hi-block tables
  - HET and BET table prologues
  - Per-table results: a broken table never hides the others

# Basic Usage

	f, err := os.ReadFile("game.mpq")
	if err != nil {
		log.Fatal(err)
	}

	archive, err := mpq.Open(bytes.NewReader(f))
	if err != nil {
		log.Fatal(err) // no usable header
	}

	fmt.Println(archive.Header.FormatVersion, archive.Header.VirtualHashTableOffset())

	if blocks, ok := archive.BlockTable.Get(); ok {
		for _, b := range blocks {
			fmt.Println(b.DataOffset, b.StoredSize, b.Flags)
		}
	}
	if err := archive.Err(); err != nil {
		log.Printf("some tables failed: %v", err)
	}

The individual decoders ([DecodeHeader], [DecodeUserData], [DecodeHashTable],
[DecodeBlockTable], [DecodeHiBlockTable], [DecodeHETTable], [DecodeBETTable])
can also be used on their own. They take absolute positions in the source.

# Offsets

Every offset stored in a header is relative to the header's anchor, the
position of its "MPQ\x1A" magic. When a user data block precedes the header,
the anchor is the user data position plus [UserData.HeaderOffset].

From format V2 on, the hash and block table offsets have a 16-bit high word;
[Header.VirtualHashTableOffset] and [Header.VirtualBlockTableOffset] combine
them. Block data offsets are extended the same way by the hi-block table, see
[CombineOffset] and [Archive.FileOffset64].

# Limitations

This package reads structure only:

  - Hash and block tables are returned as stored; encrypted tables are not decrypted
  - No file extraction, decompression or checksum validation
  - V4 MD5 digests are decoded but not verified
  - The bit-packed parts of HET and BET tables are kept as raw bytes
*/
package mpq
