package runtime

import "hash/crc32"

// ieeeTable is the standard ISO 3309 / PKZIP polynomial (0xEDB88320,
// reflected).
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the checksum `crc32_of` computed fields and PNG-style
// chunk trailers require: initial 0xFFFFFFFF, final XOR 0xFFFFFFFF,
// reflected 0xEDB88320 polynomial. crc32.ChecksumIEEE already implements
// exactly this table and init/final convention.
func CRC32(b []byte) uint32 {
	return crc32.Checksum(b, ieeeTable)
}
