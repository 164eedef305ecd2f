// Package serialization stores named tensors in SafeTensors files and maps them back.
//
// A file is an 8-byte little-endian header length, a JSON header and the tensor data:
//
//	[8 bytes]  N, uint64 little-endian
//	[N bytes]  {"name": {"dtype": "F32", "shape": [2, 3], "data_offsets": [0, 24]}, ...}
//	[...]      row-major little-endian tensor data
//
// The header is padded with spaces so the data section starts on a 64-byte boundary.
// A "__metadata__" entry holds free-form string metadata; the writer records a SHA-256 of
// the data section there under "sha256".
//
// Files are read through a read-only memory mapping. Tensors loaded from a File wrap the
// mapped bytes without copying when their offset is aligned for the element type, and must
// not be used after the File is closed.
package serialization
