package main

import "fmt"

// parsePage decodes a page header and its cell-pointer array out of a
// raw, already-read page_size buffer. For page 1 the buffer is the raw
// bytes starting at file offset 0 — i.e. it still carries the 100-byte
// database header in front of the B-tree page header — so the header
// itself is read starting at byte 100, and the cell pointers (which are
// stored on disk as offsets from the start of the file, not the start of
// the page) index directly into this same buffer without adjustment.
func parsePage(data []byte, pageNum int, pageSize int) (*Page, error) {
	headerStart := 0
	if pageNum == 1 {
		headerStart = headerSize
	}
	if headerStart+8 > len(data) {
		return nil, newErr(KindMalformedPage, "parse_page", fmt.Errorf("page %d too small for header", pageNum), nil)
	}

	kind := PageKind(data[headerStart])
	if !kind.valid() {
		return nil, newErr(KindMalformedPage, "parse_page", fmt.Errorf("page %d has invalid kind byte 0x%02x", pageNum, data[headerStart]), nil)
	}

	hdr := PageHeader{
		Kind:             kind,
		FirstFreeblock:   be16(data[headerStart+1 : headerStart+3]),
		CellCount:        be16(data[headerStart+3 : headerStart+5]),
		CellContentStart: be16(data[headerStart+5 : headerStart+7]),
		FragmentedBytes:  data[headerStart+7],
	}

	cellPtrStart := headerStart + 8
	if !kind.isLeaf() {
		if headerStart+12 > len(data) {
			return nil, newErr(KindMalformedPage, "parse_page", fmt.Errorf("page %d too small for interior header", pageNum), nil)
		}
		hdr.RightChildPage = be32(data[headerStart+8 : headerStart+12])
		cellPtrStart = headerStart + 12
	}

	offsets := make([]int, hdr.CellCount)
	for i := 0; i < int(hdr.CellCount); i++ {
		pos := cellPtrStart + i*2
		if pos+2 > len(data) {
			return nil, newErr(KindMalformedPage, "parse_page", fmt.Errorf("cell pointer %d exceeds page %d bounds", i, pageNum), nil)
		}
		ptr := int(be16(data[pos : pos+2]))
		lowBound := 0
		if pageNum == 1 {
			lowBound = headerSize
		}
		if ptr < lowBound || ptr >= pageSize {
			return nil, newErr(KindMalformedPage, "parse_page", fmt.Errorf("cell pointer %d (value %d) out of range for page %d", i, ptr, pageNum), nil)
		}
		offsets[i] = ptr
	}

	return &Page{
		Number:      pageNum,
		Header:      hdr,
		CellOffsets: offsets,
		Data:        data,
	}, nil
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
