package main

import "fmt"

// decodeCell decodes one cell out of page at the given byte offset,
// dispatching on the page's kind to one of the four cell layouts.
func decodeCell(page *Page, offset int) (*Cell, error) {
	switch page.Header.Kind {
	case PageInteriorTable:
		return decodeInteriorTableCell(page.Data, offset)
	case PageLeafTable:
		return decodeLeafTableCell(page.Data, offset)
	case PageInteriorIndex:
		return decodeInteriorIndexCell(page.Data, offset)
	case PageLeafIndex:
		return decodeLeafIndexCell(page.Data, offset)
	default:
		return nil, newErr(KindMalformedCell, "decode_cell", fmt.Errorf("page has no recognized kind"), nil)
	}
}

func decodeInteriorTableCell(data []byte, offset int) (*Cell, error) {
	if offset+4 > len(data) {
		return nil, newErr(KindMalformedCell, "decode_interior_table_cell", fmt.Errorf("offset %d exceeds page bounds", offset), nil)
	}
	childPage := be32(data[offset : offset+4])
	key, _, err := readVarint(data, offset+4)
	if err != nil {
		return nil, err
	}
	return &Cell{Kind: CellInteriorTable, LeftChildPage: childPage, Key: key}, nil
}

func decodeLeafTableCell(data []byte, offset int) (*Cell, error) {
	size, n1, err := readVarint(data, offset)
	if err != nil {
		return nil, err
	}
	rowid, n2, err := readVarint(data, offset+n1)
	if err != nil {
		return nil, err
	}
	cursor := offset + n1 + n2
	payload, overflowPage, err := slicePayload(data, cursor, size)
	if err != nil {
		return nil, err
	}
	return &Cell{
		Kind:         CellLeafTable,
		Rowid:        rowid,
		PayloadSize:  size,
		Payload:      payload,
		OverflowPage: overflowPage,
	}, nil
}

func decodeInteriorIndexCell(data []byte, offset int) (*Cell, error) {
	if offset+4 > len(data) {
		return nil, newErr(KindMalformedCell, "decode_interior_index_cell", fmt.Errorf("offset %d exceeds page bounds", offset), nil)
	}
	childPage := be32(data[offset : offset+4])
	size, n, err := readVarint(data, offset+4)
	if err != nil {
		return nil, err
	}
	cursor := offset + 4 + n
	payload, overflowPage, err := slicePayload(data, cursor, size)
	if err != nil {
		return nil, err
	}
	return &Cell{
		Kind:          CellInteriorIndex,
		LeftChildPage: childPage,
		PayloadSize:   size,
		Payload:       payload,
		OverflowPage:  overflowPage,
	}, nil
}

func decodeLeafIndexCell(data []byte, offset int) (*Cell, error) {
	size, n, err := readVarint(data, offset)
	if err != nil {
		return nil, err
	}
	cursor := offset + n
	payload, overflowPage, err := slicePayload(data, cursor, size)
	if err != nil {
		return nil, err
	}
	return &Cell{
		Kind:         CellLeafIndex,
		PayloadSize:  size,
		Payload:      payload,
		OverflowPage: overflowPage,
	}, nil
}

// slicePayload implements the overflow-detection rule shared by the three
// payload-bearing cell variants: if the declared size fits in the bytes
// remaining on the page after the cell header, the payload is that exact
// slice and overflow is zero. Otherwise the last four bytes of the
// available region hold the overflow page number and the payload slice is
// truncated to end before them — overflow is detected but not followed.
func slicePayload(data []byte, cursor int, size int64) ([]byte, uint32, error) {
	if cursor > len(data) || size < 0 {
		return nil, 0, newErr(KindMalformedCell, "slice_payload", fmt.Errorf("cell cursor %d out of bounds", cursor), nil)
	}
	remaining := len(data) - cursor
	if int64(remaining) >= size {
		return data[cursor : cursor+int(size)], 0, nil
	}
	if remaining < 4 {
		return nil, 0, newErr(KindMalformedCell, "slice_payload", fmt.Errorf("not enough room for overflow pointer at cursor %d", cursor), nil)
	}
	overflowPage := be32(data[cursor+remaining-4 : cursor+remaining])
	return data[cursor : cursor+remaining-4], overflowPage, nil
}
