package main

import "fmt"

// Record is a decoded payload: an ordered sequence of ColumnValue. Rowid
// is populated for records decoded out of table-leaf cells (0 for index
// records, which carry no separate key).
type Record struct {
	Rowid  int64
	Values []ColumnValue
}

// decodeRecord parses the SQLite record format from payload: a varint
// header size, then one varint serial type per column until the header is
// exhausted, then the column values themselves back to back. rowid is 0
// for index records.
func decodeRecord(rowid int64, payload []byte) (Record, error) {
	headerSize, n, err := readVarint(payload, 0)
	if err != nil {
		return Record{}, err
	}
	if headerSize < int64(n) || int(headerSize) > len(payload) {
		return Record{}, newErr(KindMalformedRecord, "decode_record", fmt.Errorf("header size %d out of range for payload of %d bytes", headerSize, len(payload)), nil)
	}

	var serials []int64
	offset := n
	for offset < int(headerSize) {
		serial, read, err := readVarint(payload, offset)
		if err != nil {
			return Record{}, err
		}
		serials = append(serials, serial)
		offset += read
	}
	if offset != int(headerSize) {
		return Record{}, newErr(KindMalformedRecord, "decode_record", fmt.Errorf("serial type varints overran declared header size"), nil)
	}

	values := make([]ColumnValue, len(serials))
	cursor := int(headerSize)
	for i, serial := range serials {
		size, err := serialTypeSize(serial)
		if err != nil {
			return Record{}, err
		}
		if cursor+size > len(payload) {
			return Record{}, newErr(KindMalformedRecord, "decode_record", fmt.Errorf("column %d needs %d bytes past end of %d-byte payload", i, size, len(payload)), nil)
		}
		val, err := decodeColumnValue(serial, payload[cursor:cursor+size])
		if err != nil {
			return Record{}, err
		}
		values[i] = val
		cursor += size
	}

	return Record{Rowid: rowid, Values: values}, nil
}
