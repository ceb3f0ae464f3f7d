package protocol

import "github.com/pkg/errors"

// ColumnDefinition41 describes one result-set column, spec.md §3.
type ColumnDefinition41 struct {
	Catalog  string
	Schema   string
	Table    string
	OrgTable string
	Name     string
	OrgName  string
	Charset  uint16
	Length   uint32
	Type     ColumnType
	Flags    ColumnFlag
	Decimals byte
}

// ParseColumnDefinition41 decodes one column-definition packet body.
func ParseColumnDefinition41(payload []byte) (*ColumnDefinition41, error) {
	c := &ColumnDefinition41{}
	off := 0
	fields := []*string{&c.Catalog, &c.Schema, &c.Table, &c.OrgTable, &c.Name, &c.OrgName}
	for _, f := range fields {
		s, _, n, err := ReadLengthEncodedString(payload[off:])
		if err != nil {
			return nil, errors.Wrap(err, "protocol: column definition string field")
		}
		*f = string(s)
		off += n
	}

	// length of fixed-length fields, always 0x0c
	_, _, n, err := ReadLengthEncodedInt(payload[off:])
	if err != nil {
		return nil, errors.Wrap(err, "protocol: column definition fixed-length marker")
	}
	off += n

	if len(payload) < off+12 {
		return nil, errors.New("protocol: truncated column definition")
	}
	c.Charset = ReadUint16(payload[off:])
	off += 2
	c.Length = ReadUint32(payload[off:])
	off += 4
	c.Type = ColumnType(payload[off])
	off++
	c.Flags = ColumnFlag(ReadUint16(payload[off:]))
	off += 2
	c.Decimals = payload[off]

	return c, nil
}

// EncodeColumnDefinition41 is used by tests to build server fixtures.
func EncodeColumnDefinition41(c *ColumnDefinition41) []byte {
	buf := AppendLengthEncodedString(nil, []byte("def"))
	buf = AppendLengthEncodedString(buf, []byte(c.Schema))
	buf = AppendLengthEncodedString(buf, []byte(c.Table))
	buf = AppendLengthEncodedString(buf, []byte(c.OrgTable))
	buf = AppendLengthEncodedString(buf, []byte(c.Name))
	buf = AppendLengthEncodedString(buf, []byte(c.OrgName))
	buf = AppendLengthEncodedInt(buf, 0x0c)
	buf = AppendUint16(buf, c.Charset)
	buf = AppendUint32(buf, c.Length)
	buf = append(buf, byte(c.Type))
	buf = AppendUint16(buf, uint16(c.Flags))
	buf = append(buf, c.Decimals)
	buf = append(buf, 0, 0) // filler
	return buf
}
