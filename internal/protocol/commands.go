package protocol

// StmtExecuteFlags values for COM_STMT_EXECUTE's cursor-type byte.
const (
	CursorTypeNoCursor byte = 0x00
)

// BuildComQuery builds a COM_QUERY payload body (command byte is added by
// PacketCodec.WriteCommand).
func BuildComQuery(sql string) []byte {
	return []byte(sql)
}

// BuildComInitDB builds a COM_INIT_DB payload body.
func BuildComInitDB(schema string) []byte {
	return []byte(schema)
}

// BuildComStmtPrepare builds a COM_STMT_PREPARE payload body.
func BuildComStmtPrepare(sql string) []byte {
	return []byte(sql)
}

// BoundParam is one bound value for COM_STMT_EXECUTE: its wire type byte,
// whether it is unsigned, whether it is NULL, and its already-encoded
// binary-protocol bytes (empty when IsNull).
type BoundParam struct {
	Type     ColumnType
	Unsigned bool
	IsNull   bool
	Data     []byte
}

// BuildComStmtExecute builds a COM_STMT_EXECUTE payload body per spec.md
// §4.4: stmt_id, flags, iteration count, NULL bitmap, new-params-bound
// flag, optional per-param (type, value) pairs, then parameter values.
func BuildComStmtExecute(stmtID uint32, params []BoundParam, sendTypes bool) []byte {
	buf := AppendUint32(nil, stmtID)
	buf = append(buf, CursorTypeNoCursor)
	buf = AppendUint32(buf, 1) // iteration count, always 1

	if len(params) > 0 {
		bitmap := make([]byte, (len(params)+7)/8)
		for i, p := range params {
			if p.IsNull {
				bitmap[i/8] |= 1 << uint(i%8)
			}
		}
		buf = append(buf, bitmap...)

		newParamsBound := byte(0)
		if sendTypes {
			newParamsBound = 1
		}
		buf = append(buf, newParamsBound)

		if sendTypes {
			for _, p := range params {
				typeByte := byte(p.Type)
				flagByte := byte(0)
				if p.Unsigned {
					flagByte = 0x80
				}
				buf = append(buf, typeByte, flagByte)
			}
		}

		for _, p := range params {
			if !p.IsNull {
				buf = append(buf, p.Data...)
			}
		}
	}
	return buf
}

// BuildComStmtClose builds a COM_STMT_CLOSE payload body. The server sends
// no reply to this command.
func BuildComStmtClose(stmtID uint32) []byte {
	return AppendUint32(nil, stmtID)
}

// BuildComStmtReset builds a COM_STMT_RESET payload body.
func BuildComStmtReset(stmtID uint32) []byte {
	return AppendUint32(nil, stmtID)
}

// BuildComStmtSendLongData builds a COM_STMT_SEND_LONG_DATA payload body.
func BuildComStmtSendLongData(stmtID uint32, paramIndex uint16, data []byte) []byte {
	buf := AppendUint32(nil, stmtID)
	buf = AppendUint16(buf, paramIndex)
	return append(buf, data...)
}

// BuildComChangeUser builds a COM_CHANGE_USER payload body, spec.md §4.6.
func BuildComChangeUser(username string, authResponse []byte, database string, charset byte, authPluginName string, attrs []byte) []byte {
	buf := append([]byte(username), 0)
	buf = append(buf, byte(len(authResponse)))
	buf = append(buf, authResponse...)
	buf = append(buf, []byte(database)...)
	buf = append(buf, 0)
	buf = AppendUint16(buf, uint16(charset))
	buf = append(buf, []byte(authPluginName)...)
	buf = append(buf, 0)
	buf = append(buf, attrs...)
	return buf
}

// BuildComSetOption builds a COM_SET_OPTION payload body; optionValue 0
// enables multi-statements, 1 disables them.
func BuildComSetOption(optionValue uint16) []byte {
	return AppendUint16(nil, optionValue)
}
