// Package common holds the small shared vocabulary used across the
// ingestion path: logical types, CSV options, line context and errors.
package common

import "fmt"

// PhysicalType is the wire/storage representation a LogicalType maps to.
type PhysicalType int

const (
	PhysicalBool PhysicalType = iota
	PhysicalInt16
	PhysicalInt32
	PhysicalInt64
	PhysicalFloat
	PhysicalDouble
	PhysicalInterval
	PhysicalInternalID
	PhysicalString
	PhysicalVarList
	PhysicalStruct
)

// TypeID names every logical type the store understands.
type TypeID int

const (
	BOOL TypeID = iota
	INT16
	INT32
	INT64
	FLOAT
	DOUBLE
	DATE
	TIMESTAMP
	INTERVAL
	INTERNAL_ID
	STRING
	FIXED_LIST
	VAR_LIST
	STRUCT
)

func (t TypeID) String() string {
	switch t {
	case BOOL:
		return "BOOL"
	case INT16:
		return "INT16"
	case INT32:
		return "INT32"
	case INT64:
		return "INT64"
	case FLOAT:
		return "FLOAT"
	case DOUBLE:
		return "DOUBLE"
	case DATE:
		return "DATE"
	case TIMESTAMP:
		return "TIMESTAMP"
	case INTERVAL:
		return "INTERVAL"
	case INTERNAL_ID:
		return "INTERNAL_ID"
	case STRING:
		return "STRING"
	case FIXED_LIST:
		return "FIXED_LIST"
	case VAR_LIST:
		return "VAR_LIST"
	case STRUCT:
		return "STRUCT"
	default:
		return "UNKNOWN"
	}
}

// StructField names one member of a STRUCT logical type.
type StructField struct {
	Name string
	Type LogicalType
}

// LogicalType is a small tagged variant: primitive types carry no payload,
// FIXED_LIST carries an element type and width, VAR_LIST carries only an
// element type, STRUCT carries an ordered field list.
type LogicalType struct {
	ID       TypeID
	ElemType *LogicalType  // FIXED_LIST, VAR_LIST
	Width    int           // FIXED_LIST: number of elements
	Fields   []StructField // STRUCT
}

func Primitive(id TypeID) LogicalType { return LogicalType{ID: id} }

func FixedList(elem LogicalType, width int) LogicalType {
	return LogicalType{ID: FIXED_LIST, ElemType: &elem, Width: width}
}

func VarList(elem LogicalType) LogicalType {
	return LogicalType{ID: VAR_LIST, ElemType: &elem}
}

func Struct(fields ...StructField) LogicalType {
	return LogicalType{ID: STRUCT, Fields: fields}
}

// stringDescriptorSize is the width of the (offset, length) pair stored in
// the primary buffer for STRING columns; payload bytes live in the chunk's
// overflow buffer.
const stringDescriptorSize = 16

// offsetSize is the width of an INTERNAL_ID / VAR_LIST-offset cell.
const offsetSize = 8

// GetDataTypeSizeInChunk returns the per-value byte width ColumnChunk uses
// for its primary buffer. STRUCT is a pure parent of child chunks and
// therefore occupies zero bytes of its own.
func GetDataTypeSizeInChunk(t LogicalType) uint32 {
	switch t.ID {
	case STRUCT:
		return 0
	case STRING:
		return stringDescriptorSize
	case VAR_LIST:
		return offsetSize
	case INTERNAL_ID:
		return offsetSize
	case BOOL:
		return 1
	case INT16:
		return 2
	case INT32, FLOAT, DATE:
		return 4
	case INT64, DOUBLE, TIMESTAMP, INTERVAL:
		return 8
	case FIXED_LIST:
		return GetDataTypeSizeInChunk(*t.ElemType) * uint32(t.Width)
	default:
		return 1
	}
}

func (t LogicalType) String() string {
	switch t.ID {
	case FIXED_LIST:
		return fmt.Sprintf("FIXED_LIST(%s, %d)", t.ElemType, t.Width)
	case VAR_LIST:
		return fmt.Sprintf("VAR_LIST(%s)", t.ElemType)
	case STRUCT:
		return fmt.Sprintf("STRUCT(%d fields)", len(t.Fields))
	default:
		return t.ID.String()
	}
}
