package block

import (
	"fmt"
)

// DataType is the element type of a dataset.
type DataType uint8

const (
	Int8 DataType = iota + 1
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var dataTypeNames = map[DataType]string{
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// DataTypes lists every supported element type.
func DataTypes() []DataType {
	return []DataType{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64}
}

// ParseDataType parses an N5 "dataType" string such as "float64".
func ParseDataType(s string) (DataType, error) {
	for dt, name := range dataTypeNames {
		if name == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unsupported data type: %q", s)
}

// Valid reports whether dt is one of the declared element types.
func (dt DataType) Valid() bool {
	_, ok := dataTypeNames[dt]
	return ok
}

// Size returns the serialized width of one element in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

func (dt DataType) String() string {
	if name, ok := dataTypeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint8(dt))
}

func (dt DataType) MarshalText() ([]byte, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("unsupported data type: %d", uint8(dt))
	}
	return []byte(dt.String()), nil
}

func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// Element is the set of Go types a block can hold.
type Element interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// DataTypeOf returns the DataType for the Go element type T.
func DataTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// typeOfSlice returns the DataType held by a typed slice, or 0 if data is
// not a supported slice type.
func typeOfSlice(data any) (DataType, int) {
	switch v := data.(type) {
	case []int8:
		return Int8, len(v)
	case []int16:
		return Int16, len(v)
	case []int32:
		return Int32, len(v)
	case []int64:
		return Int64, len(v)
	case []uint8:
		return Uint8, len(v)
	case []uint16:
		return Uint16, len(v)
	case []uint32:
		return Uint32, len(v)
	case []uint64:
		return Uint64, len(v)
	case []float32:
		return Float32, len(v)
	case []float64:
		return Float64, len(v)
	}
	return 0, 0
}

// makeSlice allocates a zeroed typed slice of n elements.
func makeSlice(dt DataType, n int) any {
	switch dt {
	case Int8:
		return make([]int8, n)
	case Int16:
		return make([]int16, n)
	case Int32:
		return make([]int32, n)
	case Int64:
		return make([]int64, n)
	case Uint8:
		return make([]uint8, n)
	case Uint16:
		return make([]uint16, n)
	case Uint32:
		return make([]uint32, n)
	case Uint64:
		return make([]uint64, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	}
	return nil
}
