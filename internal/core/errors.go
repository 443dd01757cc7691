package core

import "fmt"

// UnsupportedFormatError is returned when a filename carries neither a .csv
// nor a .json extension.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: file must be CSV or JSON", e.Filename)
}

// InvalidJSONShapeError is returned when JSON input is not an array of
// objects. Index is -1 when the top-level value itself is wrong.
type InvalidJSONShapeError struct {
	Index int
	Got   string
}

func (e *InvalidJSONShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid JSON shape: top-level value is %s, want an array of objects", e.Got)
	}
	return fmt.Sprintf("invalid JSON shape: element %d is %s, want an object", e.Index, e.Got)
}

// MalformedDateError names the data row (0-based) and the raw cell that
// failed date parsing.
type MalformedDateError struct {
	Row   int
	Value string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q in row %d", e.Value, e.Row)
}
