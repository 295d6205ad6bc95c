package models

import "errors"

// Data-shape errors shared by loaders and the preprocessing stages.
var (
	ErrUnsortedIndex        = errors.New("index is not sorted by time")
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
	ErrMisalignedColumn     = errors.New("column length does not match index")
	ErrUnknownColumn        = errors.New("unknown column")
)
