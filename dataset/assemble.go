package dataset

import (
	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
)

// Label values of the two origins.
const (
	LabelA = 0.0
	LabelB = 1.0
)

// Combined is the row-wise stack of two fields with an origin label per row.
type Combined struct {
	X      *Stacked
	Y      Labels
	Names  []string
	FieldA int
	FieldB int
	RowsA  int
	RowsB  int

	fields []*Field
}

// Assemble stacks the rows of a then b and labels them LabelA and LabelB.
// The two name lists must be identical in content and order; otherwise a
// SchemaMismatchError is returned and nothing is built.
func Assemble(a, b *Field) (*Combined, error) {
	if err := errors.NewSchemaMismatchError(a.ID, b.ID, a.Names, b.Names); err != nil {
		return nil, err
	}
	x, err := Stack(a.Data, b.Data)
	if err != nil {
		return nil, err
	}

	rowsA, rowsB := a.Rows(), b.Rows()
	y := make(Labels, rowsA+rowsB)
	for i := rowsA; i < len(y); i++ {
		y[i] = LabelB
	}

	log.GetLoggerWithName("dataset").Info("Assembled fields",
		log.OperationKey, log.OperationAssemble,
		"field.a", a.ID,
		"field.b", b.ID,
		"field.rows_a", rowsA,
		"field.rows_b", rowsB,
		log.SamplesKey, len(y),
		log.FeaturesKey, len(a.Names),
	)

	return &Combined{
		X:      x,
		Y:      y,
		Names:  a.Names,
		FieldA: a.ID,
		FieldB: b.ID,
		RowsA:  rowsA,
		RowsB:  rowsB,
		fields: []*Field{a, b},
	}, nil
}

// LoadPair loads fields idA and idB from dir and assembles them. The returned
// Combined owns both mappings; call Close when done.
func LoadPair(dir string, idA, idB int) (*Combined, error) {
	a, err := LoadField(dir, idA)
	if err != nil {
		return nil, err
	}
	b, err := LoadField(dir, idB)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	c, err := Assemble(a, b)
	if err != nil {
		_ = a.Close()
		_ = b.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the mappings of both fields.
func (c *Combined) Close() error {
	var first error
	for _, f := range c.fields {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
