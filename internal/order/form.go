package order

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Form is the data collected by the modal.
type Form struct {
	Name    string
	Address string
	Payment string
}

// FieldsError lists required fields left empty.
type FieldsError struct {
	Fields []string
}

// Error implements the error interface.
func (e *FieldsError) Error() string {
	return fmt.Sprintf("order: missing required fields [%s]", strings.Join(e.Fields, ", "))
}

// Has reports whether field is among the missing ones.
func (e *FieldsError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

var stripPolicy = bluemonday.StrictPolicy()

// NewForm cleans raw values: markup is stripped, text is NFC-normalized and whitespace collapsed.
func NewForm(name, address, payment string) Form {
	return Form{
		Name:    clean(name),
		Address: clean(address),
		Payment: clean(payment),
	}
}

// Validate requires name and address.
func (f Form) Validate() error {
	var missing []string
	if f.Name == "" {
		missing = append(missing, "nome")
	}
	if f.Address == "" {
		missing = append(missing, "endereco")
	}
	if len(missing) > 0 {
		return &FieldsError{Fields: missing}
	}
	return nil
}

func clean(value string) string {
	value = stripPolicy.Sanitize(value)
	// StrictPolicy escapes what it keeps; the message is plain text.
	value = html.UnescapeString(value)
	value = norm.NFC.String(value)
	return strings.Join(strings.Fields(value), " ")
}
