package checkout

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xenking/smartfit-shop/internal/domain/order"
)

// ValidationError carries per-field problems with the submitted shipping
// details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("invalid shipping details:")
	for _, name := range names {
		fmt.Fprintf(&b, " %s: %s;", name, e.Fields[name])
	}
	return strings.TrimSuffix(b.String(), ";")
}

type fieldRule struct {
	name     string
	value    *string
	required bool
	maxLen   int
}

// NormalizeShipping trims every field and checks required fields, length
// limits and the email format. It returns the cleaned details or a
// *ValidationError.
func NormalizeShipping(in order.Shipping) (order.Shipping, error) {
	out := in
	rules := []fieldRule{
		{name: "full_name", value: &out.FullName, required: true, maxLen: 100},
		{name: "email", value: &out.Email, required: true, maxLen: 254},
		{name: "phone", value: &out.Phone, required: true, maxLen: 20},
		{name: "address", value: &out.Address, required: true},
		{name: "city", value: &out.City, required: true, maxLen: 100},
		{name: "postal_code", value: &out.PostalCode, maxLen: 20},
		{name: "country", value: &out.Country, required: true, maxLen: 100},
		{name: "notes", value: &out.Notes},
	}

	fields := make(map[string]string)
	for _, r := range rules {
		*r.value = strings.TrimSpace(*r.value)
		v := *r.value
		switch {
		case r.required && v == "":
			fields[r.name] = "This field is required."
		case r.maxLen > 0 && utf8.RuneCountInString(v) > r.maxLen:
			fields[r.name] = fmt.Sprintf("Ensure this field has no more than %d characters.", r.maxLen)
		}
	}

	if _, bad := fields["email"]; !bad && !validEmail(out.Email) {
		fields["email"] = "Enter a valid email address."
	}

	if len(fields) > 0 {
		return order.Shipping{}, &ValidationError{Fields: fields}
	}
	return out, nil
}

// validEmail accepts a bare addr-spec. Display-name forms are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@')+1:], ".")
}
