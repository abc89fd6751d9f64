package ir

import (
	"fmt"
	"strings"
)

// OperatorIdentifier names an operator or a function: (domain, name, overload).
type OperatorIdentifier struct {
	Domain   string
	Name     string
	Overload string
}

// String formats the identifier as "domain::name" with ":overload" appended when set.
func (id OperatorIdentifier) String() string {
	s := id.Domain + "::" + id.Name
	if id.Overload != "" {
		s += ":" + id.Overload
	}
	return s
}

// ParseOperatorIdentifier parses the String form. A bare "name" selects the default domain.
func ParseOperatorIdentifier(s string) (OperatorIdentifier, error) {
	var id OperatorIdentifier
	rest := s
	if domain, after, ok := strings.Cut(s, "::"); ok {
		id.Domain = domain
		rest = after
	}
	id.Name, id.Overload, _ = strings.Cut(rest, ":")
	if id.Name == "" {
		return OperatorIdentifier{}, fmt.Errorf("invalid operator identifier %q: empty name", s)
	}
	return id, nil
}
