package erp

import (
	"errors"
	"fmt"
	"strings"
)

// Operation is the kind of remote call issued against a record type.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpQuery  Operation = "query"
	OpAction Operation = "action"
)

var remoteMethods = map[Operation]string{
	OpCreate: "create",
	OpUpdate: "write",
	OpDelete: "unlink",
	OpQuery:  "search_read",
}

var errActionRequired = errors.New("action name is required for action calls")

// Call describes one remote invocation. Action is only read for OpAction.
type Call struct {
	Model     string
	Operation Operation
	Action    string
	Args      []any
	Kwargs    map[string]any
}

// RemoteMethod returns the method name sent on the wire.
func (c Call) RemoteMethod() (string, error) {
	if strings.TrimSpace(c.Model) == "" {
		return "", errors.New("model is required")
	}
	if c.Operation == OpAction {
		action := strings.TrimSpace(c.Action)
		if action == "" {
			return "", errActionRequired
		}
		return action, nil
	}
	method, ok := remoteMethods[c.Operation]
	if !ok {
		return "", fmt.Errorf("unsupported operation %q", c.Operation)
	}
	return method, nil
}

// Domain is a prefix-notation filter: leaf terms are [field, operator, value] triples and
// "&", "|" and "!" are logical operators applying to the following expressions.
type Domain []any

// Where builds a single-term domain.
func Where(field, op string, value any) Domain {
	return Domain{[]any{field, op, value}}
}

// And appends terms; consecutive expressions are implicitly AND-ed by the ERP.
func (d Domain) And(others ...Domain) Domain {
	out := append(Domain{}, d...)
	for _, other := range others {
		out = append(out, other...)
	}
	return out
}

// Or combines two domains so that either may match.
func Or(a, b Domain) Domain {
	out := Domain{"|"}
	out = append(out, a.single()...)
	return append(out, b.single()...)
}

// single folds a domain with several top-level expressions into one by prefixing "&".
func (d Domain) single() Domain {
	n := d.expressions()
	if n <= 1 {
		return d
	}
	out := make(Domain, 0, len(d)+n-1)
	for i := 0; i < n-1; i++ {
		out = append(out, "&")
	}
	return append(out, d...)
}

func (d Domain) expressions() int {
	leaves, binary := 0, 0
	for _, token := range d {
		switch token {
		case "&", "|":
			binary++
		case "!":
		default:
			leaves++
		}
	}
	return leaves - binary
}

// QueryOptions maps onto the search_read keyword arguments.
type QueryOptions struct {
	Fields []string
	Limit  int
	Offset int
	Order  string
}

func (o QueryOptions) kwargs() map[string]any {
	kw := map[string]any{}
	if len(o.Fields) > 0 {
		kw["fields"] = o.Fields
	}
	if o.Limit > 0 {
		kw["limit"] = o.Limit
	}
	if o.Offset > 0 {
		kw["offset"] = o.Offset
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	return kw
}
