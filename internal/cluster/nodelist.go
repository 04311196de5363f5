package cluster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/pkg/log"
)

// NodeList matches a node name/address against a comma-separated set of
// terms, each possibly containing zero-padded numeric ranges in square
// brackets (e.g. "node[01-32]", "10.0.0.[1-9]:6379"). Adapted from the
// teacher's internal/config/nodelist.go, which matches subcluster node
// names against a configured pattern; here it backs
// CLUSTER-ALLOWED-NODES, a static admission filter for CLUSTER MEET so
// an operator can restrict which hostnames/addresses may join without
// running a separate ACL layer.
type NodeList [][]interface {
	consume(input string) (next string, ok bool)
}

// Contains reports whether name matches any term in the list.
func (nl *NodeList) Contains(name string) bool {
	var ok bool
	for _, term := range *nl {
		str := name
		for _, expr := range term {
			str, ok = expr.consume(str)
			if !ok {
				break
			}
		}
		if ok && str == "" {
			return true
		}
	}
	return false
}

type nlExprString string

func (e nlExprString) consume(input string) (next string, ok bool) {
	str := string(e)
	if strings.HasPrefix(input, str) {
		return strings.TrimPrefix(input, str), true
	}
	return "", false
}

type nlExprIntRanges []nlExprIntRange

func (es nlExprIntRanges) consume(input string) (next string, ok bool) {
	for _, e := range es {
		if next, ok := e.consume(input); ok {
			return next, ok
		}
	}
	return "", false
}

type nlExprIntRange struct {
	start, end int64
	digits     int
}

func (e nlExprIntRange) consume(input string) (next string, ok bool) {
	if e.digits < 1 {
		log.Error("cluster: nodelist: only zero-padded ranges are allowed")
		return "", false
	}
	if len(input) < e.digits {
		return "", false
	}

	numerals, rest := input[:e.digits], input[e.digits:]
	for len(numerals) > 1 && numerals[0] == '0' {
		numerals = numerals[1:]
	}

	x, err := strconv.ParseInt(numerals, 10, 32)
	if err != nil {
		return "", false
	}
	if e.start <= x && x <= e.end {
		return rest, true
	}
	return "", false
}

// ParseNodeList parses a comma-separated term list where each term is a
// mix of literal text and "[a-b,c-d,...]" zero-padded range groups.
func ParseNodeList(raw string) (NodeList, error) {
	isLetter := func(r byte) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
	isDigit := func(r byte) bool { return '0' <= r && r <= '9' }
	isLiteral := func(r byte) bool { return isLetter(r) || isDigit(r) || r == '.' || r == ':' }

	var rawterms []string
	prevterm := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '[':
			for i < len(raw) && raw[i] != ']' {
				i++
			}
			if i == len(raw) {
				return nil, fmt.Errorf("cluster: nodelist: unclosed '['")
			}
		case ',':
			rawterms = append(rawterms, raw[prevterm:i])
			prevterm = i + 1
		}
	}
	if prevterm != len(raw) {
		rawterms = append(rawterms, raw[prevterm:])
	}

	var nl NodeList
	for _, rawterm := range rawterms {
		var exprs []interface {
			consume(input string) (next string, ok bool)
		}
		for i := 0; i < len(rawterm); i++ {
			c := rawterm[i]
			switch {
			case isLiteral(c):
				j := i
				for j < len(rawterm) && isLiteral(rawterm[j]) {
					j++
				}
				exprs = append(exprs, nlExprString(rawterm[i:j]))
				i = j - 1
			case c == '[':
				end := strings.Index(rawterm[i:], "]")
				if end == -1 {
					return nil, fmt.Errorf("cluster: nodelist: unclosed '['")
				}
				parts := strings.Split(rawterm[i+1:i+end], ",")
				var ranges nlExprIntRanges
				for _, part := range parts {
					minus := strings.Index(part, "-")
					if minus == -1 {
						return nil, fmt.Errorf("cluster: nodelist: no '-' found inside '[...]'")
					}
					s1, s2 := part[:minus], part[minus+1:]
					if len(s1) != len(s2) || len(s1) == 0 {
						return nil, fmt.Errorf("cluster: nodelist: %q and %q are not of equal length or of length zero", s1, s2)
					}
					x1, err := strconv.ParseInt(s1, 10, 32)
					if err != nil {
						return nil, fmt.Errorf("cluster: nodelist: %w", err)
					}
					x2, err := strconv.ParseInt(s2, 10, 32)
					if err != nil {
						return nil, fmt.Errorf("cluster: nodelist: %w", err)
					}
					ranges = append(ranges, nlExprIntRange{start: x1, end: x2, digits: len(s1)})
				}
				exprs = append(exprs, ranges)
				i += end
			default:
				return nil, fmt.Errorf("cluster: nodelist: invalid character: %q", rune(c))
			}
		}
		nl = append(nl, exprs)
	}

	return nl, nil
}
