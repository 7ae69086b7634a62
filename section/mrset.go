package section

import (
	"strings"

	"github.com/sav2arrow/ambers/errs"
)

// MrSetKind distinguishes the two multi-response set flavors SPSS defines.
type MrSetKind uint8

const (
	MrSetDichotomies MrSetKind = iota + 1 // "C" sets: one binary indicator variable per category
	MrSetCategories                       // "D" sets: one categorical variable shared across responses
)

// MrSet is one parsed entry from an ExtMultiResponseSets (subtype 7)
// record.
type MrSet struct {
	Name           string
	Kind           MrSetKind
	Label          string
	CountedValue   string // dichotomies sets only
	VariableNames  []string
}

// DecodeMultiResponseSets parses an ExtMultiResponseSets record. Each line
// has the shape:
//
//	$name=D label var1 var2 var3
//	$name=C countedvalue label var1 var2
//
// one set per line, fields space-separated; surrounding whitespace on a
// line is ignored. The label is a single space-free field.
func DecodeMultiResponseSets(rec *ExtensionRecord) ([]MrSet, error) {
	var out []MrSet
	for _, line := range strings.Split(string(rec.Payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		nameAndRest, ok := cutOnce(line, "=")
		if !ok {
			return nil, errs.CorruptDictionary("multi response sets: missing '='")
		}
		name := nameAndRest[0]
		rest := nameAndRest[1]

		if len(rest) < 2 || rest[1] != ' ' {
			return nil, errs.CorruptDictionary("multi response sets: malformed set kind")
		}
		kindCode := rest[0]
		fields := strings.Fields(rest[2:])

		var set MrSet
		set.Name = name

		switch kindCode {
		case 'D':
			if len(fields) < 2 {
				return nil, errs.CorruptDictionary("multi response sets: D-set too short")
			}
			set.Kind = MrSetCategories
			set.Label = fields[0]
			set.VariableNames = fields[1:]
		case 'C':
			if len(fields) < 3 {
				return nil, errs.CorruptDictionary("multi response sets: C-set too short")
			}
			set.Kind = MrSetDichotomies
			set.CountedValue = fields[0]
			set.Label = fields[1]
			set.VariableNames = fields[2:]
		default:
			return nil, errs.CorruptDictionary("multi response sets: unknown kind code")
		}

		out = append(out, set)
	}

	return out, nil
}

func cutOnce(s, sep string) ([2]string, bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return [2]string{}, false
	}
	return [2]string{s[:idx], s[idx+len(sep):]}, true
}
