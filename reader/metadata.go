package reader

import (
	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/section"
)

// Metadata is the file-level and per-variable metadata a BatchReader
// exposes before (or instead of) streaming any rows (§6).
type Metadata struct {
	VariableNames        []string
	VariableLabels       map[string]string
	VariableValueLabels  map[string]map[string]string
	SpssVariableTypes    map[string]string // SPSS format string, e.g. "F8.2", "A255", "DATE10"
	VariableMeasure      map[string]string
	VariableAlignment    map[string]string
	VariableStorageWidth map[string]int
	VariableDisplayWidth map[string]int32
	VariableMissing      map[string]dict.MissingRule
	MrSets               []section7MrSet
	Notes                []string
	FileLabel            string
	FileEncoding         string
	NumberRows           int64
	NumberColumns        int
	FileFormat           string
}

// section7MrSet mirrors section.MrSet without importing section into
// the public surface's type graph beyond what's needed.
type section7MrSet struct {
	Name          string
	Kind          string
	Label         string
	CountedValue  string
	VariableNames []string
}

func buildMetadata(d *dict.Dictionary) *Metadata {
	m := &Metadata{
		VariableLabels:       map[string]string{},
		VariableValueLabels:  map[string]map[string]string{},
		SpssVariableTypes:    map[string]string{},
		VariableMeasure:      map[string]string{},
		VariableAlignment:    map[string]string{},
		VariableStorageWidth: map[string]int{},
		VariableDisplayWidth: map[string]int32{},
		VariableMissing:      map[string]dict.MissingRule{},
		Notes:                d.Documents,
		FileLabel:            d.Header.FileLabel,
		FileEncoding:         d.Encoding,
		NumberRows:           d.CaseCount,
		NumberColumns:        len(d.Variables),
		FileFormat:           d.Header.FileFormat(),
	}

	for _, v := range d.Variables {
		m.VariableNames = append(m.VariableNames, v.Name)
		if v.Label != "" {
			m.VariableLabels[v.Name] = v.Label
		}
		if len(v.ValueLabels) > 0 {
			m.VariableValueLabels[v.Name] = v.ValueLabels
		}
		m.SpssVariableTypes[v.Name] = v.PrintFormat.String(v.Kind)
		m.VariableMeasure[v.Name] = v.Measure.String()
		m.VariableAlignment[v.Name] = v.Alignment.String()
		m.VariableStorageWidth[v.Name] = v.Width
		m.VariableDisplayWidth[v.Name] = v.DisplayWidth
		m.VariableMissing[v.Name] = v.Missing
	}

	for _, s := range d.MrSets {
		kind := "dichotomies"
		if s.Kind == section.MrSetCategories {
			kind = "categories"
		}
		m.MrSets = append(m.MrSets, section7MrSet{
			Name:          s.Name,
			Kind:          kind,
			Label:         s.Label,
			CountedValue:  s.CountedValue,
			VariableNames: s.VariableNames,
		})
	}

	return m
}
