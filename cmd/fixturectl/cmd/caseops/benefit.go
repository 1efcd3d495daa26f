package caseops

import (
	"fmt"
	"sort"
	"strings"
)

type benefitPreset struct {
	code        string
	description string
	benefitCode string
	welsh       bool
}

var benefitPresets = map[string]benefitPreset{
	"PIP":      {code: "PIP", description: "Personal Independence Payment", benefitCode: "002"},
	"WELSHPIP": {code: "PIP", description: "Personal Independence Payment", benefitCode: "002", welsh: true},
	"ESA":      {code: "ESA", description: "Employment and Support Allowance", benefitCode: "051"},
	"UC":       {code: "UC", description: "Universal Credit", benefitCode: "001"},
}

func benefitNames() []string {
	names := make([]string, 0, len(benefitPresets))
	for name := range benefitPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// benefitData returns the case data for a named benefit. An empty name yields nil.
func benefitData(name string) (map[string]any, error) {
	if name == "" {
		return nil, nil
	}
	p, ok := benefitPresets[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown benefit %q (known: %s)", name, strings.Join(benefitNames(), ", "))
	}

	welsh := "No"
	if p.welsh {
		welsh = "Yes"
	}
	return map[string]any{
		"benefitCode": p.benefitCode,
		"appeal": map[string]any{
			"benefitType": map[string]any{
				"code":        p.code,
				"description": p.description,
			},
		},
		"languagePreferenceWelsh": welsh,
	}, nil
}

// mergeCaseData overlays top-level keys of extra onto base.
func mergeCaseData(base, extra map[string]any) map[string]any {
	if base == nil {
		return extra
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}
