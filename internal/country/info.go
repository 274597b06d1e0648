package country

import (
	"sort"
	"strconv"
	"strings"
)

// Info is the subset of a REST Countries v3.1 record shown in the panel.
type Info struct {
	Name struct {
		Common   string `json:"common,omitempty"`
		Official string `json:"official,omitempty"`
	} `json:"name"`
	Region     string              `json:"region,omitempty"`
	Subregion  string              `json:"subregion,omitempty"`
	Capitals   []string            `json:"capital,omitempty"`
	Population int64               `json:"population,omitempty"`
	Area       float64             `json:"area,omitempty"`
	Currencies map[string]Currency `json:"currencies,omitempty"`
	Languages  map[string]string   `json:"languages,omitempty"`
	Flags      struct {
		SVG string `json:"svg,omitempty"`
		PNG string `json:"png,omitempty"`
	} `json:"flags"`
}

// Currency is one entry of the currencies map.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// Capital returns the first listed capital.
func (i *Info) Capital() string {
	if len(i.Capitals) == 0 {
		return ""
	}
	return i.Capitals[0]
}

// Currency returns the name of the first currency by code.
func (i *Info) Currency() string {
	if len(i.Currencies) == 0 {
		return ""
	}
	codes := make([]string, 0, len(i.Currencies))
	for code := range i.Currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return i.Currencies[codes[0]].Name
}

// LanguageList returns language names ordered by code, joined with ", ".
func (i *Info) LanguageList() string {
	codes := make([]string, 0, len(i.Languages))
	for code := range i.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	names := make([]string, len(codes))
	for n, code := range codes {
		names[n] = i.Languages[code]
	}
	return strings.Join(names, ", ")
}

// Summary is the one-paragraph description at the top of the quick facts.
func (i *Info) Summary(fallbackName string) string {
	name := i.Name.Official
	if name == "" {
		name = fallbackName
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" is a country")
	if i.Region != "" {
		b.WriteString(" in " + i.Region)
	}
	if i.Subregion != "" {
		b.WriteString(", " + i.Subregion)
	}
	b.WriteString(".")
	if c := i.Capital(); c != "" {
		b.WriteString(" The capital is " + c + ".")
	}
	return b.String()
}

// FormattedPopulation renders the population with thousands separators.
func (i *Info) FormattedPopulation() string {
	if i.Population == 0 {
		return ""
	}
	return groupThousands(strconv.FormatInt(i.Population, 10))
}

// FormattedArea renders the area in km² with thousands separators.
func (i *Info) FormattedArea() string {
	if i.Area == 0 {
		return ""
	}
	s := strconv.FormatFloat(i.Area, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	out := groupThousands(whole)
	if frac != "" {
		out += "." + frac
	}
	return out + " km²"
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	var b strings.Builder
	for n, r := range digits {
		if n > 0 && (len(digits)-n)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
