package device

import "strings"

// Keyword sets are matched against the lower-cased advertised name. The two
// sets are disjoint; the printer set is checked first.
var printerKeywords = []string{
	"printer",
	"print",
	"epson",
	"zebra",
	"bixolon",
	"phomemo",
	"goojprt",
	"peripage",
	"thermal",
	"receipt",
	"tm-",
	"rpp",
}

var scannerKeywords = []string{
	"scanner",
	"barcode",
	"honeywell",
	"datalogic",
	"symbol",
	"zxscan",
}

// Classify maps an advertised device name to a role. It is deterministic and
// case-insensitive; an empty or unrecognised name yields RoleUnknown.
func Classify(name string) Role {
	lowered := strings.ToLower(name)

	for _, k := range printerKeywords {
		if strings.Contains(lowered, k) {
			return RolePrinter
		}
	}
	for _, k := range scannerKeywords {
		if strings.Contains(lowered, k) {
			return RoleScanner
		}
	}
	return RoleUnknown
}
