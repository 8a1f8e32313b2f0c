package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var cepRe = regexp.MustCompile(`^\d{8}$`)

// CEP strips the usual separators from a postal code and checks that eight
// digits remain.
func CEP(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("-", "", ".", "", " ", "").Replace(s)
	if !cepRe.MatchString(s) {
		return "", fmt.Errorf("invalid cep: %q", raw)
	}
	return s, nil
}
