package producer

import "strings"

// FindEmbeddableOptions returns the leading run of options that can be
// recorded in a module: bare -lNAME flags and -framework NAME pairs. Scanning
// stops silently at the first option of any other form.
func FindEmbeddableOptions(options []string) [][]string {
	result := [][]string{}
	for i := 0; i < len(options); i++ {
		option := options[i]
		switch {
		case strings.HasPrefix(option, "-l"):
			result = append(result, []string{option})
		case option == "-framework" && i+1 < len(options):
			result = append(result, []string{option, options[i+1]})
			i++
		default:
			return result
		}
	}
	return result
}
