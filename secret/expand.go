package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $VAR and ${VAR} in s. A braced reference to
// a variable missing from the environment is an error rather than a
// silent empty string. "$$" escapes a literal dollar.
func ExpandEnvStrict(s string) (string, error) {
	const escapedDollar = "\x00dollar\x00"
	s = strings.ReplaceAll(s, "$$", escapedDollar)

	missing := map[string]struct{}{}
	for _, match := range envRefPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("secret: missing environment variables: %s", strings.Join(names, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, escapedDollar, "$"), nil
}
