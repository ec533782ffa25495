package construct

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// logicalIDMaxLen matches the CloudFormation limit on logical resource IDs.
const logicalIDMaxLen = 255

const logicalIDHashLen = 8

// LogicalID derives the CloudFormation logical ID for c from its path:
// CamelCased path components concatenated, followed by a short hash of the
// raw path. The hash is what keeps IDs unique — CamelCasing is lossy
// ("my-db" and "MyDb" fold together) and CloudFormation only accepts
// alphanumerics, so the human-readable prefix alone cannot be trusted.
func LogicalID(c *Construct) string {
	path := c.Path()
	if path == "" {
		return ""
	}

	sb := strings.Builder{}
	for _, part := range strings.Split(path, "/") {
		sb.WriteString(strcase.ToCamel(part))
	}
	human := sanitizeAlnum(sb.String())

	sum := sha256.Sum256([]byte(path))
	suffix := strings.ToUpper(fmt.Sprintf("%x", sum[:logicalIDHashLen/2]))

	if max := logicalIDMaxLen - logicalIDHashLen; len(human) > max {
		human = human[:max]
	}
	return human + suffix
}

func sanitizeAlnum(s string) string {
	sb := strings.Builder{}
	sb.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
