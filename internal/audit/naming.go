package audit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/foxseedlab/auditbot/internal/config"
)

// DDMMYYYY
const tableDateLayout = "02012006"

// TableName scopes an audit to one table per calendar day in loc.
func TableName(baseName string, at time.Time, loc *time.Location) (string, error) {
	if !config.ValidBaseName(baseName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseName, baseName)
	}
	if loc == nil {
		loc = time.UTC
	}
	return baseName + "_" + at.In(loc).Format(tableDateLayout), nil
}

var tableDatePattern = regexp.MustCompile(`^[0-9]{8}$`)

// ValidTableName reports whether name has the shape produced by TableName.
func ValidTableName(name string) bool {
	i := strings.LastIndexByte(name, '_')
	return i > 0 && config.ValidBaseName(name[:i]) && tableDatePattern.MatchString(name[i+1:])
}
