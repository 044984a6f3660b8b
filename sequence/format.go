package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/estatedesk/models"
)

const yearMonthLayout = "200601"

var idPattern = regexp.MustCompile(`^([A-Z]{2})-(\d{6})-(\d{4,})$`)

// ParsedID is the decomposed form of an issued identifier
type ParsedID struct {
	Prefix    string
	YearMonth string
	Year      int
	Month     time.Month
	Sequence  int64
}

// Prefix returns the two-letter uppercase prefix for entityType.
// The first two characters must be ASCII letters.
func Prefix(entityType string) (string, error) {
	if len(entityType) < 2 || !isASCIILetter(entityType[0]) || !isASCIILetter(entityType[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}
	return strings.ToUpper(entityType[:2]), nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// YearMonth formats the calendar month of t in loc as YYYYMM. A nil loc means UTC.
func YearMonth(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(yearMonthLayout)
}

// CounterKey is the key of the counter row backing entityType in yearMonth
func CounterKey(entityType, yearMonth string) string {
	return models.SequenceCounterKey(entityType, yearMonth)
}

// FormatID renders PP-YYYYMM-NNNN. The sequence is zero-padded to four digits
// and widens instead of truncating.
func FormatID(prefix, yearMonth string, value int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, yearMonth, value)
}

// ParseID validates an identifier and splits it into its parts.
// Only the canonical form produced by FormatID is accepted.
func ParseID(id string) (ParsedID, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return ParsedID{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	period, err := time.Parse(yearMonthLayout, m[2])
	if err != nil {
		return ParsedID{}, fmt.Errorf("%w: bad period in %q", ErrInvalidID, id)
	}

	seq, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil || seq < 1 {
		return ParsedID{}, fmt.Errorf("%w: bad sequence in %q", ErrInvalidID, id)
	}
	if FormatID(m[1], m[2], seq) != id {
		return ParsedID{}, fmt.Errorf("%w: non-canonical sequence in %q", ErrInvalidID, id)
	}

	return ParsedID{
		Prefix:    m[1],
		YearMonth: m[2],
		Year:      period.Year(),
		Month:     period.Month(),
		Sequence:  seq,
	}, nil
}
