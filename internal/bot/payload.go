package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Callback actions carried in inline-keyboard payloads. The payload format
// is colon-delimited: action:date:arg2:arg3. Payloads round-trip through the
// transport and may be stale or replayed, so every field is validated before
// use and index/mask values are re-checked against the freshly resolved
// schedule.
const (
	ActionSelect    = "att_s"
	ActionConfirm   = "att_c"
	ActionAttendAll = "att_a_all"
	ActionAbsentAll = "att_abs_all"

	ResetConfirm = "reset:confirm"
	ResetCancel  = "reset:cancel"

	// A mask is bounded to 32 classes; no real schedule comes close.
	maxMaskIndex = 31
)

// ErrInvalidPayload marks a malformed or out-of-range callback payload.
var ErrInvalidPayload = errors.New("invalid callback payload")

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SelectPayload is a single checkbox toggle: att_s:<date>:<index>:<mask>.
type SelectPayload struct {
	Date  string
	Index int
	Mask  int
}

// ParseSelect validates and decodes a selection-toggle payload.
func ParseSelect(data string) (SelectPayload, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 4 || parts[0] != ActionSelect {
		return SelectPayload{}, ErrInvalidPayload
	}
	if !dateRe.MatchString(parts[1]) {
		return SelectPayload{}, fmt.Errorf("%w: bad date", ErrInvalidPayload)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 || index > maxMaskIndex {
		return SelectPayload{}, fmt.Errorf("%w: bad index", ErrInvalidPayload)
	}
	mask, err := strconv.Atoi(parts[3])
	if err != nil || mask < 0 {
		return SelectPayload{}, fmt.Errorf("%w: bad mask", ErrInvalidPayload)
	}
	return SelectPayload{Date: parts[1], Index: index, Mask: mask}, nil
}

// ConfirmPayload is a confirmed selection: att_c:<date>:<attend|absent>:<mask>.
type ConfirmPayload struct {
	Date string
	Kind string
	Mask int
}

// ParseConfirm validates and decodes a confirm payload.
func ParseConfirm(data string) (ConfirmPayload, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 4 || parts[0] != ActionConfirm {
		return ConfirmPayload{}, ErrInvalidPayload
	}
	if !dateRe.MatchString(parts[1]) {
		return ConfirmPayload{}, fmt.Errorf("%w: bad date", ErrInvalidPayload)
	}
	kind := parts[2]
	if kind != "attend" && kind != "absent" {
		return ConfirmPayload{}, fmt.Errorf("%w: bad action kind", ErrInvalidPayload)
	}
	mask, err := strconv.Atoi(parts[3])
	if err != nil || mask < 0 {
		return ConfirmPayload{}, fmt.Errorf("%w: bad mask", ErrInvalidPayload)
	}
	return ConfirmPayload{Date: parts[1], Kind: kind, Mask: mask}, nil
}

// ParseAll validates an attend-all / absent-all payload:
// att_a_all:<date> or att_abs_all:<date>.
func ParseAll(data string) (action, date string, err error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return "", "", ErrInvalidPayload
	}
	if parts[0] != ActionAttendAll && parts[0] != ActionAbsentAll {
		return "", "", fmt.Errorf("%w: bad action", ErrInvalidPayload)
	}
	if !dateRe.MatchString(parts[1]) {
		return "", "", fmt.Errorf("%w: bad date", ErrInvalidPayload)
	}
	return parts[0], parts[1], nil
}
