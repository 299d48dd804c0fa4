// Package formerr renders a failed submission as a form banner.
package formerr

import (
	"errors"
	"sort"
	"strings"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
	"github.com/nhle/taskboard/internal/theme"
)

// Message returns the user-facing text for a submission error. Field
// validation messages are listed one per line; remote failures are
// reported generically.
func Message(err error) string {
	var verr model.ValidationError
	if errors.As(err, &verr) {
		fields := make([]string, 0, len(verr))
		for f := range verr {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		msgs := make([]string, len(fields))
		for i, f := range fields {
			msgs[i] = verr[f]
		}
		return strings.Join(msgs, "\n")
	}
	if source.IsAuthError(err) {
		return "The API token was rejected. Run `taskboard auth set-token`."
	}
	return "Something went wrong. Please try again."
}

// Render styles Message(err) as an error banner.
func Render(err error) string {
	return theme.ErrorStyle.Render(Message(err))
}
