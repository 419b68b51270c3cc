package cli

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var windowParser *when.Parser

func init() {
	windowParser = when.New(nil)
	windowParser.Add(en.All...)
	windowParser.Add(common.All...)
}

// resolveRelativeTime normalizes an operator-typed relative time
// expression (e.g. "last 30 days", "yesterday") into an absolute instant,
// before it reaches claim.TemporalScope's ISO-8601 form.
func resolveRelativeTime(text string) (time.Time, error) {
	r, err := windowParser.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not resolve relative time %q", text)
	}
	return r.Time, nil
}
