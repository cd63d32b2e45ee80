package rowsnap

import (
	"fmt"
	"io"
	"strings"
)

const dumpRule = "------------------------------------------------"

// Dump writes the live value of every mapped column, for debugging what a
// model loaded. Strings are quoted; absent readings are omitted. It does not
// change the baseline.
func (s *Snapshot) Dump(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n::  %s ::\n%s\n", dumpRule, s.meta.Table, dumpRule)
	for _, c := range s.columns() {
		v, ok := c.acc.Get()
		if !ok || v == nil {
			continue
		}
		if str, isString := v.(string); isString {
			fmt.Fprintf(&b, "\t`%s` - %q\n", c.name, str)
		} else {
			fmt.Fprintf(&b, "\t`%s` - %v\n", c.name, v)
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
