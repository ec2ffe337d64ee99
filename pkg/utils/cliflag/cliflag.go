// Package cliflag provides named flag-set grouping and flag-name
// normalization for cobra/pflag based commands, the same pattern echoryn's
// CLI entrypoints use to render grouped --help output and to warn about
// legacy underscore-separated flag names.
package cliflag

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// NamedFlagSets stores flag sets in the order they were created, keyed by a
// group name, so commands can print "Generic flags:", "gRPC flags:", etc.
type NamedFlagSets struct {
	order []string
	sets  map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for name, creating it if necessary.
func (n *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if n.sets == nil {
		n.sets = map[string]*pflag.FlagSet{}
	}
	if _, ok := n.sets[name]; !ok {
		n.sets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		n.order = append(n.order, name)
	}
	return n.sets[name]
}

// Order returns the group names in creation order.
func (n *NamedFlagSets) Order() []string { return n.order }

// FlagSets returns the underlying name->set map.
func (n *NamedFlagSets) FlagSets() map[string]*pflag.FlagSet { return n.sets }

// PrintSections renders every named flag set's usage, grouped under a
// "<Title> flags:" header, matching the kube-apiserver help layout.
func (n *NamedFlagSets) PrintSections(cols int) string {
	var buf bytes.Buffer
	for _, name := range n.order {
		fs := n.sets[name]
		if !fs.HasFlags() {
			continue
		}
		buf.WriteString(capitalize(name))
		buf.WriteString(" flags:\n\n")
		fs.SetOutput(&buf)
		fs.PrintDefaults()
		buf.WriteString("\n")
	}
	return buf.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WordSepNormalizeFunc converts flags containing "_" to use "-" instead,
// silently.
func WordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}
	return pflag.NormalizedName(name)
}

// WarnWordSepNormalizeFunc is like WordSepNormalizeFunc but additionally
// warns to stderr when a "_" flag is used, nudging users toward "-".
func WarnWordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		normalized := strings.ReplaceAll(name, "_", "-")
		fmt.Fprintf(os.Stderr, "flag %q is deprecated, use %q instead\n", name, normalized)
		return pflag.NormalizedName(normalized)
	}
	return pflag.NormalizedName(name)
}
