// Package dataset builds ready-to-iterate regression datasets from
// precomputed graph files and a label dictionary.
package dataset

import (
	"fmt"
	"sort"

	"github.com/chazu/uvreg/pkg/labels"
)

// Kind names a dataset flavour. Flavours differ only in which label file
// they read and what the label means.
type Kind struct {
	Name string
	// LabelSuffix selects {split}_{suffix}.json under the dataset root.
	LabelSuffix string
	// LabelField names the predicted quantity in logs and manifests.
	LabelField string
}

var kinds = map[string]Kind{
	"v_mock": {Name: "v_mock", LabelSuffix: labels.SuffixVolume, LabelField: "volume"},
	"mv_p2":  {Name: "mv_p2", LabelSuffix: labels.SuffixCADTime, LabelField: "cad_time"},
}

// LookupKind returns the registered kind called name.
func LookupKind(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("dataset: unsupported dataset %q (known: %v)", name, KindNames())
	}
	return k, nil
}

// KindNames returns the registered kind names, sorted.
func KindNames() []string {
	out := make([]string, 0, len(kinds))
	for n := range kinds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
