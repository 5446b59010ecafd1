package lookup

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"shipdoc/internal"
)

//go:embed dangerous_goods.yaml
var defaultDangerousGoods []byte

type dgEntry struct {
	Codes                   []string `yaml:"codes"`
	internal.DangerousGoods `yaml:",inline"`
}

type dgFile struct {
	Items []dgEntry `yaml:"items"`
}

// DangerousGoods maps item codes to their transport classification.
type DangerousGoods struct {
	byCode map[string]internal.DangerousGoods
}

// LoadDangerousGoods reads the table at path, or the embedded table when
// path is empty.
func LoadDangerousGoods(path string) (*DangerousGoods, error) {
	data := defaultDangerousGoods
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read dangerous goods: %w", err)
		}
		data = b
	}
	var f dgFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dangerous goods: %w", err)
	}
	t := &DangerousGoods{byCode: map[string]internal.DangerousGoods{}}
	for _, e := range f.Items {
		if e.UNNumber == "" {
			return nil, fmt.Errorf("dangerous goods entry %v: missing un_number", e.Codes)
		}
		for _, c := range e.Codes {
			t.byCode[normalizeCode(c)] = e.DangerousGoods
		}
	}
	return t, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

func (t *DangerousGoods) Lookup(code string) (internal.DangerousGoods, bool) {
	if t == nil {
		return internal.DangerousGoods{}, false
	}
	dg, ok := t.byCode[normalizeCode(code)]
	return dg, ok
}

// Annotate returns a copy of order whose listed items carry their dangerous
// goods classification. The order passed in is left untouched.
func (t *DangerousGoods) Annotate(order internal.SalesOrder) internal.SalesOrder {
	out := order.Clone()
	for i, it := range out.Items {
		if dg, ok := t.Lookup(it.ItemCode); ok {
			dg := dg
			out.Items[i].DangerousGoods = &dg
		}
	}
	return out
}

func (t *DangerousGoods) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}
