// Package criteria evaluates List filter parameters against run attributes.
package criteria

import (
	"github.com/mediseg/gridrun/service/dao"
)

// Match reports whether an entity with the supplied attribute values passes
// all filter parameters. Parameter names are matched against the attribute
// map keys; unknown names do not filter.
func Match(attributes map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		attribute, ok := attributes[parameter.Name]
		if !ok {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if attribute != actual {
				return false
			}
		case []string:
			if len(actual) == 0 {
				continue
			}
			var matched bool
			for _, candidate := range actual {
				if attribute == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
